// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The Bitbucket client renews OAuth tokens before expiry and backs off
// on rate-limited responses; the inbound auth middleware expires cached
// token validations. All of that timing logic takes a [Clock] so tests
// can drive it deterministically with [Fake] instead of sleeping.
//
// Key exports:
//
//   - [Clock] -- the interface (Now, After, NewTicker, Sleep)
//   - [Real] -- production implementation backed by the time package
//   - [Fake] -- deterministic test implementation with Advance and
//     WaitForTimers
package clock
