// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package tools

// property builds one JSON Schema property.
func property(schemaType, description string) map[string]any {
	return map[string]any{
		"type":        schemaType,
		"description": description,
	}
}

// prSchema builds the input schema shared by PR-scoped tools:
// workspace, repo_slug, and pr_id, plus any extra properties. The
// extra required names are appended to the base three.
func prSchema(extra map[string]any, required []string) map[string]any {
	properties := map[string]any{
		"workspace": property("string", "Bitbucket workspace slug"),
		"repo_slug": property("string", "Repository slug"),
		"pr_id":     property("integer", "Pull request ID number"),
	}
	for name, schema := range extra {
		properties[name] = schema
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   append([]string{"workspace", "repo_slug", "pr_id"}, required...),
	}
}

// fileContentSchema is the input schema for get_file_content. pr_id
// and ref are both optional; the descriptions steer agents toward
// pr_id so the server can resolve the real source commit.
func fileContentSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"workspace": property("string", "Bitbucket workspace slug"),
			"repo_slug": property("string", "Repository slug"),
			"file_path": property("string", "Path to the file (e.g. 'src/hello.py')"),
			"pr_id": property("integer",
				"PR ID. When provided, the server auto-resolves the correct source "+
					"commit as the ref. Always pass this when reading files changed in the PR."),
			"ref": property("string",
				"Branch or commit ref. Only use this for files on main that are NOT part "+
					"of the PR (e.g. style guides). For PR files, pass pr_id instead and "+
					"omit this field."),
		},
		"required": []string{"workspace", "repo_slug", "file_path"},
	}
}
