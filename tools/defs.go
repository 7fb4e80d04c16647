package tools

import "sidekick/chat"

// LocalToolDefs describes the built-in read-only workspace tools.
func LocalToolDefs() []chat.ToolDef {
	return []chat.ToolDef{
		{
			Name:        "read_file",
			Description: "Read a file from the workspace, optionally limited to a line range.",
			Params: map[string]chat.ToolParam{
				"path":       {Type: "string", Description: "Workspace-relative file path", Required: true},
				"start_line": {Type: "integer", Description: "First line to include (1-based)"},
				"end_line":   {Type: "integer", Description: "Last line to include (inclusive)"},
			},
		},
		{
			Name:        "list_files",
			Description: "List entries of a workspace directory. Directories are suffixed with '/'.",
			Params: map[string]chat.ToolParam{
				"directory": {Type: "string", Description: "Workspace-relative directory, defaults to the root"},
				"pattern":   {Type: "string", Description: "Glob pattern applied to entry names"},
			},
		},
		{
			Name:        "search_code",
			Description: "Search workspace files for a substring and return path:line matches.",
			Params: map[string]chat.ToolParam{
				"query":       {Type: "string", Description: "Text to search for", Required: true},
				"directory":   {Type: "string", Description: "Workspace-relative directory to search"},
				"max_results": {Type: "integer", Description: "Cap on returned matches, default 20"},
			},
		},
		{
			Name:        "propose_edit",
			Description: "Propose replacing a line range of a file. Returns a diff preview; never writes.",
			Params: map[string]chat.ToolParam{
				"path":        {Type: "string", Description: "Workspace-relative file path", Required: true},
				"start_line":  {Type: "integer", Description: "First line to replace (1-based)", Required: true},
				"end_line":    {Type: "integer", Description: "Last line to replace (inclusive)", Required: true},
				"new_content": {Type: "string", Description: "Replacement text", Required: true},
			},
		},
	}
}
