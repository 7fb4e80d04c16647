package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"sidekick/chat"
)

// MCPExecutor bridges tool calls to an MCP server running as a child
// process over stdio.
type MCPExecutor struct {
	name   string
	client *client.Client
	tools  []mcptypes.Tool
}

// NewMCPExecutor starts the MCP server process, initializes the
// session and caches the advertised tool list.
func NewMCPExecutor(ctx context.Context, name, command string, env, args []string) (*MCPExecutor, error) {
	mcpClient, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to start MCP server %s: %w", name, err)
	}

	initReq := mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: "2025-06-18",
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    "sidekick",
				Version: "1.0.0",
			},
		},
	}
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to initialize MCP server %s: %w", name, err)
	}

	toolsResult, err := mcpClient.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to list tools of MCP server %s: %w", name, err)
	}

	return &MCPExecutor{name: name, client: mcpClient, tools: toolsResult.Tools}, nil
}

// Close shuts the server process down.
func (e *MCPExecutor) Close() error {
	return e.client.Close()
}

// Defs converts the server's MCP tool schemas to internal defs.
func (e *MCPExecutor) Defs() []chat.ToolDef {
	out := make([]chat.ToolDef, 0, len(e.tools))
	for _, tool := range e.tools {
		out = append(out, FromMCPTool(tool))
	}
	return out
}

func (e *MCPExecutor) Execute(ctx context.Context, call chat.ToolCall) chat.ToolResult {
	if raw, ok := call.Arguments[chat.RawArgumentsKey]; ok {
		return failure(call, fmt.Sprintf("arguments were not valid JSON: %v", raw))
	}

	result, err := e.client.CallTool(ctx, mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{
			Name:      call.Name,
			Arguments: call.Arguments,
		},
	})
	if err != nil {
		return failure(call, fmt.Sprintf("MCP call failed: %v", err))
	}

	content := flattenMCPContent(result.Content)
	if content == "" {
		content = "(no output)"
	}
	if result.IsError {
		return failure(call, content)
	}
	return chat.ToolResult{CallID: call.ID, Name: call.Name, Content: content}
}

// flattenMCPContent joins the text blocks of an MCP result; non-text
// blocks fall back to their JSON form.
func flattenMCPContent(blocks []mcptypes.Content) string {
	var out string
	for _, block := range blocks {
		if text, ok := block.(mcptypes.TextContent); ok {
			out += text.Text
			continue
		}
		if data, err := json.Marshal(block); err == nil {
			out += string(data)
		}
	}
	return out
}

// FromMCPTool converts an MCP tool schema into an internal ToolDef.
// Property schemas carry over untouched via the Schema passthrough.
func FromMCPTool(tool mcptypes.Tool) chat.ToolDef {
	def := chat.ToolDef{
		Name:        tool.Name,
		Description: tool.Description,
		Params:      make(map[string]chat.ToolParam, len(tool.InputSchema.Properties)),
	}

	required := make(map[string]bool, len(tool.InputSchema.Required))
	for _, name := range tool.InputSchema.Required {
		required[name] = true
	}

	for name, prop := range tool.InputSchema.Properties {
		param := chat.ToolParam{Required: required[name]}
		propMap, ok := prop.(map[string]any)
		if !ok {
			param.Type = "string"
			def.Params[name] = param
			continue
		}
		if t, ok := propMap["type"].(string); ok {
			param.Type = t
		} else {
			param.Type = "string"
		}
		if desc, ok := propMap["description"].(string); ok {
			param.Description = desc
		}
		extra := make(map[string]any)
		for k, v := range propMap {
			if k == "type" || k == "description" {
				continue
			}
			extra[k] = v
		}
		if len(extra) > 0 {
			param.Schema = extra
		}
		def.Params[name] = param
	}
	return def
}
