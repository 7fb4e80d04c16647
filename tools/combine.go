package tools

import (
	"context"
	"fmt"

	"sidekick/chat"
)

// Multi fans tool calls out to several executors, routing by tool
// name. First executor advertising a name wins.
type Multi struct {
	executors []Executor
	routes    map[string]Executor
}

// Combine builds a Multi over the given executors.
func Combine(executors ...Executor) *Multi {
	m := &Multi{executors: executors, routes: make(map[string]Executor)}
	for _, exec := range executors {
		for _, def := range exec.Defs() {
			if _, taken := m.routes[def.Name]; !taken {
				m.routes[def.Name] = exec
			}
		}
	}
	return m
}

func (m *Multi) Defs() []chat.ToolDef {
	var out []chat.ToolDef
	seen := make(map[string]bool)
	for _, exec := range m.executors {
		for _, def := range exec.Defs() {
			if seen[def.Name] {
				continue
			}
			seen[def.Name] = true
			out = append(out, def)
		}
	}
	return out
}

func (m *Multi) Execute(ctx context.Context, call chat.ToolCall) chat.ToolResult {
	exec, ok := m.routes[call.Name]
	if !ok {
		return failure(call, fmt.Sprintf("unknown tool %q", call.Name))
	}
	return exec.Execute(ctx, call)
}
