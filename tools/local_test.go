package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sidekick/chat"
)

func newTestWorkspace(t *testing.T) *LocalExecutor {
	t.Helper()
	root := t.TempDir()

	writeFile(t, root, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n")
	writeFile(t, root, "util.go", "package main\n\n// helper\nfunc helper() {}\n")
	writeFile(t, root, "docs/readme.md", "# readme\nsearch target here\n")

	return NewLocalExecutor(root)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func run(e *LocalExecutor, name string, args map[string]any) chat.ToolResult {
	return e.Execute(context.Background(), chat.ToolCall{ID: "call_1", Name: name, Arguments: args})
}

func TestReadFile(t *testing.T) {
	e := newTestWorkspace(t)

	t.Run("whole file", func(t *testing.T) {
		result := run(e, "read_file", map[string]any{"path": "main.go"})
		if !strings.HasPrefix(result.Content, "package main") {
			t.Errorf("content = %q", result.Content)
		}
	})

	t.Run("line range", func(t *testing.T) {
		result := run(e, "read_file", map[string]any{
			"path": "main.go", "start_line": float64(3), "end_line": float64(3),
		})
		if result.Content != "func main() {" {
			t.Errorf("content = %q", result.Content)
		}
	})

	t.Run("missing file is result text", func(t *testing.T) {
		result := run(e, "read_file", map[string]any{"path": "nope.go"})
		if !strings.HasPrefix(result.Content, "tool error:") {
			t.Errorf("content = %q, want tool error text", result.Content)
		}
	})

	t.Run("range beyond file", func(t *testing.T) {
		result := run(e, "read_file", map[string]any{
			"path": "main.go", "start_line": float64(100),
		})
		if !strings.Contains(result.Content, "beyond end of file") {
			t.Errorf("content = %q", result.Content)
		}
	})
}

func TestPathValidation(t *testing.T) {
	e := newTestWorkspace(t)
	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"traversal", "../secrets.txt"},
		{"nested traversal", "docs/../../secrets.txt"},
		{"absolute", "/etc/passwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := run(e, "read_file", map[string]any{"path": tt.path})
			if !strings.HasPrefix(result.Content, "tool error:") {
				t.Errorf("path %q accepted: %q", tt.path, result.Content)
			}
		})
	}
}

func TestListFiles(t *testing.T) {
	e := newTestWorkspace(t)

	t.Run("root", func(t *testing.T) {
		result := run(e, "list_files", map[string]any{})
		for _, want := range []string{"main.go", "util.go", "docs/"} {
			if !strings.Contains(result.Content, want) {
				t.Errorf("listing %q missing %q", result.Content, want)
			}
		}
	})

	t.Run("pattern", func(t *testing.T) {
		result := run(e, "list_files", map[string]any{"pattern": "*.go"})
		if strings.Contains(result.Content, "docs/") {
			t.Errorf("pattern leaked directory: %q", result.Content)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		result := run(e, "list_files", map[string]any{"pattern": "*.rs"})
		if result.Content != "(no entries)" {
			t.Errorf("content = %q", result.Content)
		}
	})
}

func TestSearchCode(t *testing.T) {
	e := newTestWorkspace(t)

	t.Run("finds matches with locations", func(t *testing.T) {
		result := run(e, "search_code", map[string]any{"query": "search target"})
		if !strings.Contains(result.Content, "readme.md:2:") {
			t.Errorf("content = %q", result.Content)
		}
	})

	t.Run("caps results", func(t *testing.T) {
		result := run(e, "search_code", map[string]any{
			"query": "package main", "max_results": float64(1),
		})
		lines := strings.Split(strings.TrimSpace(result.Content), "\n")
		if len(lines) != 1 {
			t.Errorf("results = %d, want 1", len(lines))
		}
	})

	t.Run("empty query rejected", func(t *testing.T) {
		result := run(e, "search_code", map[string]any{})
		if !strings.HasPrefix(result.Content, "tool error:") {
			t.Errorf("content = %q", result.Content)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		result := run(e, "search_code", map[string]any{"query": "zzz-nothing"})
		if result.Content != "(no matches)" {
			t.Errorf("content = %q", result.Content)
		}
	})
}

func TestProposeEditNeverWrites(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "one\ntwo\nthree\n")
	e := NewLocalExecutor(root)

	result := run(e, "propose_edit", map[string]any{
		"path":        "a.txt",
		"start_line":  float64(2),
		"end_line":    float64(2),
		"new_content": "TWO",
	})

	if !strings.Contains(result.Content, "-two") || !strings.Contains(result.Content, "+TWO") {
		t.Errorf("diff = %q", result.Content)
	}

	data, err := os.ReadFile(filepath.Join(root, "a.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "one\ntwo\nthree\n" {
		t.Errorf("file was modified: %q", data)
	}
}

func TestExecutorCache(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "original")
	e := NewLocalExecutor(root)

	first := run(e, "read_file", map[string]any{"path": "a.txt"})
	if first.Content != "original" {
		t.Fatalf("content = %q", first.Content)
	}

	// Same call again serves the cached result even after the file
	// changed on disk.
	writeFile(t, root, "a.txt", "changed")
	second := run(e, "read_file", map[string]any{"path": "a.txt"})
	if second.Content != "original" {
		t.Errorf("cache miss: content = %q", second.Content)
	}

	// A different argument set is a different cache entry.
	ranged := run(e, "read_file", map[string]any{"path": "a.txt", "start_line": float64(1)})
	if ranged.Content != "changed" {
		t.Errorf("ranged read = %q, want fresh content", ranged.Content)
	}
}

func TestExecuteNeverErrors(t *testing.T) {
	e := newTestWorkspace(t)

	t.Run("unknown tool", func(t *testing.T) {
		result := run(e, "write_file", map[string]any{"path": "x"})
		if !strings.Contains(result.Content, "unknown tool") {
			t.Errorf("content = %q", result.Content)
		}
	})

	t.Run("raw arguments sentinel", func(t *testing.T) {
		result := run(e, "read_file", map[string]any{chat.RawArgumentsKey: "read main.go plz"})
		if !strings.Contains(result.Content, "not valid JSON") {
			t.Errorf("content = %q", result.Content)
		}
	})
}

func TestCombineRoutesByName(t *testing.T) {
	e := newTestWorkspace(t)
	multi := Combine(e)

	if len(multi.Defs()) != len(LocalToolDefs()) {
		t.Errorf("Defs() = %d, want %d", len(multi.Defs()), len(LocalToolDefs()))
	}

	result := multi.Execute(context.Background(), chat.ToolCall{
		ID: "c", Name: "list_files", Arguments: map[string]any{},
	})
	if strings.HasPrefix(result.Content, "tool error:") {
		t.Errorf("content = %q", result.Content)
	}

	missing := multi.Execute(context.Background(), chat.ToolCall{ID: "c", Name: "nope"})
	if !strings.Contains(missing.Content, "unknown tool") {
		t.Errorf("content = %q", missing.Content)
	}
}
