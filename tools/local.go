package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"sidekick/chat"
)

const (
	defaultMaxSearchResults = 20
	maxFileBytes            = 256 * 1024
)

// LocalExecutor runs the built-in read-only tools against a workspace
// directory. Results are cached per (tool, canonical arguments), so a
// model re-reading the same file within a session costs one disk read.
type LocalExecutor struct {
	root string

	mu    sync.Mutex
	cache map[string]string
}

// NewLocalExecutor creates an executor rooted at workspaceRoot. Every
// path argument is resolved inside that root; traversal outside it is
// rejected.
func NewLocalExecutor(workspaceRoot string) *LocalExecutor {
	return &LocalExecutor{
		root:  filepath.Clean(workspaceRoot),
		cache: make(map[string]string),
	}
}

func (e *LocalExecutor) Defs() []chat.ToolDef {
	return LocalToolDefs()
}

func (e *LocalExecutor) Execute(ctx context.Context, call chat.ToolCall) chat.ToolResult {
	if raw, ok := call.Arguments[chat.RawArgumentsKey]; ok {
		return failure(call, fmt.Sprintf("arguments were not valid JSON: %v", raw))
	}

	key := cacheKey(call)
	e.mu.Lock()
	cached, hit := e.cache[key]
	e.mu.Unlock()
	if hit {
		return chat.ToolResult{CallID: call.ID, Name: call.Name, Content: cached}
	}

	var content string
	var err error
	switch call.Name {
	case "read_file":
		content, err = e.readFile(call.Arguments)
	case "list_files":
		content, err = e.listFiles(call.Arguments)
	case "search_code":
		content, err = e.searchCode(call.Arguments)
	case "propose_edit":
		content, err = e.proposeEdit(call.Arguments)
	default:
		return failure(call, fmt.Sprintf("unknown tool %q", call.Name))
	}
	if err != nil {
		return failure(call, err.Error())
	}

	e.mu.Lock()
	e.cache[key] = content
	e.mu.Unlock()

	return chat.ToolResult{CallID: call.ID, Name: call.Name, Content: content}
}

// cacheKey canonicalizes arguments: encoding/json sorts map keys, so
// semantically equal argument maps share one key.
func cacheKey(call chat.ToolCall) string {
	args, err := json.Marshal(call.Arguments)
	if err != nil {
		args = []byte("{}")
	}
	return call.Name + "\x00" + string(args)
}

// resolvePath validates a workspace-relative path. Empty paths and
// anything escaping the root are rejected.
func (e *LocalExecutor) resolvePath(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	if filepath.IsAbs(raw) {
		return "", fmt.Errorf("path must be workspace-relative: %s", raw)
	}
	cleaned := filepath.Clean(raw)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes the workspace: %s", raw)
	}
	return filepath.Join(e.root, cleaned), nil
}

func (e *LocalExecutor) readFile(args map[string]any) (string, error) {
	path, err := e.resolvePath(stringArg(args, "path", ""))
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %v", stringArg(args, "path", ""), err)
	}
	if len(data) > maxFileBytes {
		data = data[:maxFileBytes]
	}

	start := intArg(args, "start_line", 0)
	end := intArg(args, "end_line", 0)
	if start <= 0 && end <= 0 {
		return string(data), nil
	}

	lines := strings.Split(string(data), "\n")
	if start <= 0 {
		start = 1
	}
	if end <= 0 || end > len(lines) {
		end = len(lines)
	}
	if start > len(lines) {
		return "", fmt.Errorf("start_line %d beyond end of file (%d lines)", start, len(lines))
	}
	if start > end {
		return "", fmt.Errorf("start_line %d after end_line %d", start, end)
	}
	return strings.Join(lines[start-1:end], "\n"), nil
}

func (e *LocalExecutor) listFiles(args map[string]any) (string, error) {
	dir := stringArg(args, "directory", ".")
	path, err := e.resolvePath(dir)
	if err != nil {
		return "", err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("cannot list %s: %v", dir, err)
	}

	pattern := stringArg(args, "pattern", "")
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if pattern != "" {
			match, err := filepath.Match(pattern, name)
			if err != nil {
				return "", fmt.Errorf("bad pattern %q: %v", pattern, err)
			}
			if !match {
				continue
			}
		}
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return "(no entries)", nil
	}
	return strings.Join(names, "\n"), nil
}

func (e *LocalExecutor) searchCode(args map[string]any) (string, error) {
	query := stringArg(args, "query", "")
	if query == "" {
		return "", fmt.Errorf("query must not be empty")
	}
	dir := stringArg(args, "directory", ".")
	root, err := e.resolvePath(dir)
	if err != nil {
		return "", err
	}
	maxResults := intArg(args, "max_results", defaultMaxSearchResults)
	if maxResults <= 0 {
		maxResults = defaultMaxSearchResults
	}

	var matches []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || name == "node_modules" || name == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if len(matches) >= maxResults {
			return filepath.SkipAll
		}
		data, err := os.ReadFile(path)
		if err != nil || !isText(data) {
			return nil
		}
		rel, err := filepath.Rel(e.root, path)
		if err != nil {
			rel = path
		}
		for i, line := range strings.Split(string(data), "\n") {
			if strings.Contains(line, query) {
				matches = append(matches, fmt.Sprintf("%s:%d: %s", rel, i+1, strings.TrimSpace(line)))
				if len(matches) >= maxResults {
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search failed: %v", err)
	}
	if len(matches) == 0 {
		return "(no matches)", nil
	}
	return strings.Join(matches, "\n"), nil
}

// proposeEdit renders the requested replacement as a diff preview. It
// never touches the file: applying edits is the IDE's decision.
func (e *LocalExecutor) proposeEdit(args map[string]any) (string, error) {
	relPath := stringArg(args, "path", "")
	path, err := e.resolvePath(relPath)
	if err != nil {
		return "", err
	}
	start := intArg(args, "start_line", 0)
	end := intArg(args, "end_line", 0)
	if start <= 0 || end < start {
		return "", fmt.Errorf("invalid line range %d-%d", start, end)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %v", relPath, err)
	}
	lines := strings.Split(string(data), "\n")
	if start > len(lines) {
		return "", fmt.Errorf("start_line %d beyond end of file (%d lines)", start, len(lines))
	}
	if end > len(lines) {
		end = len(lines)
	}

	newContent := stringArg(args, "new_content", "")
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s (proposed)\n", relPath, relPath)
	fmt.Fprintf(&sb, "@@ -%d,%d @@\n", start, end-start+1)
	for _, line := range lines[start-1 : end] {
		sb.WriteString("-" + line + "\n")
	}
	for _, line := range strings.Split(newContent, "\n") {
		sb.WriteString("+" + line + "\n")
	}
	return sb.String(), nil
}

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
	}
	return fallback
}

// isText filters out binary files by looking for NUL bytes in the
// first KB.
func isText(data []byte) bool {
	probe := data
	if len(probe) > 1024 {
		probe = probe[:1024]
	}
	for _, b := range probe {
		if b == 0 {
			return false
		}
	}
	return true
}
