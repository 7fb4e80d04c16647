// Package prompts holds the system prompts shipped with the binary.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed ide_helper.md
var ideHelperPrompt string

// AgentTypeIDEHelper is the default agent personality.
const AgentTypeIDEHelper = "ide-helper"

// LoadSystemPrompt returns the system prompt for an agent type. A file
// named <agentType>.md in overrideDir wins over the embedded text, so
// deployments can tune prompts without rebuilding.
func LoadSystemPrompt(agentType, overrideDir string) (string, error) {
	if overrideDir != "" {
		path := filepath.Join(overrideDir, agentType+".md")
		if data, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(data)), nil
		}
	}

	switch agentType {
	case AgentTypeIDEHelper, "":
		return strings.TrimSpace(ideHelperPrompt), nil
	default:
		return "", fmt.Errorf("unknown agent type %q", agentType)
	}
}
