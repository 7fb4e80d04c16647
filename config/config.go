// Package config loads the TOML configuration and the API keys for
// the agent process.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the full process configuration. Everything except API
// keys lives in config.toml; keys come from the environment (or a
// .env file in the working directory).
type Config struct {
	// DataDirectory holds conversations.db and agent.log.
	DataDirectory string `toml:"data_directory"`
	// WorkspaceRoot is the directory local tools may read from.
	WorkspaceRoot string `toml:"workspace_root"`
	ListenAddr    string `toml:"listen_addr"`

	DefaultVendor string   `toml:"default_vendor"`
	DefaultModel  string   `toml:"default_model"`
	AgentType     string   `toml:"agent_type"`
	EnableTools   bool     `toml:"enable_tools"`
	MaxModelCalls int      `toml:"max_model_calls"`
	Temperature   *float64 `toml:"temperature"`

	HTTPTimeoutSeconds int  `toml:"http_timeout_seconds"`
	Debug              bool `toml:"debug"`
	LogRedactContent   bool `toml:"log_redact_content"`

	// PromptDirectory overrides the built-in system prompts; files are
	// named <agent_type>.md.
	PromptDirectory string `toml:"prompt_directory"`

	Vendors    map[string]VendorConfig `toml:"vendors"`
	MCPServers []MCPServerConfig       `toml:"mcp_servers"`
}

// VendorConfig overrides per-vendor connection settings.
type VendorConfig struct {
	BaseURL string `toml:"base_url"`
}

// MCPServerConfig describes one stdio MCP server to launch at
// startup.
type MCPServerConfig struct {
	Name    string   `toml:"name"`
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Env     []string `toml:"env"`
}

// DefaultConfig returns the configuration used when config.toml is
// absent.
func DefaultConfig() *Config {
	return &Config{
		DataDirectory:      GetDefaultDataDir(),
		WorkspaceRoot:      ".",
		ListenAddr:         "127.0.0.1:8321",
		DefaultVendor:      "glm",
		DefaultModel:       "ide-chat",
		AgentType:          "ide-helper",
		EnableTools:        true,
		MaxModelCalls:      5,
		HTTPTimeoutSeconds: 120,
		LogRedactContent:   true,
		Vendors:            map[string]VendorConfig{},
	}
}

const defaultConfigTOML = `# sidekick configuration
# API keys are never stored here; set them in the environment or in a
# .env file next to where sidekick runs:
#   GLM_API_KEY, KIMI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY

# data_directory = "~/.local/share/sidekick"
workspace_root = "."
listen_addr = "127.0.0.1:8321"

default_vendor = "glm"
default_model = "ide-chat"
enable_tools = true
max_model_calls = 5

http_timeout_seconds = 120
log_redact_content = true

# [vendors.glm]
# base_url = "https://open.bigmodel.cn/api/paas/v4"
# [vendors.ollama]
# base_url = "http://localhost:11434"

# [[mcp_servers]]
# name = "filesystem"
# command = "npx"
# args = ["-y", "@modelcontextprotocol/server-filesystem", "/tmp"]
`

// Load reads config.toml, creating it with defaults on first run, and
// applies environment overrides. path may be empty to use the default
// location (or $SIDEKICK_CONFIG).
func Load(path string) (*Config, error) {
	// A .env beside the process is the easiest way to carry API keys;
	// absence is not an error.
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("SIDEKICK_CONFIG")
	}
	if path == "" {
		path = GetConfigFilePath()
	}

	cfg := DefaultConfig()
	if !FileExists(path) {
		if err := writeDefaultConfig(path); err != nil {
			return nil, err
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	cfg.DataDirectory = ExpandPath(cfg.DataDirectory)
	cfg.WorkspaceRoot = ExpandPath(cfg.WorkspaceRoot)
	if cfg.PromptDirectory != "" {
		cfg.PromptDirectory = ExpandPath(cfg.PromptDirectory)
	}
	if cfg.MaxModelCalls <= 0 {
		cfg.MaxModelCalls = 5
	}
	if cfg.HTTPTimeoutSeconds <= 0 {
		cfg.HTTPTimeoutSeconds = 120
	}
	return cfg, nil
}

func writeDefaultConfig(path string) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(defaultConfigTOML), 0600); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SIDEKICK_DATA_DIR"); v != "" {
		c.DataDirectory = v
	}
	if v := os.Getenv("SIDEKICK_WORKSPACE"); v != "" {
		c.WorkspaceRoot = v
	}
	if v := os.Getenv("SIDEKICK_LISTEN"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("SIDEKICK_VENDOR"); v != "" {
		c.DefaultVendor = v
	}
	if v := os.Getenv("SIDEKICK_MODEL"); v != "" {
		c.DefaultModel = v
	}
	if v := os.Getenv("SIDEKICK_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		} else {
			c.Debug = true
		}
	}
}

// keyEnvVars maps vendor names to the environment variable carrying
// their API key. Ollama is local and needs none.
var keyEnvVars = map[string]string{
	"glm":       "GLM_API_KEY",
	"kimi":      "KIMI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// APIKey returns the API key for a vendor from the environment, or ""
// when the vendor needs none or the key is unset.
func (c *Config) APIKey(vendor string) string {
	envVar, ok := keyEnvVars[vendor]
	if !ok {
		return ""
	}
	return os.Getenv(envVar)
}

// BaseURL returns the configured base URL override for a vendor, or
// "" to use the vendor's default endpoint.
func (c *Config) BaseURL(vendor string) string {
	return c.Vendors[vendor].BaseURL
}

// HTTPTimeout returns the provider request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}
