package mcpclient

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig describes how to launch one stdio MCP server.
type ServerConfig struct {
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Env         map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Enabled     *bool             `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// IsEnabled reports whether the server should be connected on Initialize.
// Servers are enabled unless the file says otherwise.
func (c ServerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Config is the contents of mcp-servers.json.
type Config struct {
	Servers map[string]ServerConfig `yaml:"servers" json:"servers"`
}

// LoadConfig reads a server file. JSON is parsed as YAML, so either works.
// A missing file yields an empty config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("[MCP] No server config found at %s, using empty config", path)
		return &Config{Servers: map[string]ServerConfig{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read MCP server config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a server file.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse MCP server config: %w", err)
	}
	if cfg.Servers == nil {
		cfg.Servers = map[string]ServerConfig{}
	}
	for name, server := range cfg.Servers {
		if server.Command == "" {
			return nil, fmt.Errorf("MCP server %q: command is required", name)
		}
	}
	return &cfg, nil
}
