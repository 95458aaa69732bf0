package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/cexll/redesign/internal/feedback"
)

// Config holds all configuration for the feedback service
type Config struct {
	// Server settings
	Port int

	// Export defaults
	ProjectName string
	PageURL     string

	// Pipeline settings
	MaxAnnotations int
	MaxSessions    int
	FixSelection   feedback.Selection
	KeywordsFile   string

	// MCP client settings
	MCPServersFile string
	MCPEnabled     bool

	// Security settings
	APIJWTSecret       string
	CORSAllowedOrigins []string

	// Publishing
	GitHubToken string
	GitHubRepo  string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	selection, err := feedback.ParseSelection(os.Getenv("FIX_SELECTION"))
	if err != nil {
		return nil, fmt.Errorf("FIX_SELECTION: %w", err)
	}

	cfg := &Config{
		Port:               getEnvInt("PORT", 8000),
		ProjectName:        getEnv("PROJECT_NAME", feedback.DefaultProject),
		PageURL:            getEnv("PAGE_URL", feedback.DefaultPageURL),
		MaxAnnotations:     getEnvInt("MAX_ANNOTATIONS", 500),
		MaxSessions:        getEnvInt("MAX_SESSIONS", 1000),
		FixSelection:       selection,
		KeywordsFile:       os.Getenv("KEYWORDS_FILE"),
		MCPServersFile:     getEnv("MCP_SERVERS_FILE", "mcp-servers.json"),
		MCPEnabled:         getEnvBool("MCP_ENABLED", true),
		APIJWTSecret:       os.Getenv("API_JWT_SECRET"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		GitHubToken:        os.Getenv("GITHUB_TOKEN"),
		GitHubRepo:         strings.TrimSpace(os.Getenv("GITHUB_REPO")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks ranges and applies fallbacks for optional settings
func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if c.MaxAnnotations <= 0 {
		return fmt.Errorf("MAX_ANNOTATIONS must be greater than 0")
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("MAX_SESSIONS must be greater than 0")
	}
	if c.FixSelection == "" {
		c.FixSelection = feedback.SelectHash
	}
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = []string{"*"}
	}
	if c.APIJWTSecret != "" && len(c.APIJWTSecret) < 16 {
		log.Printf("Warning: API_JWT_SECRET is shorter than 16 bytes")
	}
	if c.GitHubRepo != "" {
		owner, name, ok := strings.Cut(c.GitHubRepo, "/")
		if !ok || owner == "" || name == "" {
			return fmt.Errorf("GITHUB_REPO must be in owner/name form")
		}
	}
	if c.KeywordsFile != "" {
		if _, err := os.Stat(c.KeywordsFile); err != nil {
			return fmt.Errorf("KEYWORDS_FILE: %w", err)
		}
	}
	return nil
}

// AuthEnabled reports whether API requests must carry a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.APIJWTSecret != ""
}

// PublishEnabled reports whether sessions can be filed as GitHub issues.
func (c *Config) PublishEnabled() bool {
	return c.GitHubToken != "" && c.GitHubRepo != ""
}

// NewPipeline builds the feedback pipeline from the configured keyword tables
// and fix selection.
func (c *Config) NewPipeline() (*feedback.Pipeline, error) {
	tables := feedback.DefaultTables()
	if c.KeywordsFile != "" {
		loaded, err := feedback.LoadTables(c.KeywordsFile)
		if err != nil {
			return nil, err
		}
		tables = loaded
	}
	classifier, err := feedback.NewClassifier(tables)
	if err != nil {
		return nil, err
	}
	synth := feedback.NewSynthesizer(
		feedback.WithClassifier(classifier),
		feedback.WithSelection(c.FixSelection),
	)
	return feedback.NewPipeline(synth), nil
}

// getEnv gets environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets environment variable as int with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
