package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cexll/redesign/internal/feedback"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != 8000 {
					t.Errorf("Port = %d, want 8000", cfg.Port)
				}
				if cfg.ProjectName != feedback.DefaultProject {
					t.Errorf("ProjectName = %s, want %s", cfg.ProjectName, feedback.DefaultProject)
				}
				if cfg.PageURL != feedback.DefaultPageURL {
					t.Errorf("PageURL = %s, want %s", cfg.PageURL, feedback.DefaultPageURL)
				}
				if cfg.MaxAnnotations != 500 {
					t.Errorf("MaxAnnotations = %d, want 500", cfg.MaxAnnotations)
				}
				if cfg.MaxSessions != 1000 {
					t.Errorf("MaxSessions = %d, want 1000", cfg.MaxSessions)
				}
				if cfg.FixSelection != feedback.SelectHash {
					t.Errorf("FixSelection = %s, want hash", cfg.FixSelection)
				}
				if cfg.MCPServersFile != "mcp-servers.json" {
					t.Errorf("MCPServersFile = %s, want mcp-servers.json", cfg.MCPServersFile)
				}
				if !cfg.MCPEnabled {
					t.Errorf("MCPEnabled = false, want true")
				}
				if cfg.AuthEnabled() {
					t.Errorf("AuthEnabled = true without API_JWT_SECRET")
				}
				if cfg.PublishEnabled() {
					t.Errorf("PublishEnabled = true without GITHUB_REPO")
				}
				if !reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"*"}) {
					t.Errorf("CORSAllowedOrigins = %v, want [*]", cfg.CORSAllowedOrigins)
				}
			},
		},
		{
			name: "explicit values",
			env: map[string]string{
				"PORT":                 "9090",
				"PROJECT_NAME":         "landing",
				"PAGE_URL":             "https://example.com/pricing",
				"MAX_ANNOTATIONS":      "25",
				"MAX_SESSIONS":         "40",
				"FIX_SELECTION":        "first",
				"MCP_SERVERS_FILE":     "servers.yaml",
				"MCP_ENABLED":          "false",
				"API_JWT_SECRET":       "a-very-long-test-secret",
				"CORS_ALLOWED_ORIGINS": "http://localhost:3000, https://app.example.com",
				"GITHUB_TOKEN":         "ghp_test",
				"GITHUB_REPO":          "acme/site",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != 9090 {
					t.Errorf("Port = %d, want 9090", cfg.Port)
				}
				if cfg.ProjectName != "landing" {
					t.Errorf("ProjectName = %s, want landing", cfg.ProjectName)
				}
				if cfg.PageURL != "https://example.com/pricing" {
					t.Errorf("PageURL = %s", cfg.PageURL)
				}
				if cfg.MaxAnnotations != 25 {
					t.Errorf("MaxAnnotations = %d, want 25", cfg.MaxAnnotations)
				}
				if cfg.MaxSessions != 40 {
					t.Errorf("MaxSessions = %d, want 40", cfg.MaxSessions)
				}
				if cfg.FixSelection != feedback.SelectFirst {
					t.Errorf("FixSelection = %s, want first", cfg.FixSelection)
				}
				if cfg.MCPServersFile != "servers.yaml" {
					t.Errorf("MCPServersFile = %s, want servers.yaml", cfg.MCPServersFile)
				}
				if cfg.MCPEnabled {
					t.Errorf("MCPEnabled = true, want false")
				}
				if !cfg.AuthEnabled() {
					t.Errorf("AuthEnabled = false with API_JWT_SECRET set")
				}
				want := []string{"http://localhost:3000", "https://app.example.com"}
				if !reflect.DeepEqual(cfg.CORSAllowedOrigins, want) {
					t.Errorf("CORSAllowedOrigins = %v, want %v", cfg.CORSAllowedOrigins, want)
				}
				if cfg.GitHubToken != "ghp_test" {
					t.Errorf("GitHubToken = %s, want ghp_test", cfg.GitHubToken)
				}
				if !cfg.PublishEnabled() {
					t.Errorf("PublishEnabled = false with token and repo set")
				}
			},
		},
		{
			name:    "unknown fix selection",
			env:     map[string]string{"FIX_SELECTION": "best"},
			wantErr: true,
		},
		{
			name:    "zero max annotations",
			env:     map[string]string{"MAX_ANNOTATIONS": "0"},
			wantErr: true,
		},
		{
			name:    "zero max sessions",
			env:     map[string]string{"MAX_SESSIONS": "0"},
			wantErr: true,
		},
		{
			name:    "port out of range",
			env:     map[string]string{"PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "malformed github repo",
			env:     map[string]string{"GITHUB_REPO": "acme"},
			wantErr: true,
		},
		{
			name:    "missing keywords file",
			env:     map[string]string{"KEYWORDS_FILE": "/nonexistent/keywords.yaml"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear all environment variables
			os.Clearenv()

			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if err == nil && tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestConfigValidateDefaultsApplied(t *testing.T) {
	cfg := &Config{Port: 8000, MaxAnnotations: 10, MaxSessions: 5}

	if err := cfg.validate(); err != nil {
		t.Fatalf("validate returned error: %v", err)
	}
	if cfg.FixSelection != feedback.SelectHash {
		t.Fatalf("FixSelection default = %s, want hash", cfg.FixSelection)
	}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"*"}) {
		t.Fatalf("CORSAllowedOrigins default = %v, want [*]", cfg.CORSAllowedOrigins)
	}
}

func TestConfigNewPipeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	data := []byte("categories:\n  - category: performance\n    keywords: [\"sluggish\"]\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write keywords: %v", err)
	}

	cfg := &Config{Port: 8000, MaxAnnotations: 10, KeywordsFile: path, FixSelection: feedback.SelectFirst}
	pipeline, err := cfg.NewPipeline()
	if err != nil {
		t.Fatalf("NewPipeline returned error: %v", err)
	}

	tasks := pipeline.Process([]feedback.Annotation{{ID: "a1", Element: ".grid", Comment: "feels sluggish"}})
	if len(tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(tasks))
	}
	if tasks[0].Category != feedback.CategoryPerformance {
		t.Errorf("Category = %s, want performance", tasks[0].Category)
	}
	if !strings.HasPrefix(tasks[0].SuggestedFix, "Optimize `.grid` rendering") {
		t.Errorf("SuggestedFix = %q, want first performance template", tasks[0].SuggestedFix)
	}
}

func TestConfigNewPipelineBadKeywords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	if err := os.WriteFile(path, []byte("types:\n  - type: rewrite\n    keywords: [x]\n"), 0o600); err != nil {
		t.Fatalf("write keywords: %v", err)
	}

	cfg := &Config{KeywordsFile: path}
	if _, err := cfg.NewPipeline(); err == nil {
		t.Fatal("expected error for unknown task type")
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"false", true, false},
		{"1", false, true},
		{"nope", false, false},
	}
	for _, tt := range tests {
		os.Setenv("TEST_BOOL", tt.value)
		if got := getEnvBool("TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
	os.Unsetenv("TEST_BOOL")
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, ,b ,")
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("splitList = %v, want [a b]", got)
	}
	if splitList("") != nil {
		t.Fatal("splitList(\"\") should be nil")
	}
}
