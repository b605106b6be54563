package internal

import (
	"log/slog"
	"strings"
	"testing"

	pkgconfig "github.com/starford/wayfarer/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestEditorConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	c := cfg.Editor.Crop()
	if c.Container.Width != 400 || c.Container.Height != 300 || c.MinSize != 50 || c.Quality != 90 {
		t.Errorf("crop defaults = %+v", c)
	}
}

func TestEditorConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EditorConfig)
	}{
		{"zero container", func(c *EditorConfig) { c.ContainerWidth = 0 }},
		{"quality too high", func(c *EditorConfig) { c.JPEGQuality = 101 }},
		{"negative max width", func(c *EditorConfig) { c.MaxOutputWidth = -1 }},
		{"no source limit", func(c *EditorConfig) { c.MaxSourceBytes = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(&cfg.Editor)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestStorageConfig_RequiresPath(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Storage.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty storage path should fail")
	}
}

func TestShippedConfigFile(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("AUTH_MODE", "")

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load("../config/config.yaml", cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.App.HTTP.Port)
	}
	if cfg.App.LogLevel != slog.LevelInfo {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
	if cfg.Auth.AuthEnabled() {
		t.Error("auth should default to disabled")
	}
	if cfg.Editor.MinCropSize != 50 || cfg.Editor.MaxSourceBytes != 10<<20 {
		t.Errorf("editor = %+v", cfg.Editor)
	}
}
