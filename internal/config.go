package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/wayfarer/internal/editor"
	"github.com/starford/wayfarer/internal/geometry"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Editor  EditorConfig      `yaml:"editor"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Editor.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig holds the directory where documents and attachments live.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// EditorConfig holds the image crop defaults.
type EditorConfig struct {
	ContainerWidth  float64 `yaml:"container_width"`
	ContainerHeight float64 `yaml:"container_height"`
	MinCropSize     float64 `yaml:"min_crop_size"`
	JPEGQuality     int     `yaml:"jpeg_quality"`
	// MaxOutputWidth downsamples wider crops. Zero keeps natural size.
	MaxOutputWidth int `yaml:"max_output_width"`
	// MaxSourceBytes caps images fetched or uploaded for cropping.
	MaxSourceBytes int64 `yaml:"max_source_bytes"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ContainerWidth, validation.Required, validation.Min(1.0)),
		validation.Field(&c.ContainerHeight, validation.Required, validation.Min(1.0)),
		validation.Field(&c.MinCropSize, validation.Required, validation.Min(1.0)),
		validation.Field(&c.JPEGQuality, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.MaxOutputWidth, validation.Min(0)),
		validation.Field(&c.MaxSourceBytes, validation.Required, validation.Min(int64(1))),
	)
}

// Crop converts the section into editor crop defaults.
func (c *EditorConfig) Crop() editor.Config {
	return editor.Config{
		Container: geometry.Size{Width: c.ContainerWidth, Height: c.ContainerHeight},
		MinSize:   c.MinCropSize,
		Quality:   c.JPEGQuality,
		MaxWidth:  c.MaxOutputWidth,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Path: "./data",
		},
		SQLite: SQLiteConfig{
			Path: "./wayfarer.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Editor: EditorConfig{
			ContainerWidth:  400,
			ContainerHeight: 300,
			MinCropSize:     geometry.MinCropSize,
			JPEGQuality:     90,
			MaxSourceBytes:  10 << 20,
		},
	}
}
