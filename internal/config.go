package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/nodenote/internal/paths"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Registry RegistryConfig    `yaml:"registry"`
	Watch    WatchConfig       `yaml:"watch"`
	MCP      MCPConfig         `yaml:"mcp"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Registry.Validate(); err != nil {
		return err
	}
	if err := c.Watch.Validate(); err != nil {
		return err
	}
	return c.MCP.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// RegistryConfig locates the graph registry file.
//
// DataDir overrides the platform application data directory. The registry
// lives at DataDir/AppName/graph_registry.json.
type RegistryConfig struct {
	DataDir     string        `yaml:"data_dir"`
	AppName     string        `yaml:"app_name"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// Validate validates the registry configuration.
func (c *RegistryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AppName, validation.Required),
		validation.Field(&c.LockTimeout, validation.Required, validation.Min(time.Millisecond)),
	)
}

// Path returns the registry file location.
func (c *RegistryConfig) Path() (string, error) {
	dir := c.DataDir
	if dir == "" {
		d, err := paths.AppDataDir()
		if err != nil {
			return "", fmt.Errorf("resolve app data dir: %w", err)
		}
		dir = d
	}
	return paths.RegistryFile(dir, c.AppName), nil
}

// WatchConfig holds node watcher configuration.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Required, validation.Min(time.Millisecond)),
	)
}

// MCPConfig holds MCP server configuration.
//
// WatchGraph, when set, names a graph root whose node changes are logged
// while the server runs.
type MCPConfig struct {
	WatchGraph string `yaml:"watch_graph"`
}

// Validate validates the MCP configuration.
func (c *MCPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.WatchGraph, validation.Length(0, 4096)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Registry: RegistryConfig{
			AppName:     "NodeNote",
			LockTimeout: 5 * time.Second,
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
	}
}
