package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// AppName names the per-user data directory.
const AppName = "TipTune"

type Config struct {
	Sidecar   SidecarConfig   `yaml:"sidecar"`
	Log       LogConfig       `yaml:"log"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Bridge    BridgeConfig    `yaml:"bridge"`

	// DataDir overrides the per-user app data directory.
	DataDir string `yaml:"data_dir"`
}

type SidecarConfig struct {
	Name        string   `yaml:"name"`
	Path        string   `yaml:"path"`
	Args        []string `yaml:"args"`
	WebHost     string   `yaml:"web_host"`
	WebPort     int      `yaml:"web_port"`
	LogFileName string   `yaml:"log_file_name"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
	File   string `yaml:"file"`
}

type DashboardConfig struct {
	Addr string `yaml:"addr"` // empty disables the dashboard
}

type BridgeConfig struct {
	// Mode selects where lifecycle events come from: "signals" or "mcp".
	Mode string `yaml:"mode"`
	// ExitWithSidecar makes the host exit once the sidecar is gone.
	ExitWithSidecar bool `yaml:"exit_with_sidecar"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Sidecar: SidecarConfig{
			Name:        "TipTune",
			WebHost:     "127.0.0.1",
			WebPort:     8765,
			LogFileName: "tiptune-sidecar.log",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Bridge: BridgeConfig{
			Mode:            "signals",
			ExitWithSidecar: true,
		},
	}
}

// DefaultPath is the config file looked up when none is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "tiptune-shell.yaml"
	}
	return filepath.Join(dir, AppName, "tiptune-shell.yaml")
}

// Load reads the YAML file at path over the defaults and then applies
// environment overrides. A missing file is only an error when required is
// set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envOverrides maps TIPTUNE_SHELL_* variables to setters.
var envOverrides = map[string]func(*Config, string) error{
	"TIPTUNE_SHELL_SIDECAR_PATH": func(c *Config, v string) error { c.Sidecar.Path = v; return nil },
	"TIPTUNE_SHELL_WEB_HOST":     func(c *Config, v string) error { c.Sidecar.WebHost = v; return nil },
	"TIPTUNE_SHELL_WEB_PORT": func(c *Config, v string) error {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TIPTUNE_SHELL_WEB_PORT: %w", err)
		}
		c.Sidecar.WebPort = port
		return nil
	},
	"TIPTUNE_SHELL_DATA_DIR":       func(c *Config, v string) error { c.DataDir = v; return nil },
	"TIPTUNE_SHELL_LOG_LEVEL":      func(c *Config, v string) error { c.Log.Level = v; return nil },
	"TIPTUNE_SHELL_DASHBOARD_ADDR": func(c *Config, v string) error { c.Dashboard.Addr = v; return nil },
	"TIPTUNE_SHELL_BRIDGE":         func(c *Config, v string) error { c.Bridge.Mode = v; return nil },
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for name, set := range envOverrides {
		if v, ok := lookup(name); ok && v != "" {
			if err := set(c, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Sidecar.Name == "" && c.Sidecar.Path == "" {
		return errors.New("sidecar.name or sidecar.path must be set")
	}
	if c.Sidecar.WebPort < 0 || c.Sidecar.WebPort > 65535 {
		return fmt.Errorf("sidecar.web_port %d out of range", c.Sidecar.WebPort)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	switch c.Bridge.Mode {
	case "signals", "mcp":
	default:
		return fmt.Errorf("bridge.mode must be signals or mcp, got %q", c.Bridge.Mode)
	}
	return nil
}

// AppDataDir returns the directory for the sidecar log and host state, or
// "" when no per-user directory can be resolved.
func (c *Config) AppDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppName)
}

// StateDir holds the host's persisted run records.
func (c *Config) StateDir() string {
	dir := c.AppDataDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "state")
}
