// Package config loads the YAML context file the CLI evaluates against.
package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"nickandperla.net/cbs/internal/eval"
)

// Config is the CLI's view of a chat: who is talking, what has been said,
// the variable stores and where sessions persist.
type Config struct {
	User           string            `yaml:"user"`
	Persona        string            `yaml:"persona"`
	Char           eval.Character    `yaml:"char"`
	History        []eval.Message    `yaml:"history"`
	ChatIndex      int               `yaml:"chat_index"`
	ChatVars       map[string]string `yaml:"chat_vars"`
	GlobalVars     map[string]string `yaml:"global_vars"`
	Jailbreak      string            `yaml:"jailbreak"`
	GlobalNote     string            `yaml:"global_note"`
	Model          string            `yaml:"model"`
	Role           string            `yaml:"role"`
	MaxContext     int               `yaml:"max_context"`
	EnabledModules []string          `yaml:"enabled_modules"`
	Prelude        string            `yaml:"prelude"` // File of #func definitions
	Workers        int               `yaml:"workers"`

	Flags   FlagsConfig   `yaml:"flags"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
}

// FlagsConfig holds the evaluation mode flags.
type FlagsConfig struct {
	Displaying       bool `yaml:"displaying"`
	TokenizeAccurate bool `yaml:"tokenize_accurate"`
	JailbreakToggled bool `yaml:"jailbreak_toggled"`
	RmVar            bool `yaml:"rm_var"`
	RunVar           bool `yaml:"run_var"`
}

// SessionConfig says where chat variables persist between runs.
type SessionConfig struct {
	DB string `yaml:"db"` // SQLite path; empty keeps everything in memory
	ID string `yaml:"id"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		User:       "User",
		ChatIndex:  -1,
		MaxContext: 4096,
		Workers:    4,
		Flags: FlagsConfig{
			RunVar: true,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CBS_USER"); v != "" {
		c.User = v
	}
	if v := os.Getenv("CBS_DB"); v != "" {
		c.Session.DB = v
	}
	if v := os.Getenv("CBS_SESSION"); v != "" {
		c.Session.ID = v
	}
	if v := os.Getenv("CBS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s (valid: json, console)", c.Logging.Format)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	for i, m := range c.History {
		switch m.Role {
		case eval.RoleUser, eval.RoleChar, eval.RoleSystem:
		default:
			return fmt.Errorf("history[%d]: unknown role %q", i, m.Role)
		}
	}
	return nil
}

// LogLevel parses Logging.Level.
func (c *Config) LogLevel() (zapcore.Level, error) {
	if c.Logging.Level == "" {
		return zapcore.WarnLevel, nil
	}
	lvl, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return lvl, fmt.Errorf("invalid log level: %w", err)
	}
	return lvl, nil
}

// Context builds an evaluation context. Variable maps are copied.
func (c *Config) Context() *eval.Context {
	ctx := eval.NewContext()
	ctx.User = c.User
	ctx.Persona = c.Persona
	ctx.Char = c.Char
	ctx.History = append([]eval.Message(nil), c.History...)
	ctx.ChatIndex = c.ChatIndex
	if c.ChatVars != nil {
		ctx.ChatVars = maps.Clone(c.ChatVars)
	}
	if c.GlobalVars != nil {
		ctx.GlobalVars = maps.Clone(c.GlobalVars)
	}
	ctx.Jailbreak = c.Jailbreak
	ctx.GlobalNote = c.GlobalNote
	ctx.JailbreakToggled = c.Flags.JailbreakToggled
	ctx.Model = c.Model
	ctx.Role = c.Role
	ctx.MaxContext = c.MaxContext
	ctx.EnabledModules = append([]string(nil), c.EnabledModules...)
	ctx.Displaying = c.Flags.Displaying
	ctx.TokenizeAccurate = c.Flags.TokenizeAccurate
	ctx.RmVar = c.Flags.RmVar
	ctx.RunVar = c.Flags.RunVar
	return ctx
}
