package watchcli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration file.
type Config struct {
	CurrentContext string             `yaml:"currentContext" json:"currentContext"`
	Contexts       map[string]Context `yaml:"contexts" json:"contexts"`
}

// Context holds connection settings for one environment.
type Context struct {
	Name      string `yaml:"name" json:"name"`
	Server    string `yaml:"server" json:"server"`
	Token     string `yaml:"token,omitempty" json:"token,omitempty"`
	Dashboard string `yaml:"dashboard,omitempty" json:"dashboard,omitempty"`
}

// LoadConfig reads the config file. A missing file yields an empty config.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Contexts: map[string]Context{},
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = map[string]Context{}
	}
	return cfg, nil
}

// SaveConfig writes the config file with owner-only permissions.
func SaveConfig(cfg *Config, path string) error {
	if cfg.Contexts == nil {
		cfg.Contexts = map[string]Context{}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./watchdesk-config.yaml"
	}
	return filepath.Join(dir, "watchdesk", "config.yaml")
}

func setContext(cfg *Config, ctx Context, makeCurrent bool) {
	if cfg.Contexts == nil {
		cfg.Contexts = map[string]Context{}
	}
	cfg.Contexts[ctx.Name] = ctx
	if cfg.CurrentContext == "" || makeCurrent {
		cfg.CurrentContext = ctx.Name
	}
}

func ensureContextExists(cfg *Config, name string) error {
	if _, ok := cfg.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	return nil
}

// contextNames returns the context names in sorted order.
func (c *Config) contextNames() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// redacted returns a copy safe to print.
func (c *Config) redacted() *Config {
	out := &Config{CurrentContext: c.CurrentContext, Contexts: make(map[string]Context, len(c.Contexts))}
	for name, ctx := range c.Contexts {
		if ctx.Token != "" {
			ctx.Token = "********"
		}
		out.Contexts[name] = ctx
	}
	return out
}
