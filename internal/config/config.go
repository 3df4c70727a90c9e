package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"trade-surveillance-etl/internal/model"
)

// Config is the process-level configuration shared by the CLI runner and
// the API server.
type Config struct {
	ListenAddr string        `yaml:"listen_addr"`
	DBPath     string        `yaml:"db_path"`
	Run        model.RunSpec `yaml:"run"`
}

// Load reads a YAML config file, expands environment variables, and
// validates it.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.DBPath == "" {
		c.DBPath = "surveillance.db"
	}
}

func (c Config) Validate() error {
	for i, src := range c.Run.Sources {
		if src.Path == "" {
			return fmt.Errorf("run.sources[%d].path is required", i)
		}
		if src.Type != "csv" && src.Type != "json" {
			return fmt.Errorf("run.sources[%d].type must be csv or json, got %q", i, src.Type)
		}
	}
	if c.Run.Validation.FailSeverity != "" {
		if _, err := model.ParseSeverity(c.Run.Validation.FailSeverity); err != nil {
			return fmt.Errorf("run.validation.fail_severity: %w", err)
		}
	}
	return nil
}
