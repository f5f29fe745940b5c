package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads config from a file (JSON by default; YAML when the path ends
// in .yaml/.yml), then overlays environment-variable secrets. A missing
// file is not an error: Default() is returned with env overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if isYAMLPath(path) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse json: %w", err)
		}
	}

	cfg.DataHome = ExpandHome(cfg.DataHome)
	cfg.applyEnvOverrides()
	return cfg, nil
}

func isYAMLPath(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}

// applyEnvOverrides overlays secret environment variables onto the config.
// Env vars take precedence over file values and are the *only* source for
// credentials.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CLAUDE_SYNC_TRACKER_TOKEN"); v != "" {
		c.TrackerToken = v
	}
	if v := os.Getenv("CLAUDE_SYNC_LLM_API_KEY"); v != "" {
		c.LLMAPIKey = v
	}
	if v := os.Getenv("CLAUDE_SYNC_DATA_HOME"); v != "" {
		c.DataHome = ExpandHome(v)
	}
	if v := os.Getenv("CLAUDE_SYNC_PG_MIRROR_DSN"); v != "" {
		c.PGMirrorDSN = v
	}
}

// ApplyEnvOverrides re-applies environment variable overrides onto the
// config. Exported so callers that construct a Config by hand (tests, the
// hook binaries) can still pick up secrets.
func (c *Config) ApplyEnvOverrides() {
	c.applyEnvOverrides()
}

// ExpandHome replaces a leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
