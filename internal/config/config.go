// Package config loads the daemon's configuration: a JSON (or YAML) file
// of tunables, overlaid with environment-variable secrets that are never
// persisted to disk.
package config

import (
	"fmt"
	"os"
	"regexp"
)

// Config is the root configuration for the claude-sync daemon.
type Config struct {
	DataHome          string  `json:"data_home" yaml:"data_home"`
	MaxRetries        int     `json:"max_retries" yaml:"max_retries"`
	CleanupAfterHours float64 `json:"cleanup_after_hours" yaml:"cleanup_after_hours"`

	Tracker TrackerConfig `json:"tracker" yaml:"tracker"`
	Matcher MatcherConfig `json:"matcher" yaml:"matcher"`
	LLM     LLMConfig     `json:"llm" yaml:"llm"`
	Labels  []LabelRule   `json:"labels,omitempty" yaml:"labels,omitempty"`

	Telemetry TelemetryConfig `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`

	// PGMirrorEnabled turns on the optional Postgres write-through mirror
	// (internal/queue.PGMirror); the DSN itself is env-only, below.
	PGMirrorEnabled bool `json:"pg_mirror_enabled,omitempty" yaml:"pg_mirror_enabled,omitempty"`

	// TrackerToken, LLMAPIKey, and PGMirrorDSN are never read from the
	// config file — only from environment variables.
	TrackerToken string `json:"-" yaml:"-"`
	LLMAPIKey    string `json:"-" yaml:"-"`
	PGMirrorDSN  string `json:"-" yaml:"-"`
}

// TrackerConfig configures the issue-tracker adapter.
type TrackerConfig struct {
	TeamKey              string `json:"team_key,omitempty" yaml:"team_key,omitempty"`
	DefaultAssigneeEmail string `json:"default_assignee_email,omitempty" yaml:"default_assignee_email,omitempty"`
	BaseURL              string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// MatcherConfig configures the Hybrid Issue Matcher.
type MatcherConfig struct {
	BranchPattern        string  `json:"branch_pattern,omitempty" yaml:"branch_pattern,omitempty"`
	KeywordWeight        float64 `json:"keyword_weight,omitempty" yaml:"keyword_weight,omitempty"`
	SemanticWeight       float64 `json:"semantic_weight,omitempty" yaml:"semantic_weight,omitempty"`
	ConfidenceThreshold  float64 `json:"confidence_threshold,omitempty" yaml:"confidence_threshold,omitempty"`
	MaxCandidates        int     `json:"max_candidates,omitempty" yaml:"max_candidates,omitempty"`
	EnableSemantic       bool    `json:"enable_semantic,omitempty" yaml:"enable_semantic,omitempty"`
	MaxAPICallsPerMinute int     `json:"max_api_calls_per_minute,omitempty" yaml:"max_api_calls_per_minute,omitempty"`
}

// LLMConfig configures the subprocess LLM transport.
type LLMConfig struct {
	Command        string `json:"command,omitempty" yaml:"command,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// LabelRule adds one row to the cwd/message pattern->label table used to
// derive issue labels. Custom rows are tried before the built-in rows; they
// do not replace or disable any built-in row.
type LabelRule struct {
	Pattern string   `json:"pattern" yaml:"pattern"`
	Labels  []string `json:"labels" yaml:"labels"`
}

// TelemetryConfig configures optional OpenTelemetry tracing export.
type TelemetryConfig struct {
	Enabled      bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	ServiceName  string `json:"service_name,omitempty" yaml:"service_name,omitempty"`
	OTLPEndpoint string `json:"otlp_endpoint,omitempty" yaml:"otlp_endpoint,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DataHome:          fmt.Sprintf("%s/.claude-sync", home),
		MaxRetries:        3,
		CleanupAfterHours: 168,
		Matcher: MatcherConfig{
			BranchPattern:        `([A-Z]+-\d+)`,
			KeywordWeight:        0.6,
			SemanticWeight:       0.4,
			ConfidenceThreshold:  0.7,
			MaxCandidates:        10,
			EnableSemantic:       false,
			MaxAPICallsPerMinute: 60,
		},
		LLM: LLMConfig{
			TimeoutSeconds: 60,
		},
	}
}

// QueuePath returns the durable queue file path under DataHome.
func (c *Config) QueuePath() string {
	return c.DataHome + "/queue.jsonl"
}

// CompileBranchPattern compiles Matcher.BranchPattern, validating it has
// at least one capturing group, as the matcher reads group 1.
func (c *Config) CompileBranchPattern() (*regexp.Regexp, error) {
	pattern := c.Matcher.BranchPattern
	if pattern == "" {
		pattern = `([A-Z]+-\d+)`
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("config: invalid branch_pattern %q: %w", pattern, err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("config: branch_pattern %q must have a capturing group", pattern)
	}
	return re, nil
}
