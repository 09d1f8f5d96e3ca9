package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"
)

// Config holds all configuration parameters for the application
type Config struct {
	// RulesFile is where the rule groups are stored
	RulesFile string

	// Mode is the default transfer mode (copy or move)
	Mode string

	// MaxDepth is the maximum directory depth to walk (-1 for unlimited)
	MaxDepth int

	// IgnorePatterns is a list of patterns to skip while enumerating
	IgnorePatterns []string

	// FollowSymlinks treats symlinks to regular files as files
	FollowSymlinks bool

	// RateLimit is the maximum number of files handled per second (0 for unlimited)
	RateLimit int

	// EventBuffer is the capacity of the job event channel
	EventBuffer int

	// Output specifies the listing format (tree, json, yaml or table)
	Output string

	// ProgressStyle selects the progress renderer (bar, spinner or simple)
	ProgressStyle string

	// NoProgress disables progress reporting
	NoProgress bool

	// NoColor disables colored output
	NoColor bool

	// Verbose sets the verbosity level
	Verbose int

	// LogFile mirrors every log line into a file when set
	LogFile string

	// ConfigFile is the configuration file that was read, if any
	ConfigFile string
}

// Load reads configuration from the XDG configuration directory and the
// environment and validates it
func Load() (Config, error) {
	return LoadFrom(DefaultDir())
}

// DefaultDir returns $XDG_CONFIG_HOME/sortitor.
func DefaultDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// LoadFrom reads dir/config.yaml, when present, and the environment.
// Environment variables take precedence over the file.
func LoadFrom(dir string) (Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("rules_file", filepath.Join(dir, RulesFileName))
	v.SetDefault("mode", DefaultMode)
	v.SetDefault("max_depth", UnlimitedDepth)
	v.SetDefault("follow_symlinks", true)
	v.SetDefault("rate_limit", 0)
	v.SetDefault("event_buffer", DefaultEventBuffer)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("progress_style", DefaultProgressStyle)
	v.SetDefault("no_progress", false)
	v.SetDefault("no_color", false)
	v.SetDefault("verbose", 0)

	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, errors.Errorf("reading config file: %w", err)
		}
	}

	// Configure environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for _, key := range []string{
		"rules_file", "mode", "max_depth", "ignore", "follow_symlinks",
		"rate_limit", "event_buffer", "output", "progress_style",
		"no_progress", "no_color", "verbose", "log_file",
	} {
		_ = v.BindEnv(key)
	}

	cfg := Config{
		RulesFile:      v.GetString("rules_file"),
		Mode:           strings.ToLower(strings.TrimSpace(v.GetString("mode"))),
		MaxDepth:       v.GetInt("max_depth"),
		IgnorePatterns: ignorePatterns(v.Get("ignore")),
		FollowSymlinks: v.GetBool("follow_symlinks"),
		RateLimit:      v.GetInt("rate_limit"),
		EventBuffer:    v.GetInt("event_buffer"),
		Output:         strings.ToLower(strings.TrimSpace(v.GetString("output"))),
		ProgressStyle:  strings.ToLower(strings.TrimSpace(v.GetString("progress_style"))),
		NoProgress:     v.GetBool("no_progress"),
		NoColor:        v.GetBool("no_color"),
		Verbose:        verbosity(v.GetString("verbose")),
		LogFile:        v.GetString("log_file"),
		ConfigFile:     v.ConfigFileUsed(),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ignorePatterns accepts a comma separated string from the environment or a
// list from the config file.
func ignorePatterns(raw interface{}) []string {
	var parts []string
	switch val := raw.(type) {
	case nil:
		return nil
	case string:
		parts = strings.Split(val, ",")
	case []interface{}:
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
	case []string:
		parts = val
	default:
		parts = []string{fmt.Sprint(val)}
	}

	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	if len(patterns) == 0 {
		return nil
	}
	return patterns
}

// verbosity accepts either a number or a string of 'v's.
func verbosity(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if strings.Trim(s, "v") == "" {
		return len(s)
	}
	n := 0
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0
	}
	return n
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if strings.TrimSpace(c.RulesFile) == "" {
		return errors.New("rules file path cannot be empty")
	}

	if !slices.Contains(validModes, c.Mode) {
		return errors.Errorf("invalid mode %q: must be one of %v", c.Mode, validModes)
	}

	// Validate max depth
	if c.MaxDepth < UnlimitedDepth {
		return errors.New("max depth must be -1 (unlimited) or zero or greater")
	}

	// Validate output format
	if !slices.Contains(validOutputFormats, c.Output) {
		return errors.Errorf("invalid output format: must be one of %v", validOutputFormats)
	}

	if !slices.Contains(validProgressStyles, c.ProgressStyle) {
		return errors.Errorf("invalid progress style: must be one of %v", validProgressStyles)
	}

	// Validate rate limit
	if c.RateLimit < 0 {
		return errors.New("rate limit must be non-negative")
	}

	if c.EventBuffer < 0 {
		return errors.New("event buffer must be non-negative")
	}

	if c.Verbose < 0 {
		return errors.New("verbosity must be non-negative")
	}

	return nil
}

// String returns a string representation of the configuration
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{RulesFile: %s, Mode: %s, MaxDepth: %d, IgnorePatterns: %v, "+
			"FollowSymlinks: %v, RateLimit: %d, EventBuffer: %d, Output: %s, "+
			"ProgressStyle: %s, NoProgress: %v, NoColor: %v, Verbose: %d, LogFile: %s}",
		c.RulesFile, c.Mode, c.MaxDepth, c.IgnorePatterns,
		c.FollowSymlinks, c.RateLimit, c.EventBuffer, c.Output,
		c.ProgressStyle, c.NoProgress, c.NoColor, c.Verbose, c.LogFile,
	)
}
