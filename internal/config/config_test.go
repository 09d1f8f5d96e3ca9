package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults(dir string) Config {
	return Config{
		RulesFile:      filepath.Join(dir, RulesFileName),
		Mode:           "copy",
		MaxDepth:       -1,
		EventBuffer:    DefaultEventBuffer,
		Output:         "tree",
		ProgressStyle:  "bar",
		FollowSymlinks: true,
	}
}

func TestConfig(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		file    string
		modify  func(dir string, c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name: "default configuration",
		},
		{
			name: "configuration from environment variables",
			envVars: map[string]string{
				"SORTITOR_RULES_FILE":      "/tmp/rules.json",
				"SORTITOR_MODE":            "MOVE",
				"SORTITOR_MAX_DEPTH":       "10",
				"SORTITOR_IGNORE":          "node_modules,.git,*.tmp",
				"SORTITOR_FOLLOW_SYMLINKS": "true",
				"SORTITOR_RATE_LIMIT":      "100",
				"SORTITOR_EVENT_BUFFER":    "8",
				"SORTITOR_OUTPUT":          "json",
				"SORTITOR_PROGRESS_STYLE":  "simple",
				"SORTITOR_NO_PROGRESS":     "true",
				"SORTITOR_NO_COLOR":        "1",
				"SORTITOR_VERBOSE":         "vv",
				"SORTITOR_LOG_FILE":        "/tmp/sortitor.log",
			},
			modify: func(dir string, c *Config) {
				c.RulesFile = "/tmp/rules.json"
				c.Mode = "move"
				c.MaxDepth = 10
				c.IgnorePatterns = []string{"node_modules", ".git", "*.tmp"}
				c.FollowSymlinks = true
				c.RateLimit = 100
				c.EventBuffer = 8
				c.Output = "json"
				c.ProgressStyle = "simple"
				c.NoProgress = true
				c.NoColor = true
				c.Verbose = 2
				c.LogFile = "/tmp/sortitor.log"
			},
		},
		{
			name:    "symlinks can be turned off",
			envVars: map[string]string{"SORTITOR_FOLLOW_SYMLINKS": "false"},
			modify: func(dir string, c *Config) {
				c.FollowSymlinks = false
			},
		},
		{
			name: "configuration file",
			file: "mode: move\nmax_depth: 3\nignore:\n  - \"*.tmp\"\n  - node_modules/\noutput: table\n",
			modify: func(dir string, c *Config) {
				c.Mode = "move"
				c.MaxDepth = 3
				c.IgnorePatterns = []string{"*.tmp", "node_modules/"}
				c.Output = "table"
				c.ConfigFile = filepath.Join(dir, "config.yaml")
			},
		},
		{
			name:    "environment overrides file",
			file:    "mode: move\noutput: yaml\n",
			envVars: map[string]string{"SORTITOR_MODE": "copy"},
			modify: func(dir string, c *Config) {
				c.Output = "yaml"
				c.ConfigFile = filepath.Join(dir, "config.yaml")
			},
		},
		{
			name:    "numeric verbosity",
			envVars: map[string]string{"SORTITOR_VERBOSE": "2"},
			modify:  func(dir string, c *Config) { c.Verbose = 2 },
		},
		{
			name:    "ignore patterns with spaces",
			envVars: map[string]string{"SORTITOR_IGNORE": "node_modules, .git, ,*.tmp"},
			modify: func(dir string, c *Config) {
				c.IgnorePatterns = []string{"node_modules", ".git", "*.tmp"}
			},
		},
		{
			name:    "invalid mode",
			envVars: map[string]string{"SORTITOR_MODE": "link"},
			wantErr: true,
			errMsg:  `invalid mode "link"`,
		},
		{
			name:    "invalid output format",
			envVars: map[string]string{"SORTITOR_OUTPUT": "invalid"},
			wantErr: true,
			errMsg:  "invalid output format: must be one of [tree json yaml table]",
		},
		{
			name:    "invalid progress style",
			envVars: map[string]string{"SORTITOR_PROGRESS_STYLE": "fancy"},
			wantErr: true,
			errMsg:  "invalid progress style",
		},
		{
			name:    "max depth zero limits to the top level",
			envVars: map[string]string{"SORTITOR_MAX_DEPTH": "0"},
			modify:  func(dir string, c *Config) { c.MaxDepth = 0 },
		},
		{
			name:    "invalid max depth - negative but not -1",
			envVars: map[string]string{"SORTITOR_MAX_DEPTH": "-2"},
			wantErr: true,
			errMsg:  "max depth must be -1 (unlimited) or zero or greater",
		},
		{
			name:    "invalid rate limit - negative",
			envVars: map[string]string{"SORTITOR_RATE_LIMIT": "-1"},
			wantErr: true,
			errMsg:  "rate limit must be non-negative",
		},
		{
			name:    "corrupt configuration file",
			file:    "mode: [unclosed\n",
			wantErr: true,
			errMsg:  "reading config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(tt.file), 0o644))
			}

			cfg, err := LoadFrom(dir)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}

			require.NoError(t, err)
			expected := defaults(dir)
			if tt.modify != nil {
				tt.modify(dir, &expected)
			}
			assert.Equal(t, expected, cfg)
		})
	}
}

func TestDefaultDir(t *testing.T) {
	assert.Equal(t, AppName, filepath.Base(DefaultDir()))
}

func TestValidateConfig(t *testing.T) {
	valid := defaults("/cfg")

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{name: "valid configuration", modify: func(c *Config) {}},
		{name: "empty rules file", modify: func(c *Config) { c.RulesFile = " " }, wantErr: true, errMsg: "rules file path cannot be empty"},
		{name: "invalid mode", modify: func(c *Config) { c.Mode = "" }, wantErr: true, errMsg: "invalid mode"},
		{name: "invalid output format", modify: func(c *Config) { c.Output = "xml" }, wantErr: true, errMsg: "invalid output format"},
		{name: "invalid max depth", modify: func(c *Config) { c.MaxDepth = -2 }, wantErr: true, errMsg: "max depth"},
		{name: "invalid event buffer", modify: func(c *Config) { c.EventBuffer = -1 }, wantErr: true, errMsg: "event buffer must be non-negative"},
		{name: "unbuffered events", modify: func(c *Config) { c.EventBuffer = 0 }},
		{name: "verbosity level validation", modify: func(c *Config) { c.Verbose = 4 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.modify(&c)
			err := c.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
