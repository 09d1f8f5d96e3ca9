// Package config provides configuration management for sortitor. It reads an
// optional YAML file from the XDG configuration directory, overlays
// environment variables and validates the result. Command-line flags are
// applied on top by the CLI.
//
// # Configuration Loading
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Load looks for $XDG_CONFIG_HOME/sortitor/config.yaml. LoadFrom reads from
// any other directory, which tests use with t.TempDir().
//
// # Environment Variables
//
//	SORTITOR_RULES_FILE       Rules file (default: <config dir>/file_rules.json)
//	SORTITOR_MODE             Default transfer mode: copy|move
//	SORTITOR_MAX_DEPTH        Maximum directory depth (-1 for unlimited)
//	SORTITOR_IGNORE           Comma-separated ignore patterns
//	SORTITOR_FOLLOW_SYMLINKS  Treat symlinks to files as files (true/false)
//	SORTITOR_RATE_LIMIT       Files handled per second (0 for unlimited)
//	SORTITOR_EVENT_BUFFER     Capacity of the job event channel
//	SORTITOR_OUTPUT           Listing format: tree|json|yaml|table
//	SORTITOR_PROGRESS_STYLE   Progress style: bar|spinner|simple
//	SORTITOR_NO_PROGRESS      Disable progress reporting (true/false)
//	SORTITOR_NO_COLOR         Disable colored output (true/false)
//	SORTITOR_VERBOSE          Verbosity level (a number or a string of 'v's)
//	SORTITOR_LOG_FILE         Mirror log lines into this file
//
// # Configuration File
//
// The file uses the same keys in lower case:
//
//	mode: move
//	max_depth: 3
//	ignore:
//	  - "*.tmp"
//	  - node_modules/
//	progress_style: simple
//
// # Default Values
//
//   - Mode:          copy
//   - MaxDepth:      -1 (unlimited)
//   - Output:        tree
//   - ProgressStyle: bar
//   - EventBuffer:   64
//   - RateLimit:     0 (unlimited)
//   - FollowSymlinks: true
//
// # Configuration Validation
//
//   - RulesFile must not be empty
//   - Mode must be copy or move
//   - MaxDepth must be -1 (unlimited) or zero or greater
//   - Output must be one of: tree, json, yaml, table
//   - ProgressStyle must be one of: bar, spinner, simple
//   - RateLimit and EventBuffer must be non-negative
package config
