package config

// AppName names the configuration directory and the environment prefix.
const AppName = "sortitor"

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "SORTITOR"

// Constants for configuration files and defaults
const (
	// RulesFileName is the rules file kept in the configuration directory
	RulesFileName = "file_rules.json"

	// ConfigFileName is the optional configuration file, without extension
	ConfigFileName = "config"

	// DefaultMode is used when no transfer mode is configured
	DefaultMode = "copy"

	// DefaultOutput is the default output format
	DefaultOutput = "tree"

	// DefaultProgressStyle is the default progress style
	DefaultProgressStyle = "bar"

	// DefaultEventBuffer is the default size of the job event channel
	DefaultEventBuffer = 64

	// UnlimitedDepth represents unlimited directory depth
	UnlimitedDepth = -1
)

var (
	validModes          = []string{"copy", "move"}
	validOutputFormats  = []string{"tree", "json", "yaml", "table"}
	validProgressStyles = []string{"bar", "spinner", "simple"}
)
