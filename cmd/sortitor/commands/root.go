/*
Package commands implements the CLI command structure for sortitor.
It provides the root command and the subcommands for organizing files,
editing rules and rule groups, and exchanging rule packages.
*/
package commands

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sonemaro/sortitor/cmd/sortitor/app"
	"github.com/sonemaro/sortitor/internal/config"
	"github.com/sonemaro/sortitor/pkg/logger"
)

// Options holds command-line options that apply to all commands
type Options struct {
	Config *config.Config

	ConfigDir  string
	RulesFile  string
	Output     string
	LogFile    string
	Verbose    int
	NoProgress bool
	NoColor    bool

	// Fs overrides the filesystem the application works on.
	Fs afero.Fs
}

// NewRootCommand creates the root command for the application
func NewRootCommand() *cobra.Command {
	return newRootCommand(&Options{})
}

func newRootCommand(opts *Options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sortitor [command] [flags]",
		Short: "Rule-based file organizer",
		Long: `sortitor sorts the files of a source directory into category folders
under a target directory. Each file name is matched against an ordered list
of keyword rules; the first matching keyword decides the destination folder.

Rules live in named rule groups stored in a JSON rules file, and can be
shared between machines as rule packages.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeCommand(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add persistent flags that apply to all commands
	rootCmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "",
		"directory holding config.yaml (default: $XDG_CONFIG_HOME/sortitor)")
	rootCmd.PersistentFlags().StringVar(&opts.RulesFile, "rules-file", "",
		"rules file (default: <config dir>/file_rules.json)")
	rootCmd.PersistentFlags().StringVarP(&opts.Output, "output", "o", "",
		"listing format: tree|json|yaml|table")
	rootCmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "",
		"mirror log lines into this file")
	rootCmd.PersistentFlags().CountVarP(&opts.Verbose, "verbose", "v",
		"verbose output (can be used multiple times)")
	rootCmd.PersistentFlags().BoolVar(&opts.NoProgress, "no-progress", false,
		"disable progress reporting")
	rootCmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false,
		"disable colored output")

	// Add commands
	rootCmd.AddCommand(
		newOrganizeCommand(opts),
		newRulesCommand(opts),
		newGroupCommand(opts),
		newPackageCommand(opts),
		newVersionCommand(opts),
	)

	return rootCmd
}

// initializeCommand loads the configuration and applies the flags that were
// set explicitly on top of it.
func initializeCommand(cmd *cobra.Command, opts *Options) error {
	dir := opts.ConfigDir
	if dir == "" {
		dir = config.DefaultDir()
	}

	cfg, err := config.LoadFrom(dir)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("rules-file") {
		cfg.RulesFile = opts.RulesFile
	}
	if flags.Changed("output") {
		cfg.Output = opts.Output
	}
	if flags.Changed("log-file") {
		cfg.LogFile = opts.LogFile
	}
	if flags.Changed("verbose") {
		cfg.Verbose = opts.Verbose
	}
	if flags.Changed("no-progress") {
		cfg.NoProgress = opts.NoProgress
	}
	if flags.Changed("no-color") {
		cfg.NoColor = opts.NoColor
	}

	opts.Config = &cfg
	return nil
}

// newApp builds the application for one command run. Callers close it.
func newApp(cmd *cobra.Command, opts *Options) (*app.App, error) {
	a, err := app.New(*opts.Config, app.Options{
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		Fs:     opts.Fs,
	})
	if err != nil {
		return nil, err
	}

	a.Logger().WithFields(logger.Fields{
		"command": cmd.CommandPath(),
		"config":  opts.Config.String(),
	}).Debug("Initializing command")

	return a, nil
}
