package commands

import (
	"github.com/spf13/cobra"

	"github.com/sonemaro/sortitor/cmd/sortitor/app"
)

type organizeOptions struct {
	*Options
	mode           string
	group          string
	maxDepth       int
	ignore         []string
	followSymlinks bool
	rateLimit      int
	progressStyle  string
}

func newOrganizeCommand(opts *Options) *cobra.Command {
	oo := &organizeOptions{
		Options: opts,
	}

	cmd := &cobra.Command{
		Use:   "organize [flags] <source> <target>",
		Short: "Sort the files of a source directory into category folders",
		Long: `Walks the source directory and copies or moves every regular, non-hidden
file whose name contains a rule keyword into <target>/<folder>. Files that
match no rule are left where they are. Name collisions get a numeric
suffix, so existing files are never overwritten.

The first Ctrl+C stops the run before the next file; a second one exits
immediately.`,
		Example: `  sortitor organize ~/Downloads ~/Sorted
  sortitor organize --mode move --group work -i "*.tmp" -i node_modules ~/inbox ~/archive`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrganize(cmd, args[0], args[1], oo)
		},
	}

	cmd.Flags().StringVarP(&oo.mode, "mode", "m", "",
		"transfer mode: copy|move (default from config, copy)")
	cmd.Flags().StringVarP(&oo.group, "group", "g", "",
		"rule group to apply (default: the current group)")
	cmd.Flags().IntVarP(&oo.maxDepth, "max-depth", "d", -1,
		"maximum directory depth to walk")
	cmd.Flags().StringSliceVarP(&oo.ignore, "ignore", "i", nil,
		"patterns to ignore (can be specified multiple times)")
	cmd.Flags().BoolVar(&oo.followSymlinks, "follow-symlinks", true,
		"treat symbolic links to files as files (--follow-symlinks=false to skip them)")
	cmd.Flags().IntVarP(&oo.rateLimit, "rate-limit", "r", 0,
		"maximum files handled per second (0 for unlimited)")
	cmd.Flags().StringVar(&oo.progressStyle, "progress-style", "",
		"progress style: bar|spinner|simple")

	return cmd
}

func runOrganize(cmd *cobra.Command, source, target string, opts *organizeOptions) error {
	cfg := opts.Config
	flags := cmd.Flags()
	if flags.Changed("max-depth") {
		cfg.MaxDepth = opts.maxDepth
	}
	if flags.Changed("ignore") {
		cfg.IgnorePatterns = opts.ignore
	}
	if flags.Changed("follow-symlinks") {
		cfg.FollowSymlinks = opts.followSymlinks
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit = opts.rateLimit
	}
	if flags.Changed("progress-style") {
		cfg.ProgressStyle = opts.progressStyle
	}

	a, err := newApp(cmd, opts.Options)
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.Organize(cmd.Context(), app.OrganizeOptions{
		Source: source,
		Target: target,
		Mode:   opts.mode,
		Group:  opts.group,
	})
	return err
}
