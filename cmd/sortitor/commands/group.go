package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonemaro/sortitor/cmd/sortitor/app"
	"github.com/sonemaro/sortitor/pkg/organizer"
	"github.com/sonemaro/sortitor/pkg/output"
)

func newGroupCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "group",
		Aliases: []string{"groups"},
		Short:   "Manage rule groups",
		Long: `Manages the named rule groups. The "default" group always exists and can
be neither renamed nor deleted. The current group is used whenever a command
does not name a group.`,
	}

	cmd.AddCommand(
		groupMutation(opts, "add <name>", "Create an empty rule group", 1,
			func(o *organizer.Organizer, args []string) (string, error) {
				return fmt.Sprintf("Rule group added: %s", args[0]), o.AddGroup(args[0])
			}),
		groupMutation(opts, "rename <old> <new>", "Rename a rule group", 2,
			func(o *organizer.Organizer, args []string) (string, error) {
				return fmt.Sprintf("Rule group renamed: %s -> %s", args[0], args[1]), o.RenameGroup(args[0], args[1])
			}),
		groupMutation(opts, "delete <name>", "Delete a rule group and its rules", 1,
			func(o *organizer.Organizer, args []string) (string, error) {
				if err := o.DeleteGroup(args[0]); err != nil {
					return "", err
				}
				return fmt.Sprintf("Rule group deleted: %s (current: %s)", args[0], o.CurrentGroup()), nil
			}),
		groupMutation(opts, "use <name>", "Make a rule group current", 1,
			func(o *organizer.Organizer, args []string) (string, error) {
				return fmt.Sprintf("Current rule group: %s", args[0]), o.SetCurrentGroup(args[0])
			}),
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List all rule groups with their rules",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, opts, func(a *app.App) error {
					text, err := a.Formatter().Groups(output.RuleSets(a.Organizer().Snapshot()))
					if err != nil {
						return err
					}
					a.Println(text)
					return nil
				})
			},
		},
	)

	return cmd
}

// groupMutation builds a subcommand that applies fn and prints its message
// on success.
func groupMutation(opts *Options, use, short string, nargs int,
	fn func(o *organizer.Organizer, args []string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app.App) error {
				msg, err := fn(a.Organizer(), args)
				if err != nil {
					return err
				}
				a.Println(msg)
				return nil
			})
		},
	}
}

func withApp(cmd *cobra.Command, opts *Options, fn func(a *app.App) error) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
