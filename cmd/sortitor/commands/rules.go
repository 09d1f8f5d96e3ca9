package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sonemaro/sortitor/pkg/output"
)

func newRulesCommand(opts *Options) *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Add, delete and list keyword rules",
		Long: `Manages the keyword rules of a rule group. Keywords match file names
case-insensitively as substrings, in the order the rules were added.`,
	}
	cmd.PersistentFlags().StringVarP(&group, "group", "g", "",
		"rule group to edit (default: the current group)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <keyword> [folder]",
			Short: "Add or replace a rule; the folder defaults to the keyword",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				folder := ""
				if len(args) == 2 {
					folder = args[1]
				}
				return runRulesAdd(cmd, opts, args[0], folder, group)
			},
		},
		&cobra.Command{
			Use:     "delete <keyword>",
			Aliases: []string{"rm"},
			Short:   "Delete a rule",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRulesDelete(cmd, opts, args[0], group)
			},
		},
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List the rules of a group",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRulesList(cmd, opts, group)
			},
		},
	)

	return cmd
}

func runRulesAdd(cmd *cobra.Command, opts *Options, keyword, folder, group string) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	org := a.Organizer()
	if err := org.AddRule(keyword, folder, group); err != nil {
		return err
	}

	name := groupOrCurrent(group, org.CurrentGroup())
	rs, err := org.ListRules(name)
	if err != nil {
		return err
	}
	keyword = strings.TrimSpace(keyword)
	for _, r := range rs {
		if r.Keyword == keyword {
			a.Println(fmt.Sprintf("Rule added to %s: %s -> %s/", name, r.Keyword, r.Folder))
		}
	}
	return nil
}

func runRulesDelete(cmd *cobra.Command, opts *Options, keyword, group string) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	org := a.Organizer()
	if err := org.DeleteRule(keyword, group); err != nil {
		return err
	}
	a.Println(fmt.Sprintf("Rule deleted from %s: %s", groupOrCurrent(group, org.CurrentGroup()), keyword))
	return nil
}

func runRulesList(cmd *cobra.Command, opts *Options, group string) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	org := a.Organizer()
	rs, err := org.ListRules(group)
	if err != nil {
		return err
	}

	current := org.CurrentGroup()
	name := groupOrCurrent(group, current)
	text, err := a.Formatter().Rules(output.RuleSet{
		Group:   name,
		Current: name == current,
		Rules:   rs,
	})
	if err != nil {
		return err
	}
	a.Println(text)
	return nil
}

func groupOrCurrent(group, current string) string {
	if group == "" {
		return current
	}
	return group
}
