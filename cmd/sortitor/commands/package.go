package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sonemaro/sortitor/cmd/sortitor/app"
	"github.com/sonemaro/sortitor/pkg/rulepkg"
)

func newPackageCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "package",
		Aliases: []string{"pkg"},
		Short:   "Import and export rule packages",
		Long: `Rule packages are JSON files for sharing rules. A package holds either
the rules of one group or every rule group.`,
	}

	cmd.AddCommand(
		newPackageExportCommand(opts),
		newPackageImportCommand(opts),
	)
	return cmd
}

func newPackageExportCommand(opts *Options) *cobra.Command {
	var (
		group string
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "export [flags] <file>",
		Short: "Write a rule package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := rulepkg.GroupScope(group)
			if all {
				scope = rulepkg.AllScope()
			}
			return withApp(cmd, opts, func(a *app.App) error {
				p, err := a.Organizer().ExportRulePackage(args[0], scope)
				if err != nil {
					return err
				}
				a.Println(fmt.Sprintf("Exported %d rules to %s", p.RuleCount(), args[0]))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&group, "group", "g", "",
		"rule group to export (default: the current group)")
	cmd.Flags().BoolVarP(&all, "all", "a", false,
		"export every rule group")
	cmd.MarkFlagsMutuallyExclusive("group", "all")

	return cmd
}

func newPackageImportCommand(opts *Options) *cobra.Command {
	var (
		strategy string
		group    string
	)

	cmd := &cobra.Command{
		Use:   "import [flags] <file>",
		Short: "Apply a rule package",
		Long: `Applies a rule package to the stored rules.

Strategies:
  merge             add imported rules; existing keywords take the imported folder
  overwrite-groups  replace each group present in the package, keep the others
  overwrite-all     replace every rule group with the package content

A single-group package goes into --group, or the current group.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rulepkg.ParseStrategy(strategy)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app.App) error {
				report, err := a.Organizer().ImportRulePackage(args[0], rulepkg.ImportOptions{
					Strategy:    s,
					TargetGroup: group,
				})
				if err != nil {
					return err
				}
				a.Println(fmt.Sprintf("Imported %d rules into %s (%s)",
					report.Rules, strings.Join(report.Groups, ", "), s))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "s", string(rulepkg.Merge),
		"merge|overwrite-groups|overwrite-all")
	cmd.Flags().StringVarP(&group, "group", "g", "",
		"target group for a single-group package (default: the current group)")

	return cmd
}
