package output

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sonemaro/sortitor/pkg/logger"
)

// rulesTree formats one group and its rules as a tree
func (f *formatter) rulesTree(set RuleSet) string {
	f.log.Debug("Formatting tree output")

	var builder strings.Builder
	f.formatGroupNode(&builder, set, "", true, true)

	if f.config.WithStats {
		f.writeStats(&builder, f.calculateStats([]RuleSet{set}))
	}
	return builder.String()
}

// groupsTree formats every group under a common root
func (f *formatter) groupsTree(sets []RuleSet) string {
	f.log.Debug("Formatting tree output")

	var builder strings.Builder
	builder.WriteString(f.paint("rule groups", color.FgBlue, color.Bold))
	builder.WriteString("\n")
	for i, set := range sets {
		f.formatGroupNode(&builder, set, "", i == len(sets)-1, false)
	}

	if f.config.WithStats {
		f.writeStats(&builder, f.calculateStats(sets))
	}
	return builder.String()
}

func (f *formatter) formatGroupNode(builder *strings.Builder, set RuleSet, prefix string, isLast, isRoot bool) {
	f.log.WithFields(logger.Fields{
		"group":  set.Group,
		"prefix": prefix,
		"isLast": isLast,
		"isRoot": isRoot,
	}).Trace("Formatting group node")

	if !isRoot {
		builder.WriteString(prefix + branch(isLast))
	}

	builder.WriteString(f.paint(set.Group, color.FgBlue, color.Bold))
	if set.Current {
		builder.WriteString(" " + f.paint("(current)", color.FgGreen))
	}
	builder.WriteString("\n")

	newPrefix := prefix
	if !isRoot {
		if isLast {
			newPrefix += "    "
		} else {
			newPrefix += "│   "
		}
	}

	if len(set.Rules) == 0 {
		builder.WriteString(newPrefix + branch(true) + f.paint("(no rules)", color.Faint) + "\n")
		return
	}
	for i, rule := range set.Rules {
		builder.WriteString(newPrefix + branch(i == len(set.Rules)-1))
		builder.WriteString(fmt.Sprintf("%s -> %s/\n", rule.Keyword, f.paint(rule.Folder, color.FgCyan)))
	}
}

func (f *formatter) writeStats(builder *strings.Builder, stats *stats) {
	f.log.Debug("Adding statistics to output")
	builder.WriteString("\nStatistics:\n")
	builder.WriteString(fmt.Sprintf("  Total Groups: %d\n", stats.Groups))
	builder.WriteString(fmt.Sprintf("  Total Rules: %d\n", stats.Rules))
	builder.WriteString(fmt.Sprintf("  Empty Groups: %d\n", stats.EmptyGroups))
}

// summaryText renders the final statistics of a run.
func (f *formatter) summaryText(s RunSummary) string {
	var builder strings.Builder

	switch s.State {
	case "completed":
		builder.WriteString(f.paint("Organize completed. Statistics:", color.FgGreen, color.Bold))
	case "cancelled":
		builder.WriteString(f.paint("Organize cancelled. Statistics:", color.FgYellow, color.Bold))
	default:
		builder.WriteString(f.paint(fmt.Sprintf("Organize failed: %s. Statistics:", s.Reason), color.FgRed, color.Bold))
	}
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf("Processed: %d files\n", s.Counts.Processed))
	builder.WriteString(fmt.Sprintf("Skipped: %d files\n", s.Counts.Skipped))
	builder.WriteString(fmt.Sprintf("Failed: %d files\n", s.Counts.Errored))

	if f.config.WithStats {
		builder.WriteString(fmt.Sprintf("\n  Source: %s\n", s.Source))
		builder.WriteString(fmt.Sprintf("  Target: %s\n", s.Target))
		builder.WriteString(fmt.Sprintf("  Mode: %s\n", s.Mode))
		builder.WriteString(fmt.Sprintf("  Rule Group: %s\n", s.Group))
		builder.WriteString(fmt.Sprintf("  Files Found: %d\n", s.Total))
		builder.WriteString(fmt.Sprintf("  Elapsed: %s\n", s.Elapsed))
	}
	return builder.String()
}

func branch(isLast bool) string {
	if isLast {
		return "└── "
	}
	return "├── "
}

// paint colours s when colours are enabled.
func (f *formatter) paint(s string, attrs ...color.Attribute) string {
	if !f.config.WithColors {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}
