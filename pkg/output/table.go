package output

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/sonemaro/sortitor/pkg/logger"
)

func (f *formatter) rulesTable(set RuleSet) (string, error) {
	data := pterm.TableData{{"#", "Keyword", "Folder"}}
	for i, rule := range set.Rules {
		data = append(data, []string{strconv.Itoa(i + 1), rule.Keyword, rule.Folder + "/"})
	}
	return f.renderTable(data)
}

func (f *formatter) groupsTable(sets []RuleSet) (string, error) {
	data := pterm.TableData{{"Group", "Rules", "Current"}}
	for _, set := range sets {
		current := ""
		if set.Current {
			current = "*"
		}
		data = append(data, []string{set.Group, strconv.Itoa(len(set.Rules)), current})
	}

	out, err := f.renderTable(data)
	if err != nil || !f.config.WithStats {
		return out, err
	}
	stats := f.calculateStats(sets)
	return out + fmt.Sprintf("\n%d groups, %d rules\n", stats.Groups, stats.Rules), nil
}

func (f *formatter) summaryTable(s RunSummary) (string, error) {
	state := s.State
	if f.config.WithColors {
		state = stateStyle(s.State).Sprint(state)
	}

	data := pterm.TableData{
		{"State", "Processed", "Skipped", "Failed", "Total", "Elapsed"},
		{
			state,
			strconv.FormatInt(s.Counts.Processed, 10),
			strconv.FormatInt(s.Counts.Skipped, 10),
			strconv.FormatInt(s.Counts.Errored, 10),
			strconv.Itoa(s.Total),
			s.Elapsed,
		},
	}
	out, err := f.renderTable(data)
	if err != nil {
		return "", err
	}
	if s.Reason != "" {
		out += "\nReason: " + s.Reason + "\n"
	}
	return out, nil
}

func (f *formatter) renderTable(data pterm.TableData) (string, error) {
	f.log.WithFields(logger.Fields{
		"rows": len(data) - 1,
	}).Debug("Formatting table output")

	table := pterm.DefaultTable.WithHasHeader().WithData(data)
	if !f.config.WithColors {
		table = table.WithHeaderStyle(pterm.NewStyle()).WithSeparatorStyle(pterm.NewStyle())
	}

	out, err := table.Srender()
	if err != nil {
		f.log.WithFields(logger.Fields{
			"error": err,
		}).Error("Failed to render table")
		return "", err
	}
	return out + "\n", nil
}

func stateStyle(state string) *pterm.Style {
	switch state {
	case "completed":
		return pterm.NewStyle(pterm.FgGreen, pterm.Bold)
	case "cancelled":
		return pterm.NewStyle(pterm.FgYellow)
	default:
		return pterm.NewStyle(pterm.FgRed, pterm.Bold)
	}
}
