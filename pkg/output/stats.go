package output

import (
	"github.com/sonemaro/sortitor/pkg/logger"
)

// stats holds totals over a group listing
type stats struct {
	Groups      int `json:"totalGroups" yaml:"totalGroups"`
	Rules       int `json:"totalRules" yaml:"totalRules"`
	EmptyGroups int `json:"emptyGroups" yaml:"emptyGroups"`
}

func (f *formatter) calculateStats(sets []RuleSet) *stats {
	f.log.Debug("Calculating rule statistics")

	stats := &stats{Groups: len(sets)}
	for _, set := range sets {
		stats.Rules += len(set.Rules)
		if len(set.Rules) == 0 {
			stats.EmptyGroups++
		}
	}

	f.log.WithFields(logger.Fields{
		"groups": stats.Groups,
		"rules":  stats.Rules,
		"empty":  stats.EmptyGroups,
	}).Debug("Statistics calculated")

	return stats
}
