package output

import (
	"encoding/json"
	"time"

	"github.com/sonemaro/sortitor/pkg/logger"
	"github.com/sonemaro/sortitor/pkg/rules"
)

// ruleDocument is the structured form of a one-group listing
type ruleDocument struct {
	RuleSet    `yaml:",inline"`
	Statistics *stats    `json:"statistics,omitempty" yaml:"statistics,omitempty"`
	Generated  time.Time `json:"generated" yaml:"generated"`
}

// groupDocument is the structured form of a group listing
type groupDocument struct {
	Groups     []RuleSet `json:"groups" yaml:"groups"`
	Statistics *stats    `json:"statistics,omitempty" yaml:"statistics,omitempty"`
	Generated  time.Time `json:"generated" yaml:"generated"`
}

func (f *formatter) ruleDocument(set RuleSet) *ruleDocument {
	if set.Rules == nil {
		set.Rules = []rules.Rule{}
	}
	doc := &ruleDocument{RuleSet: set, Generated: time.Now()}
	if f.config.WithStats {
		f.log.Debug("Adding statistics to rule listing")
		doc.Statistics = f.calculateStats([]RuleSet{set})
	}
	return doc
}

func (f *formatter) groupDocument(sets []RuleSet) *groupDocument {
	normalized := make([]RuleSet, len(sets))
	for i, set := range sets {
		if set.Rules == nil {
			set.Rules = []rules.Rule{}
		}
		normalized[i] = set
	}
	sets = normalized
	doc := &groupDocument{Groups: sets, Generated: time.Now()}
	if f.config.WithStats {
		f.log.Debug("Adding statistics to group listing")
		doc.Statistics = f.calculateStats(sets)
	}
	return doc
}

func (f *formatter) marshalJSON(v interface{}) (string, error) {
	f.log.Debug("Formatting JSON output")

	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		f.log.WithFields(logger.Fields{
			"error": err,
		}).Error("Failed to marshal JSON")
		return "", err
	}

	return string(bytes), nil
}
