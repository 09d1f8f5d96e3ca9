/*
Package output renders rule listings, rule group listings and organize run
summaries as a tree view, JSON, YAML or a table. The tree view can be
coloured and every format can carry totals.

Basic usage:

	formatter, err := output.NewFormatter(output.Config{
		Format:     output.FormatTree,
		WithStats:  true,
		WithColors: true,
	}, log)

	text, err := formatter.Groups(output.RuleSets(store))
*/
package output

import (
	"strings"

	"github.com/sonemaro/sortitor/pkg/logger"
	"gitlab.com/tozd/go/errors"
)

// Format represents the output format type
type Format string

const (
	FormatTree  Format = "tree"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// ErrUnsupportedFormat is returned for unknown format names.
var ErrUnsupportedFormat = errors.Base("unsupported output format")

// ParseFormat maps a configuration value to a Format. Empty means tree.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTree, nil
	case FormatTree, FormatJSON, FormatYAML, FormatTable:
		return f, nil
	}
	return "", errors.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Config holds formatter configuration
type Config struct {
	Format     Format
	WithStats  bool
	WithColors bool
}

// Formatter defines the interface for output formatting
type Formatter interface {
	// Rules renders the rules of one group.
	Rules(set RuleSet) (string, error)

	// Groups renders every group with its rules.
	Groups(sets []RuleSet) (string, error)

	// Summary renders the outcome of an organize run.
	Summary(summary RunSummary) (string, error)
}

// formatter implements the Formatter interface
type formatter struct {
	config Config
	log    logger.Logger
}

// NewFormatter creates a new formatter instance
func NewFormatter(config Config, log logger.Logger) (Formatter, error) {
	if config.Format == "" {
		config.Format = FormatTree
	}
	if _, err := ParseFormat(string(config.Format)); err != nil {
		log.WithFields(logger.Fields{
			"format": config.Format,
		}).Error("Unsupported output format")
		return nil, err
	}

	return &formatter{
		config: config,
		log:    log,
	}, nil
}

func (f *formatter) Rules(set RuleSet) (string, error) {
	f.log.WithFields(logger.Fields{
		"format": f.config.Format,
		"group":  set.Group,
		"rules":  len(set.Rules),
	}).Debug("Formatting rule listing")

	switch f.config.Format {
	case FormatJSON:
		return f.marshalJSON(f.ruleDocument(set))
	case FormatYAML:
		return f.marshalYAML(f.ruleDocument(set))
	case FormatTable:
		return f.rulesTable(set)
	default:
		return f.rulesTree(set), nil
	}
}

func (f *formatter) Groups(sets []RuleSet) (string, error) {
	f.log.WithFields(logger.Fields{
		"format": f.config.Format,
		"groups": len(sets),
	}).Debug("Formatting group listing")

	switch f.config.Format {
	case FormatJSON:
		return f.marshalJSON(f.groupDocument(sets))
	case FormatYAML:
		return f.marshalYAML(f.groupDocument(sets))
	case FormatTable:
		return f.groupsTable(sets)
	default:
		return f.groupsTree(sets), nil
	}
}

func (f *formatter) Summary(summary RunSummary) (string, error) {
	f.log.WithFields(logger.Fields{
		"format": f.config.Format,
		"state":  summary.State,
	}).Debug("Formatting run summary")

	switch f.config.Format {
	case FormatJSON:
		return f.marshalJSON(summary)
	case FormatYAML:
		return f.marshalYAML(summary)
	case FormatTable:
		return f.summaryTable(summary)
	default:
		return f.summaryText(summary), nil
	}
}
