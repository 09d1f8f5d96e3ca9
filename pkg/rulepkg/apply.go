package rulepkg

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sonemaro/sortitor/pkg/logger"
	"github.com/sonemaro/sortitor/pkg/rules"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// Strategy decides how an imported package combines with existing rules.
type Strategy string

const (
	// Merge upserts every imported rule; existing keywords get the imported
	// folder, other existing rules stay.
	Merge Strategy = "merge"

	// OverwriteGroups replaces each group present in the package and keeps
	// the others.
	OverwriteGroups Strategy = "overwrite-groups"

	// OverwriteAll replaces the whole store with the package content.
	OverwriteAll Strategy = "overwrite-all"
)

// ParseStrategy parses a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case Merge, OverwriteGroups, OverwriteAll:
		return Strategy(s), nil
	case "":
		return Merge, nil
	}
	return "", errors.Errorf("unknown import strategy %q: must be one of [merge overwrite-groups overwrite-all]", s)
}

// ImportOptions controls Apply.
type ImportOptions struct {
	Strategy Strategy

	// TargetGroup receives the rules of a flat package. Empty means the
	// current group.
	TargetGroup string
}

// Report describes what Apply changed.
type Report struct {
	Groups []string
	Rules  int
}

// Apply installs the package content into store according to opts. The
// store is left untouched when an error is returned.
func Apply(store *rules.Store, p *Package, opts ImportOptions) (Report, error) {
	strategy, err := ParseStrategy(string(opts.Strategy))
	if err != nil {
		return Report{}, err
	}

	groups := p.RuleGroups
	if p.Rules != nil {
		target := opts.TargetGroup
		if target == "" {
			target = store.Current()
		}
		g := p.Rules.Clone()
		g.Name = target
		groups = rules.GroupList{g}
	}

	work := store.Clone()
	if strategy == OverwriteAll {
		work = rules.NewStore()
	}

	report := Report{}
	for _, g := range groups {
		name := rules.CanonicalGroupName(strings.TrimSpace(g.Name))
		report.Groups = append(report.Groups, name)
		report.Rules += g.Len()

		if strategy == Merge {
			if _, ok := work.Group(name); !ok {
				if err := work.AddGroup(name); err != nil {
					return Report{}, err
				}
			}
			for _, r := range g.Rules() {
				if err := work.AddRule(r.Keyword, r.Folder, name); err != nil {
					return Report{}, err
				}
			}
			continue
		}

		c := g.Clone()
		c.Name = name
		work.ReplaceGroup(c)
	}

	if strategy == OverwriteAll {
		current := store.Current()
		if p.Rules != nil {
			current = groups[0].Name
		}
		if _, ok := work.Group(current); ok {
			_ = work.SetCurrentGroup(current)
		}
	}

	store.Reset(work)
	return report, nil
}

// Export builds a package from store and writes it to path.
func Export(fs afero.Fs, path string, store *rules.Store, scope Scope, log logger.Logger) (*Package, error) {
	p, err := Build(store, scope, time.Now())
	if err != nil {
		return nil, err
	}
	data, err := Encode(p)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Errorf("creating export directory: %w", err)
		}
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return nil, errors.Errorf("writing rule package: %w", err)
	}

	log.WithFields(logger.Fields{
		"path":    path,
		"grouped": p.Grouped(),
		"rules":   p.RuleCount(),
	}).Info("Rule package exported")

	return p, nil
}

// Import reads the package at path and applies it to store.
func Import(fs afero.Fs, path string, store *rules.Store, opts ImportOptions, log logger.Logger) (*Package, Report, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Report{}, errors.Errorf("rule package %s does not exist: %w", path, err)
		}
		return nil, Report{}, errors.Errorf("reading rule package: %w", err)
	}

	p, err := Decode(data)
	if err != nil {
		log.WithFields(logger.Fields{
			"path":  path,
			"error": err.Error(),
		}).Warn("Rule package rejected")
		return nil, Report{}, err
	}

	report, err := Apply(store, p, opts)
	if err != nil {
		return nil, Report{}, err
	}

	log.WithFields(logger.Fields{
		"path":       path,
		"version":    p.Version,
		"created_at": p.CreatedAt,
		"strategy":   string(opts.Strategy),
		"groups":     report.Groups,
		"rules":      report.Rules,
	}).Info("Rule package imported")

	return p, report, nil
}
