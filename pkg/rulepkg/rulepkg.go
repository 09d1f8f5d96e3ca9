/*
Package rulepkg reads and writes rule packages, the portable JSON documents
used to share rule groups between installations.

A package holds either the rules of one group:

	{
	    "version": "1.0",
	    "type": "file_organizer_rules",
	    "created_at": "2024-05-01 10:30:00",
	    "rules": {"pdf": "Documents"}
	}

or several groups under "rule_groups" instead of "rules". Decode validates
the document and returns a *ValidationError naming the offending fields.
Apply merges a decoded package into a rules.Store.
*/
package rulepkg

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sonemaro/sortitor/pkg/rules"
	"gitlab.com/tozd/go/errors"
)

const (
	// Version is written into every exported package.
	Version = "1.0"

	// Type is the discriminator identifying a rule package.
	Type = "file_organizer_rules"

	// TimeLayout formats created_at.
	TimeLayout = "2006-01-02 15:04:05"
)

// Package is a decoded rule package. Exactly one of Rules and RuleGroups is
// set.
type Package struct {
	Version    string
	Type       string
	CreatedAt  string
	Rules      *rules.Group
	RuleGroups rules.GroupList
}

// Grouped reports whether the package uses the rule_groups layout.
func (p *Package) Grouped() bool {
	return p.Rules == nil
}

// RuleCount returns the number of rules in the package.
func (p *Package) RuleCount() int {
	if p.Rules != nil {
		return p.Rules.Len()
	}
	n := 0
	for _, g := range p.RuleGroups {
		n += g.Len()
	}
	return n
}

type flatDocument struct {
	Version   string       `json:"version"`
	Type      string       `json:"type"`
	CreatedAt string       `json:"created_at"`
	Rules     *rules.Group `json:"rules"`
}

type groupedDocument struct {
	Version    string          `json:"version"`
	Type       string          `json:"type"`
	CreatedAt  string          `json:"created_at"`
	RuleGroups rules.GroupList `json:"rule_groups"`
}

// ScopeKind selects what Build exports.
type ScopeKind int

const (
	// ScopeGroup exports one group as a flat "rules" object.
	ScopeGroup ScopeKind = iota

	// ScopeAll exports every group under "rule_groups".
	ScopeAll
)

// Scope selects the groups to export. Group is only used with ScopeGroup;
// empty means the current group.
type Scope struct {
	Kind  ScopeKind
	Group string
}

// GroupScope exports the named group, or the current group when name is
// empty.
func GroupScope(name string) Scope {
	return Scope{Kind: ScopeGroup, Group: name}
}

// AllScope exports every group.
func AllScope() Scope {
	return Scope{Kind: ScopeAll}
}

// Build creates a package from store. Exporting an empty selection fails
// with ErrNothingToExport.
func Build(store *rules.Store, scope Scope, now time.Time) (*Package, error) {
	p := &Package{
		Version:   Version,
		Type:      Type,
		CreatedAt: now.Format(TimeLayout),
	}

	switch scope.Kind {
	case ScopeAll:
		for _, g := range store.GroupList() {
			p.RuleGroups = append(p.RuleGroups, g.Clone())
		}
	case ScopeGroup:
		g, err := store.Snapshot(scope.Group)
		if err != nil {
			return nil, err
		}
		p.Rules = g
	default:
		return nil, errors.Errorf("unknown export scope %d", scope.Kind)
	}

	if p.RuleCount() == 0 {
		return nil, invalid(ErrNothingToExport, "there are no rules to export")
	}
	return p, nil
}

// Encode renders p as indented JSON with non-ASCII text kept as is.
func Encode(p *Package) ([]byte, error) {
	if p.Rules != nil {
		return rules.EncodeIndented(flatDocument{
			Version:   p.Version,
			Type:      p.Type,
			CreatedAt: p.CreatedAt,
			Rules:     p.Rules,
		})
	}
	return rules.EncodeIndented(groupedDocument{
		Version:    p.Version,
		Type:       p.Type,
		CreatedAt:  p.CreatedAt,
		RuleGroups: p.RuleGroups,
	})
}

// Decode parses and validates a rule package.
func Decode(data []byte) (*Package, error) {
	obj, err := rules.DecodeOrderedObject(data)
	if err != nil {
		if errors.Is(err, rules.ErrNotObject) {
			return nil, invalid(ErrNotObject, "top level value is not a JSON object")
		}
		return nil, invalid(ErrSyntax, fmt.Sprintf("not a valid JSON document (%v)", err))
	}

	var missing []string
	for _, field := range []string{"version", "type", "created_at"} {
		if !obj.Has(field) {
			missing = append(missing, field)
		}
	}
	hasRules, hasGroups := obj.Has("rules"), obj.Has("rule_groups")
	if !hasRules && !hasGroups {
		missing = append(missing, "rules or rule_groups")
	}
	if len(missing) > 0 {
		return nil, invalid(ErrMissingFields, "missing required fields", missing...)
	}

	typ, ok := obj.String("type")
	if !ok {
		return nil, invalid(ErrFieldNotString, "field must be a string", "type")
	}
	if typ != Type {
		return nil, invalid(ErrWrongType,
			fmt.Sprintf("type %q is not a sortitor rule package, expected %q", typ, Type), "type")
	}

	p := &Package{Type: typ}
	var notString []string
	if p.Version, ok = obj.String("version"); !ok {
		notString = append(notString, "version")
	}
	if p.CreatedAt, ok = obj.String("created_at"); !ok {
		notString = append(notString, "created_at")
	}
	if len(notString) > 0 {
		return nil, invalid(ErrFieldNotString, "fields must be strings", notString...)
	}

	if hasRules && hasGroups {
		return nil, invalid(ErrConflictingFields, "only one of the fields may be present", "rules", "rule_groups")
	}

	if hasRules {
		rulesObj, err := obj.Object("rules")
		if err != nil {
			return nil, invalid(ErrRulesNotObject, "field is not a rules object", "rules")
		}
		g, err := decodeRules(rules.DefaultGroup, "rules", rulesObj)
		if err != nil {
			return nil, err
		}
		p.Rules = g
		return p, nil
	}

	groupsObj, err := obj.Object("rule_groups")
	if err != nil {
		return nil, invalid(ErrRulesNotObject, "field is not a rule groups object", "rule_groups")
	}
	p.RuleGroups = rules.GroupList{}
	for _, name := range groupsObj.Keys() {
		field := "rule_groups." + name
		if strings.TrimSpace(name) == "" {
			return nil, invalid(ErrRuleEmpty, "group name cannot be empty", field)
		}
		rulesObj, err := groupsObj.Object(name)
		if err != nil {
			return nil, invalid(ErrRulesNotObject, "field is not a rules object", field)
		}
		g, err := decodeRules(name, field, rulesObj)
		if err != nil {
			return nil, err
		}
		p.RuleGroups = append(p.RuleGroups, g)
	}
	return p, nil
}

func decodeRules(name, field string, obj *rules.OrderedObject) (*rules.Group, error) {
	g := rules.NewGroup(name)
	for _, kw := range obj.Keys() {
		entry := field + "." + kw
		raw, _ := obj.Raw(kw)
		var folder string
		if err := json.Unmarshal(raw, &folder); err != nil || strings.TrimSpace(string(raw)) == "null" {
			return nil, invalid(ErrRuleNotString, "rule folder must be a string", entry)
		}
		if strings.TrimSpace(kw) == "" || strings.TrimSpace(folder) == "" {
			return nil, invalid(ErrRuleEmpty, "rule keyword and folder cannot be empty", entry)
		}
		if err := g.Set(kw, folder); err != nil {
			return nil, invalid(ErrRuleInvalid, err.Error(), entry)
		}
	}
	return g, nil
}
