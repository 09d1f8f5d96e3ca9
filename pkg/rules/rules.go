/*
Package rules holds sortitor's classification rules: named, ordered groups of
keyword to folder mappings, plus the pointer to the group currently in use.

A Store is plain in-memory data. It is owned by its caller, never shared
through package state, and persisted through Load and Save in file.go.

Basic usage:

	store := rules.NewStore()
	_ = store.AddRule("pdf", "Documents", "")
	_ = store.AddRule("invoice", "", "")   // folder defaults to "invoice"

	group, _ := store.Group(store.Current())
	folder, ok := rules.Match(group, "Invoice-2024.PDF") // "Documents", true

Insertion order is match priority. The first rule that matches a file name
wins, no matter how specific later rules are.
*/
package rules

import (
	"strings"
)

// DefaultGroup is the reserved group that always exists.
const DefaultGroup = "default"

// LegacyDefaultGroup is the name the default group had in older rule files.
const LegacyDefaultGroup = "默认规则组"

// CanonicalGroupName maps the legacy default group name onto DefaultGroup.
func CanonicalGroupName(name string) string {
	if name == LegacyDefaultGroup {
		return DefaultGroup
	}
	return name
}

// Rule maps a keyword to a destination folder name.
type Rule struct {
	Keyword string `json:"keyword" yaml:"keyword"`
	Folder  string `json:"folder" yaml:"folder"`
}

// Group is a named, ordered collection of rules with unique keywords.
type Group struct {
	Name  string
	rules []Rule
	index map[string]int
}

// NewGroup returns an empty group.
func NewGroup(name string) *Group {
	return &Group{
		Name:  name,
		index: make(map[string]int),
	}
}

// SanitizeFolder trims the folder name and replaces path separators with "_".
func SanitizeFolder(folder string) string {
	folder = strings.TrimSpace(folder)
	folder = strings.ReplaceAll(folder, "/", "_")
	return strings.ReplaceAll(folder, "\\", "_")
}

// Set adds or replaces the rule for keyword. A replaced rule keeps its
// original position. An empty folder defaults to the keyword.
func (g *Group) Set(keyword, folder string) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return newError(ErrEmptyKeyword, "keyword cannot be empty")
	}
	if strings.TrimSpace(folder) == "" {
		folder = keyword
	}
	folder = SanitizeFolder(folder)
	if folder == "" || folder == "." || folder == ".." {
		return newError(ErrInvalidFolder, "invalid folder name %q for keyword %q", folder, keyword)
	}

	if i, ok := g.index[keyword]; ok {
		g.rules[i].Folder = folder
		return nil
	}
	g.index[keyword] = len(g.rules)
	g.rules = append(g.rules, Rule{Keyword: keyword, Folder: folder})
	return nil
}

// Delete removes the rule for keyword and reports whether it existed.
func (g *Group) Delete(keyword string) bool {
	keyword = strings.TrimSpace(keyword)
	i, ok := g.index[keyword]
	if !ok {
		return false
	}
	g.rules = append(g.rules[:i], g.rules[i+1:]...)
	delete(g.index, keyword)
	for j := i; j < len(g.rules); j++ {
		g.index[g.rules[j].Keyword] = j
	}
	return true
}

// Get returns the folder for keyword.
func (g *Group) Get(keyword string) (string, bool) {
	keyword = strings.TrimSpace(keyword)
	i, ok := g.index[keyword]
	if !ok {
		return "", false
	}
	return g.rules[i].Folder, true
}

// Rules returns a copy of the rules in priority order.
func (g *Group) Rules() []Rule {
	out := make([]Rule, len(g.rules))
	copy(out, g.rules)
	return out
}

// Len returns the number of rules.
func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	return len(g.rules)
}

// Clone returns a deep copy of the group.
func (g *Group) Clone() *Group {
	c := NewGroup(g.Name)
	c.rules = g.Rules()
	for k, v := range g.index {
		c.index[k] = v
	}
	return c
}

// Store is the set of rule groups plus the current group pointer.
// Store is not safe for concurrent use.
type Store struct {
	order   []string
	groups  map[string]*Group
	current string
}

// NewStore returns a store holding only the empty default group.
func NewStore() *Store {
	s := &Store{groups: make(map[string]*Group)}
	s.ensureDefault()
	s.current = DefaultGroup
	return s
}

func (s *Store) ensureDefault() {
	if _, ok := s.groups[DefaultGroup]; ok {
		return
	}
	s.order = append([]string{DefaultGroup}, s.order...)
	s.groups[DefaultGroup] = NewGroup(DefaultGroup)
}

// resolve maps an empty name to the current group and the legacy default
// name to DefaultGroup.
func (s *Store) resolve(name string) string {
	if name == "" {
		return s.current
	}
	return CanonicalGroupName(name)
}

// Current returns the name of the current group.
func (s *Store) Current() string {
	return s.current
}

// Groups returns group names in insertion order.
func (s *Store) Groups() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Group returns the named group. The returned value is owned by the store.
func (s *Store) Group(name string) (*Group, bool) {
	g, ok := s.groups[name]
	return g, ok
}

// Snapshot returns a deep copy of the named group, or the current group
// when name is empty.
func (s *Store) Snapshot(name string) (*Group, error) {
	name = s.resolve(name)
	g, ok := s.groups[name]
	if !ok {
		return nil, newError(ErrGroupNotFound, "rule group %q does not exist", name)
	}
	return g.Clone(), nil
}

// AddRule adds or replaces a rule in group, creating the group when it does
// not exist yet. An empty group name targets the current group.
func (s *Store) AddRule(keyword, folder, group string) error {
	group = s.resolve(group)
	g, ok := s.groups[group]
	if !ok {
		g = NewGroup(group)
		if err := g.Set(keyword, folder); err != nil {
			return err
		}
		s.order = append(s.order, group)
		s.groups[group] = g
		return nil
	}
	return g.Set(keyword, folder)
}

// DeleteRule removes keyword from group. An empty group name targets the
// current group.
func (s *Store) DeleteRule(keyword, group string) error {
	group = s.resolve(group)
	g, ok := s.groups[group]
	if !ok {
		return newError(ErrGroupNotFound, "rule group %q does not exist", group)
	}
	if !g.Delete(keyword) {
		return newError(ErrRuleNotFound, "keyword %q not found in group %q", keyword, group)
	}
	return nil
}

// ListRules returns the rules of group in priority order. An empty group
// name targets the current group.
func (s *Store) ListRules(group string) ([]Rule, error) {
	group = s.resolve(group)
	g, ok := s.groups[group]
	if !ok {
		return nil, newError(ErrGroupNotFound, "rule group %q does not exist", group)
	}
	return g.Rules(), nil
}

// AddGroup creates an empty group.
func (s *Store) AddGroup(name string) error {
	name = CanonicalGroupName(strings.TrimSpace(name))
	if name == "" {
		return newError(ErrEmptyGroupName, "group name cannot be empty")
	}
	if _, ok := s.groups[name]; ok {
		return newError(ErrGroupExists, "rule group %q already exists", name)
	}
	s.order = append(s.order, name)
	s.groups[name] = NewGroup(name)
	return nil
}

// RenameGroup renames a group in place. The default group cannot be renamed
// and no group can be renamed to the default name.
func (s *Store) RenameGroup(oldName, newName string) error {
	oldName = CanonicalGroupName(oldName)
	newName = CanonicalGroupName(strings.TrimSpace(newName))
	if oldName == DefaultGroup || newName == DefaultGroup {
		return newError(ErrDefaultReserved, "the default rule group cannot be renamed")
	}
	if newName == "" {
		return newError(ErrEmptyGroupName, "group name cannot be empty")
	}
	g, ok := s.groups[oldName]
	if !ok {
		return newError(ErrGroupNotFound, "rule group %q does not exist", oldName)
	}
	if oldName == newName {
		return nil
	}
	if _, ok := s.groups[newName]; ok {
		return newError(ErrGroupExists, "rule group %q already exists", newName)
	}

	for i, n := range s.order {
		if n == oldName {
			s.order[i] = newName
			break
		}
	}
	delete(s.groups, oldName)
	g.Name = newName
	s.groups[newName] = g
	if s.current == oldName {
		s.current = newName
	}
	return nil
}

// DeleteGroup removes a group. Deleting the current group resets the
// current pointer to the default group.
func (s *Store) DeleteGroup(name string) error {
	name = CanonicalGroupName(name)
	if name == DefaultGroup {
		return newError(ErrDefaultReserved, "the default rule group cannot be deleted")
	}
	if _, ok := s.groups[name]; !ok {
		return newError(ErrGroupNotFound, "rule group %q does not exist", name)
	}
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	delete(s.groups, name)
	if s.current == name {
		s.current = DefaultGroup
	}
	return nil
}

// SetCurrentGroup points the store at an existing group.
func (s *Store) SetCurrentGroup(name string) error {
	name = CanonicalGroupName(name)
	if _, ok := s.groups[name]; !ok {
		return newError(ErrGroupNotFound, "rule group %q does not exist", name)
	}
	s.current = name
	return nil
}

// ReplaceGroup installs g under its name, replacing any existing group with
// that name in place or appending it otherwise.
func (s *Store) ReplaceGroup(g *Group) {
	c := g.Clone()
	if _, ok := s.groups[c.Name]; !ok {
		s.order = append(s.order, c.Name)
	}
	s.groups[c.Name] = c
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	c := &Store{
		order:   s.Groups(),
		groups:  make(map[string]*Group, len(s.groups)),
		current: s.current,
	}
	for name, g := range s.groups {
		c.groups[name] = g.Clone()
	}
	return c
}

// Reset replaces the content of s with that of other. The default group is
// re-created when other lacks it and the current pointer falls back to it
// when its group disappeared.
func (s *Store) Reset(other *Store) {
	c := other.Clone()
	s.order = c.order
	s.groups = c.groups
	s.ensureDefault()
	if _, ok := s.groups[c.current]; ok {
		s.current = c.current
	} else if _, ok := s.groups[s.current]; !ok {
		s.current = DefaultGroup
	}
}

// RuleCount returns the number of rules across all groups.
func (s *Store) RuleCount() int {
	n := 0
	for _, g := range s.groups {
		n += g.Len()
	}
	return n
}
