package rules

import (
	"os"
	"path/filepath"

	"github.com/sonemaro/sortitor/pkg/logger"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// SchemaKind tags which shape a rules file was written in.
type SchemaKind int

const (
	// SchemaFlat is the legacy {"keyword": "folder"} shape.
	SchemaFlat SchemaKind = iota

	// SchemaGrouped is {"rule_groups": {...}, "current_group": "..."}.
	SchemaGrouped
)

func (k SchemaKind) String() string {
	if k == SchemaFlat {
		return "flat"
	}
	return "grouped"
}

// FileSchema is a decoded rules file. Flat is set for SchemaFlat, Groups and
// CurrentGroup for SchemaGrouped.
type FileSchema struct {
	Kind         SchemaKind
	Flat         *Group
	Groups       []*Group
	CurrentGroup string
}

type groupedFile struct {
	RuleGroups   GroupList `json:"rule_groups"`
	CurrentGroup string    `json:"current_group"`
}

// DecodeFile decodes the content of a rules file in either schema.
func DecodeFile(data []byte) (FileSchema, error) {
	obj, err := DecodeOrderedObject(data)
	if err != nil {
		return FileSchema{}, err
	}

	if !obj.Has("rule_groups") {
		g, err := decodeGroup(DefaultGroup, obj)
		if err != nil {
			return FileSchema{}, err
		}
		return FileSchema{Kind: SchemaFlat, Flat: g}, nil
	}

	groupsObj, err := obj.Object("rule_groups")
	if err != nil {
		return FileSchema{}, errors.Errorf("rule_groups: %w", err)
	}
	schema := FileSchema{Kind: SchemaGrouped}
	for _, name := range groupsObj.Keys() {
		rulesObj, err := groupsObj.Object(name)
		if err != nil {
			return FileSchema{}, errors.Errorf("rule group %q: %w", name, err)
		}
		g, err := decodeGroup(name, rulesObj)
		if err != nil {
			return FileSchema{}, err
		}
		schema.Groups = append(schema.Groups, g)
	}
	if obj.Has("current_group") {
		current, ok := obj.String("current_group")
		if !ok {
			return FileSchema{}, errors.New("current_group is not a string")
		}
		schema.CurrentGroup = current
	}
	return schema, nil
}

func decodeGroup(name string, obj *OrderedObject) (*Group, error) {
	g := NewGroup(name)
	for _, kw := range obj.Keys() {
		folder, ok := obj.String(kw)
		if !ok {
			return nil, errors.Errorf("rule group %q: folder for keyword %q is not a string", name, kw)
		}
		if err := g.Set(kw, folder); err != nil {
			return nil, errors.Errorf("rule group %q: %w", name, err)
		}
	}
	return g, nil
}

// Migrate converts a flat schema into the grouped schema, with the flat
// rules becoming the default group. Grouped schemas are returned unchanged.
func (f FileSchema) Migrate() FileSchema {
	if f.Kind == SchemaGrouped {
		return f
	}
	flat := f.Flat
	if flat == nil {
		flat = NewGroup(DefaultGroup)
	}
	flat.Name = DefaultGroup
	return FileSchema{
		Kind:         SchemaGrouped,
		Groups:       []*Group{flat},
		CurrentGroup: DefaultGroup,
	}
}

// Store builds a store from the schema. The legacy default group name is
// mapped onto DefaultGroup, the default group is added when missing and an
// unknown current group falls back to it.
func (f FileSchema) Store() *Store {
	f = f.Migrate()
	s := &Store{groups: make(map[string]*Group)}
	for _, g := range f.Groups {
		g = g.Clone()
		if g.Name == LegacyDefaultGroup {
			if _, taken := s.groups[DefaultGroup]; taken {
				continue
			}
			g.Name = DefaultGroup
		}
		if _, dup := s.groups[g.Name]; dup {
			continue
		}
		s.order = append(s.order, g.Name)
		s.groups[g.Name] = g
	}
	s.ensureDefault()

	current := f.CurrentGroup
	if current == LegacyDefaultGroup {
		current = DefaultGroup
	}
	if _, ok := s.groups[current]; !ok {
		current = DefaultGroup
	}
	s.current = current
	return s
}

// Load reads the rules file at path. A missing file yields a fresh store.
// A corrupt file yields a fresh store and a warning; it is never fatal.
// Only I/O errors other than "not exist" are returned.
func Load(fs afero.Fs, path string, log logger.Logger) (*Store, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			log.WithFields(logger.Fields{
				"path": path,
			}).Info("Rules file not found, starting with empty rules")
			return NewStore(), nil
		}
		return nil, errors.Errorf("reading rules file %s: %w", path, err)
	}

	schema, err := DecodeFile(data)
	if err != nil {
		log.WithFields(logger.Fields{
			"path":  path,
			"error": err.Error(),
		}).Warn("Rules file is corrupt, starting with empty rules")
		return NewStore(), nil
	}

	store := schema.Store()
	log.WithFields(logger.Fields{
		"path":    path,
		"schema":  schema.Kind.String(),
		"groups":  len(store.order),
		"rules":   store.RuleCount(),
		"current": store.current,
	}).Debug("Rules loaded")

	return store, nil
}

// Encode renders the store in the grouped schema.
func Encode(s *Store) ([]byte, error) {
	return EncodeIndented(groupedFile{
		RuleGroups:   s.GroupList(),
		CurrentGroup: s.current,
	})
}

// Save writes the store to path in the grouped schema, creating parent
// directories as needed. The file is replaced through a temporary sibling.
func Save(fs afero.Fs, path string, s *Store) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Errorf("creating rules directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		return errors.Errorf("writing rules file: %w", err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return errors.Errorf("replacing rules file: %w", err)
	}
	return nil
}
