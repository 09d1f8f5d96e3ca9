package rules

import (
	"bytes"
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gitlab.com/tozd/go/errors"
)

// ErrNotObject is returned when a JSON value expected to be an object is not.
var ErrNotObject = errors.Base("value is not a JSON object")

// OrderedObject is a decoded JSON object that remembers key order.
// A repeated key keeps its first position and its last value.
type OrderedObject struct {
	pairs *orderedmap.OrderedMap[string, json.RawMessage]
}

// DecodeOrderedObject decodes data, which must hold exactly one JSON object.
func DecodeOrderedObject(data []byte) (*OrderedObject, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Errorf("reading JSON: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, errors.WithStack(ErrNotObject)
	}

	pairs := orderedmap.New[string, json.RawMessage]()
	if err := pairs.UnmarshalJSON(raw); err != nil {
		return nil, errors.Errorf("reading JSON object: %w", err)
	}
	return &OrderedObject{pairs: pairs}, nil
}

// Keys returns the keys in document order.
func (o *OrderedObject) Keys() []string {
	keys := make([]string, 0, o.pairs.Len())
	for pair := o.pairs.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Raw returns the undecoded value at key.
func (o *OrderedObject) Raw(key string) (json.RawMessage, bool) {
	return o.pairs.Get(key)
}

// Has reports whether key is present.
func (o *OrderedObject) Has(key string) bool {
	_, ok := o.pairs.Get(key)
	return ok
}

// String decodes the value at key as a string.
func (o *OrderedObject) String(key string) (string, bool) {
	raw, ok := o.pairs.Get(key)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Object decodes the value at key as a nested ordered object.
func (o *OrderedObject) Object(key string) (*OrderedObject, error) {
	raw, ok := o.pairs.Get(key)
	if !ok {
		return nil, errors.Errorf("missing key %q", key)
	}
	return DecodeOrderedObject(raw)
}

// MarshalJSON writes the rules as a JSON object in priority order. Keys and
// folders are written without HTML escaping, which orderedmap's own
// MarshalJSON always applies.
func (g *Group) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range g.rules {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, r.Keyword); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSONString(&buf, r.Folder); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// GroupList is an ordered list of groups encoded as one JSON object keyed
// by group name.
type GroupList []*Group

// MarshalJSON implements json.Marshaler.
func (l GroupList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, g.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		b, err := g.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// GroupList returns every group of the store in order.
func (s *Store) GroupList() GroupList {
	out := make(GroupList, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.groups[name])
	}
	return out
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return errors.Errorf("encoding %q: %w", s, err)
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// EncodeIndented marshals v with four space indentation and without HTML
// escaping, followed by a newline.
func EncodeIndented(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, errors.Errorf("encoding JSON: %w", err)
	}
	return buf.Bytes(), nil
}
