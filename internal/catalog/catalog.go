// Package catalog describes the per-apple attributes collected by the batch wizard.
// Entry order defines step order; the wizard never hardcodes a step count.
package catalog

import (
	"fmt"

	"github.com/ppiankov/canari/internal/model"
)

// Kind is the input affordance of an entry
type Kind int

const (
	Boolean     Kind = iota // single checkbox
	BooleanPair             // two related checkboxes edited together
	Text                    // free text
	Numeric                 // decimal number
	NumericPair             // two related numbers edited together
)

func (k Kind) String() string {
	switch k {
	case Boolean:
		return "boolean"
	case BooleanPair:
		return "boolean-pair"
	case Text:
		return "text"
	case Numeric:
		return "numeric"
	case NumericPair:
		return "numeric-pair"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind name in JSON output
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText parses a kind name written by MarshalText
func (k *Kind) UnmarshalText(text []byte) error {
	for _, candidate := range []Kind{Boolean, BooleanPair, Text, Numeric, NumericPair} {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown field kind %q", text)
}

// IsPair reports whether the kind fans out into two stored fields
func (k Kind) IsPair() bool { return k == BooleanPair || k == NumericPair }

// Storage returns the kind of each stored field for this entry kind
func (k Kind) Storage() Kind {
	switch k {
	case BooleanPair:
		return Boolean
	case NumericPair:
		return Numeric
	default:
		return k
	}
}

// Group tells a renderer whether one or two inputs appear per apple row
type Group string

const (
	Single Group = "single"
	Double Group = "double"
)

// SubField is one half of a paired entry
type SubField struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Entry is one wizard step
type Entry struct {
	Key    string     `json:"key"`
	Label  string     `json:"label"`
	Kind   Kind       `json:"kind"`
	Group  Group      `json:"group"`
	Fields []SubField `json:"fields,omitempty"` // exactly two for pair kinds
}

// StorageKeys returns the item keys this entry writes
func (e Entry) StorageKeys() []string {
	if !e.Kind.IsPair() {
		return []string{e.Key}
	}
	return []string{e.Fields[0].Key, e.Fields[1].Key}
}

// Field describes a single stored attribute
type Field struct {
	Key   string
	Kind  Kind // Boolean, Text or Numeric
	Entry int  // index of the owning entry
}

// Catalog is an immutable, validated, ordered set of entries
type Catalog struct {
	entries []Entry
	fields  map[string]Field
	order   []string // storage keys in entry order
}

// New validates entries and builds a catalog.
// Misconfiguration is a programmer error and yields ErrInvalidConfiguration.
func New(entries ...Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: catalog has no entries", model.ErrInvalidConfiguration)
	}

	c := &Catalog{
		entries: make([]Entry, len(entries)),
		fields:  make(map[string]Field),
	}
	entryKeys := make(map[string]bool)

	for i, e := range entries {
		if e.Key == "" {
			return nil, fmt.Errorf("%w: entry %d has no key", model.ErrInvalidConfiguration, i)
		}
		if entryKeys[e.Key] {
			return nil, fmt.Errorf("%w: duplicate entry key %q", model.ErrInvalidConfiguration, e.Key)
		}
		entryKeys[e.Key] = true

		wantGroup := Single
		if e.Kind.IsPair() {
			wantGroup = Double
			if len(e.Fields) != 2 {
				return nil, fmt.Errorf("%w: %q needs two sub-fields, has %d", model.ErrInvalidConfiguration, e.Key, len(e.Fields))
			}
		} else if len(e.Fields) != 0 {
			return nil, fmt.Errorf("%w: %q is %s and cannot have sub-fields", model.ErrInvalidConfiguration, e.Key, e.Kind)
		}
		if e.Kind < Boolean || e.Kind > NumericPair {
			return nil, fmt.Errorf("%w: %q has unknown kind %d", model.ErrInvalidConfiguration, e.Key, e.Kind)
		}
		if e.Group == "" {
			e.Group = wantGroup
		}
		if e.Group != wantGroup {
			return nil, fmt.Errorf("%w: %q is %s but grouped %s", model.ErrInvalidConfiguration, e.Key, e.Kind, e.Group)
		}

		e.Fields = append([]SubField(nil), e.Fields...)
		c.entries[i] = e

		for _, key := range e.StorageKeys() {
			if key == "" {
				return nil, fmt.Errorf("%w: %q has an empty sub-field key", model.ErrInvalidConfiguration, e.Key)
			}
			if _, dup := c.fields[key]; dup {
				return nil, fmt.Errorf("%w: storage key %q used twice", model.ErrInvalidConfiguration, key)
			}
			c.fields[key] = Field{Key: key, Kind: e.Kind.Storage(), Entry: i}
			c.order = append(c.order, key)
		}
	}

	// An entry key that is not also a storage key (pair entries) must not shadow one
	for _, e := range c.entries {
		if f, ok := c.fields[e.Key]; ok && f.Entry != c.indexOf(e.Key) {
			return nil, fmt.Errorf("%w: entry key %q collides with a stored field", model.ErrInvalidConfiguration, e.Key)
		}
	}

	return c, nil
}

func (c *Catalog) indexOf(entryKey string) int {
	for i, e := range c.entries {
		if e.Key == entryKey {
			return i
		}
	}
	return -1
}

// Len is the number of attribute steps
func (c *Catalog) Len() int { return len(c.entries) }

// Steps is the total wizard step count: metadata + one per entry + review
func (c *Catalog) Steps() int { return len(c.entries) + 2 }

// Entry returns the i-th entry
func (c *Catalog) Entry(i int) (Entry, bool) {
	if i < 0 || i >= len(c.entries) {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Entries returns a copy of all entries in step order
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// EntryByKey finds an entry by its key
func (c *Catalog) EntryByKey(key string) (Entry, int, bool) {
	i := c.indexOf(key)
	if i < 0 {
		return Entry{}, -1, false
	}
	return c.entries[i], i, true
}

// Lookup resolves a stored field key
func (c *Catalog) Lookup(key string) (Field, bool) {
	f, ok := c.fields[key]
	return f, ok
}

// StorageKeys lists every stored field key in step order
func (c *Catalog) StorageKeys() []string {
	return append([]string(nil), c.order...)
}
