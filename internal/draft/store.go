// Package draft holds the in-progress batch: N apple items plus batch metadata.
package draft

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ppiankov/canari/internal/catalog"
	"github.com/ppiankov/canari/internal/model"
)

// Item is the set of values entered for one apple slot
type Item struct {
	Flags  map[string]bool   `json:"flags"`  // Boolean fields
	Values map[string]string `json:"values"` // Text and Numeric fields; numerics hold canonical decimal text
}

// Clone returns a deep copy
func (it Item) Clone() Item {
	out := Item{
		Flags:  make(map[string]bool, len(it.Flags)),
		Values: make(map[string]string, len(it.Values)),
	}
	for k, v := range it.Flags {
		out.Flags[k] = v
	}
	for k, v := range it.Values {
		out.Values[k] = v
	}
	return out
}

// HasData reports whether any text or numeric field is non-blank.
// Boolean flags alone do not count.
func (it Item) HasData() bool {
	for _, v := range it.Values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// Store is the mutable draft. Updates are serialised and applied in call order.
type Store struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	meta    model.BatchMetadata
	items   []Item
}

// New creates a store with itemCount empty items
func New(cat *catalog.Catalog, itemCount int) (*Store, error) {
	if cat == nil {
		return nil, fmt.Errorf("%w: nil catalog", model.ErrInvalidConfiguration)
	}
	if itemCount <= 0 {
		return nil, fmt.Errorf("%w: item count must be positive, got %d", model.ErrInvalidConfiguration, itemCount)
	}
	s := &Store{catalog: cat}
	s.items = s.emptyItems(itemCount)
	return s, nil
}

func (s *Store) emptyItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		it := Item{Flags: map[string]bool{}, Values: map[string]string{}}
		for _, key := range s.catalog.StorageKeys() {
			f, _ := s.catalog.Lookup(key)
			if f.Kind == catalog.Boolean {
				it.Flags[key] = false
			} else {
				it.Values[key] = ""
			}
		}
		items[i] = it
	}
	return items
}

// Catalog returns the catalog the store was built with
func (s *Store) Catalog() *catalog.Catalog { return s.catalog }

// Len is the fixed item count
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// UpdateField applies u to the item at index.
// Nothing is written unless the whole update is valid.
func (s *Store) UpdateField(index int, u Update) error {
	w, err := plan(s.catalog, u)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) {
		return fmt.Errorf("%w: %d not in [0,%d)", model.ErrIndexOutOfRange, index, len(s.items))
	}
	it := s.items[index].Clone()
	for k, v := range w.flags {
		it.Flags[k] = v
	}
	for k, v := range w.values {
		it.Values[k] = v
	}
	s.items[index] = it
	return nil
}

// UpdateMetadata sets one metadata field
func (s *Store) UpdateMetadata(field model.MetadataField, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.meta.With(field, value)
	if err != nil {
		return err
	}
	s.meta = meta
	return nil
}

// Metadata returns the current metadata
func (s *Store) Metadata() model.BatchMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// Snapshot returns copies of the metadata and items.
// Later mutations are not visible through a snapshot.
func (s *Store) Snapshot() (model.BatchMetadata, []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]Item, len(s.items))
	for i, it := range s.items {
		items[i] = it.Clone()
	}
	return s.meta, items
}

// Reset restores the freshly initialised state
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.meta = model.BatchMetadata{}
	s.items = s.emptyItems(len(s.items))
}

type writes struct {
	flags  map[string]bool
	values map[string]string
}

func plan(cat *catalog.Catalog, u Update) (writes, error) {
	w := writes{flags: map[string]bool{}, values: map[string]string{}}

	switch u := u.(type) {
	case SetFlag:
		f, ok := cat.Lookup(u.Key)
		if !ok {
			return w, model.NewValidationError(model.ErrUnknownField, u.Key)
		}
		if f.Kind != catalog.Boolean {
			return w, fmt.Errorf("%w: %s is %s", model.ErrKindMismatch, u.Key, f.Kind)
		}
		w.flags[u.Key] = u.Value

	case SetSingle:
		f, ok := cat.Lookup(u.Key)
		if !ok {
			return w, model.NewValidationError(model.ErrUnknownField, u.Key)
		}
		v, err := normalize(f, u.Value)
		if err != nil {
			return w, err
		}
		w.values[u.Key] = v

	case SetBooleanPair:
		e, _, ok := cat.EntryByKey(u.Key)
		if !ok {
			return w, model.NewValidationError(model.ErrUnknownField, u.Key)
		}
		if e.Kind != catalog.BooleanPair {
			return w, fmt.Errorf("%w: %s is %s", model.ErrKindMismatch, u.Key, e.Kind)
		}
		w.flags[e.Fields[0].Key] = u.First
		w.flags[e.Fields[1].Key] = u.Second

	case SetNumericPair:
		e, _, ok := cat.EntryByKey(u.Key)
		if !ok {
			return w, model.NewValidationError(model.ErrUnknownField, u.Key)
		}
		if e.Kind != catalog.NumericPair {
			return w, fmt.Errorf("%w: %s is %s", model.ErrKindMismatch, u.Key, e.Kind)
		}
		for i, in := range []string{u.First, u.Second} {
			f, _ := cat.Lookup(e.Fields[i].Key)
			v, err := normalize(f, in)
			if err != nil {
				return w, err
			}
			w.values[f.Key] = v
		}

	default:
		return w, fmt.Errorf("%w: unsupported update %T", model.ErrKindMismatch, u)
	}

	return w, nil
}

func normalize(f catalog.Field, in string) (string, error) {
	switch f.Kind {
	case catalog.Text:
		return in, nil
	case catalog.Numeric:
		m, err := model.ParseMeasure(in)
		if err != nil {
			return "", model.NewValidationError(err, f.Key)
		}
		return m.String(), nil
	default:
		return "", fmt.Errorf("%w: %s is %s", model.ErrKindMismatch, f.Key, f.Kind)
	}
}
