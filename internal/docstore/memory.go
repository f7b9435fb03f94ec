package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps documents in process memory. Used by default and in tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	now         func() time.Time
	failWith    error // when set, every call fails with it
}

type memCollection struct {
	docs  map[string][]byte // encoded envelopes
	order []string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memCollection),
		now:         time.Now,
	}
}

// SetClock replaces the creation-time source
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *MemoryStore) collection(name string) *memCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[string][]byte)}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failWith != nil {
		return Document{}, s.failWith
	}
	c, ok := s.collections[collection]
	if !ok {
		return Document{}, notFound(collection, id)
	}
	data, ok := c.docs[id]
	if !ok {
		return Document{}, notFound(collection, id)
	}
	_, doc, err := openEnvelope(data)
	return doc, err
}

func (s *MemoryStore) Create(ctx context.Context, collection string, fields Fields) (string, error) {
	ids, err := s.CreateMany(ctx, collection, []Fields{fields})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// CreateMany is atomic: either every document is stored or none is
func (s *MemoryStore) CreateMany(ctx context.Context, collection string, docs []Fields) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return nil, s.failWith
	}

	now := s.now()
	ids := make([]string, len(docs))
	encoded := make([][]byte, len(docs))
	for i, f := range docs {
		ids[i] = uuid.NewString()
		data, err := newEnvelope(ids[i], now, i, f)
		if err != nil {
			return nil, err
		}
		encoded[i] = data
	}

	c := s.collection(collection)
	for i, id := range ids {
		c.docs[id] = encoded[i]
		c.order = append(c.order, id)
	}
	return ids, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, patch Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return s.failWith
	}
	c, ok := s.collections[collection]
	if !ok {
		return notFound(collection, id)
	}
	data, ok := c.docs[id]
	if !ok {
		return notFound(collection, id)
	}
	env, doc, err := openEnvelope(data)
	if err != nil {
		return err
	}
	out, err := newEnvelope(id, env.CreatedAt, env.Pos, merge(doc.Fields, patch))
	if err != nil {
		return err
	}
	c.docs[id] = out
	return nil
}

func (s *MemoryStore) List(ctx context.Context, collection string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failWith != nil {
		return nil, s.failWith
	}
	c, ok := s.collections[collection]
	if !ok {
		return []Document{}, nil
	}
	out := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		_, doc, err := openEnvelope(c.docs[id])
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

// Put stores a document under a caller-chosen id, replacing any previous body.
// Used to seed fixed documents such as presets.
func (s *MemoryStore) Put(collection, id string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := newEnvelope(id, s.now(), 0, fields)
	if err != nil {
		return err
	}
	c := s.collection(collection)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = data
	return nil
}
