package cache

import "time"

// Layered reads through an ordered list of caches, nearest first, and
// promotes hits into the layers above the one that answered
type Layered struct {
	layers []Cache
}

// NewLayered stacks the given caches. Nil layers are skipped.
func NewLayered(layers ...Cache) *Layered {
	l := &Layered{}
	for _, c := range layers {
		if c != nil {
			l.layers = append(l.layers, c)
		}
	}
	return l
}

func (l *Layered) Get(key string) ([]byte, bool) {
	for i, c := range l.layers {
		val, ok := c.Get(key)
		if !ok {
			continue
		}
		for _, above := range l.layers[:i] {
			_ = above.Set(key, val, 0)
		}
		return val, true
	}
	return nil, false
}

// Set writes every layer and returns the first failure
func (l *Layered) Set(key string, value []byte, ttl time.Duration) error {
	var first error
	for _, c := range l.layers {
		if err := c.Set(key, value, ttl); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (l *Layered) Delete(key string) error {
	var first error
	for _, c := range l.layers {
		if err := c.Delete(key); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (l *Layered) Clear() error {
	var first error
	for _, c := range l.layers {
		if err := c.Clear(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
