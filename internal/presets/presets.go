// Package presets loads the variety choices offered on the batch and counts forms
package presets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/canari/internal/cache"
	"github.com/ppiankov/canari/internal/docstore"
	"github.com/ppiankov/canari/internal/logging"
)

// VarietiesField is the presets document field holding the apple variety list
const VarietiesField = "appleVarietiesPresets"

// DefaultVarieties is offered whenever the presets document cannot be used
var DefaultVarieties = []string{"Honeycrisp", "Gala", "Fuji", "Granny Smith"}

var errMalformed = errors.New("malformed presets")

// Fetcher reads the presets document, memoising successful reads
type Fetcher struct {
	store      docstore.Store
	cache      cache.Cache
	ttl        time.Duration
	collection string
	document   string
	logger     logrus.FieldLogger
}

// NewFetcher creates a fetcher for collection/document. A nil cache disables memoisation.
func NewFetcher(store docstore.Store, c cache.Cache, ttl time.Duration, collection, document string, logger logrus.FieldLogger) *Fetcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Fetcher{
		store:      store,
		cache:      c,
		ttl:        ttl,
		collection: collection,
		document:   document,
		logger:     logger,
	}
}

func (f *Fetcher) key() string {
	return cache.Key(f.collection, f.document, VarietiesField)
}

// Varieties returns the configured variety list. It never fails: any read
// error, missing document or malformed value yields DefaultVarieties.
func (f *Fetcher) Varieties(ctx context.Context) []string {
	if f.cache != nil {
		if data, ok := f.cache.Get(f.key()); ok {
			var list []string
			if err := json.Unmarshal(data, &list); err == nil {
				return list
			}
		}
	}

	list, err := f.fetch(ctx)
	if err != nil {
		f.logger.WithFields(logrus.Fields{
			"collection": f.collection,
			"document":   f.document,
			"error":      err.Error(),
		}).Warn("using default varieties")
		return append([]string(nil), DefaultVarieties...)
	}

	if f.cache != nil {
		if data, err := json.Marshal(list); err == nil {
			_ = f.cache.Set(f.key(), data, f.ttl)
		}
	}
	return list
}

// Invalidate drops the memoised list so the next call reads the store
func (f *Fetcher) Invalidate() {
	if f.cache != nil {
		_ = f.cache.Delete(f.key())
	}
}

func (f *Fetcher) fetch(ctx context.Context) ([]string, error) {
	if f.store == nil {
		return nil, fmt.Errorf("%w: no document store", errMalformed)
	}
	doc, err := f.store.Get(ctx, f.collection, f.document)
	if err != nil {
		return nil, err
	}

	raw, ok := doc.Fields[VarietiesField].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a list", errMalformed, VarietiesField)
	}
	list := make([]string, 0, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %T", errMalformed, i, v)
		}
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", errMalformed, VarietiesField)
	}
	return list, nil
}
