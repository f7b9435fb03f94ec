package presets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/ppiankov/canari/internal/cache"
	"github.com/ppiankov/canari/internal/docstore"
)

const (
	testCollection = "companyData/demo/assets/presets"
	testDocument   = "presets"
)

func newFetcher(s docstore.Store, c cache.Cache) (*Fetcher, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	return NewFetcher(s, c, time.Minute, testCollection, testDocument, logger), hook
}

func TestVarieties_FromStore(t *testing.T) {
	s := docstore.NewMemoryStore()
	_ = s.Put(testCollection, testDocument, docstore.Fields{VarietiesField: []any{"Gala", " Envy ", "Pink Lady"}})

	f, hook := newFetcher(s, nil)
	got := f.Varieties(context.Background())

	if diff := cmp.Diff([]string{"Gala", "Envy", "Pink Lady"}, got); diff != "" {
		t.Errorf("unexpected varieties (-want +got):\n%s", diff)
	}
	if len(hook.Entries) != 0 {
		t.Errorf("expected no log entries, got %d", len(hook.Entries))
	}
}

func TestVarieties_FallbackOnStoreError(t *testing.T) {
	s := docstore.NewMemoryStore()
	s.FailWith(errors.New("network unreachable"))

	f, hook := newFetcher(s, nil)
	got := f.Varieties(context.Background())

	if diff := cmp.Diff(DefaultVarieties, got); diff != "" {
		t.Errorf("expected defaults (-want +got):\n%s", diff)
	}
	if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.WarnLevel {
		t.Error("expected a warning to be logged")
	}
}

func TestVarieties_FallbackOnBadDocument(t *testing.T) {
	tests := []struct {
		name   string
		fields docstore.Fields
	}{
		{"missing document", nil},
		{"missing field", docstore.Fields{"other": []any{"Gala"}}},
		{"not a list", docstore.Fields{VarietiesField: "Gala"}},
		{"non-string element", docstore.Fields{VarietiesField: []any{"Gala", 3}}},
		{"empty list", docstore.Fields{VarietiesField: []any{}}},
		{"blank strings", docstore.Fields{VarietiesField: []any{" ", ""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := docstore.NewMemoryStore()
			if tt.fields != nil {
				_ = s.Put(testCollection, testDocument, tt.fields)
			}
			f, _ := newFetcher(s, nil)

			if diff := cmp.Diff(DefaultVarieties, f.Varieties(context.Background())); diff != "" {
				t.Errorf("expected defaults (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVarieties_DefaultsAreCopied(t *testing.T) {
	f, _ := newFetcher(nil, nil)
	got := f.Varieties(context.Background())
	got[0] = "Changed"

	if DefaultVarieties[0] != "Honeycrisp" {
		t.Error("caller modified the shared default list")
	}
}

func TestVarieties_Memoised(t *testing.T) {
	s := docstore.NewMemoryStore()
	_ = s.Put(testCollection, testDocument, docstore.Fields{VarietiesField: []any{"Gala"}})
	c := cache.NewMemoryCache(time.Minute, time.Minute)

	f, _ := newFetcher(s, c)
	_ = f.Varieties(context.Background())

	// store now fails but the cached list is served
	s.FailWith(errors.New("offline"))
	if diff := cmp.Diff([]string{"Gala"}, f.Varieties(context.Background())); diff != "" {
		t.Errorf("expected cached list (-want +got):\n%s", diff)
	}

	f.Invalidate()
	if diff := cmp.Diff(DefaultVarieties, f.Varieties(context.Background())); diff != "" {
		t.Errorf("expected defaults after invalidation (-want +got):\n%s", diff)
	}
}

func TestVarieties_FallbackNotCached(t *testing.T) {
	s := docstore.NewMemoryStore()
	s.FailWith(errors.New("offline"))
	c := cache.NewMemoryCache(time.Minute, time.Minute)

	f, _ := newFetcher(s, c)
	_ = f.Varieties(context.Background())
	if c.Len() != 0 {
		t.Error("fallback list must not be cached")
	}

	s.FailWith(nil)
	_ = s.Put(testCollection, testDocument, docstore.Fields{VarietiesField: []any{"Fuji"}})
	if diff := cmp.Diff([]string{"Fuji"}, f.Varieties(context.Background())); diff != "" {
		t.Errorf("expected recovered list (-want +got):\n%s", diff)
	}
}

func TestNewFetcher_NilLogger(t *testing.T) {
	f := NewFetcher(nil, nil, time.Minute, testCollection, testDocument, nil)
	if diff := cmp.Diff(DefaultVarieties, f.Varieties(context.Background())); diff != "" {
		t.Errorf("expected defaults without a logger (-want +got):\n%s", diff)
	}
}
