// Package storetest is a behaviour suite every docstore backend must pass
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/ppiankov/canari/internal/docstore"
	"github.com/ppiankov/canari/internal/model"
)

// Run exercises s. Each subtest uses its own collection so backends may share state.
func Run(t *testing.T, s docstore.Store) {
	t.Helper()
	ctx := context.Background()

	collection := func() string { return "test/" + uuid.NewString() + "/docs" }

	t.Run("CreateGet", func(t *testing.T) {
		c := collection()
		id, err := s.Create(ctx, c, docstore.Fields{"createdBy": "Ana", "weight": 150.5, "tags": []any{"a"}})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if id == "" {
			t.Fatal("expected an id")
		}

		doc, err := s.Get(ctx, c, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if doc.ID != id || doc.CreatedAt.IsZero() {
			t.Errorf("unexpected identity %q %v", doc.ID, doc.CreatedAt)
		}
		if doc.Fields["createdBy"] != "Ana" {
			t.Errorf("expected createdBy Ana, got %v", doc.Fields["createdBy"])
		}
		if n, ok := doc.Fields["weight"].(json.Number); !ok || n.String() != "150.5" {
			t.Errorf("expected weight json.Number 150.5, got %#v", doc.Fields["weight"])
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := s.Get(ctx, collection(), "nope")
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListCreationOrder", func(t *testing.T) {
		c := collection()
		var want []string
		first, err := s.CreateMany(ctx, c, []docstore.Fields{{"n": 1}, {"n": 2}, {"n": 3}})
		if err != nil {
			t.Fatalf("CreateMany: %v", err)
		}
		want = append(want, first...)
		id, err := s.Create(ctx, c, docstore.Fields{"n": 4})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		want = append(want, id)

		docs, err := s.List(ctx, c)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(docs) != len(want) {
			t.Fatalf("expected %d documents, got %d", len(want), len(docs))
		}
		for i, d := range docs {
			if d.ID != want[i] {
				t.Errorf("position %d: expected %s, got %s", i, want[i], d.ID)
			}
			if fmt.Sprint(d.Fields["n"]) != fmt.Sprint(i+1) {
				t.Errorf("position %d: expected n=%d, got %v", i, i+1, d.Fields["n"])
			}
		}
	})

	t.Run("ListEmpty", func(t *testing.T) {
		docs, err := s.List(ctx, collection())
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(docs) != 0 {
			t.Errorf("expected no documents, got %d", len(docs))
		}
	})

	t.Run("UpdateMerges", func(t *testing.T) {
		c := collection()
		id, err := s.Create(ctx, c, docstore.Fields{"a": "1", "b": "2"})
		if err != nil {
			t.Fatal(err)
		}
		before, _ := s.Get(ctx, c, id)

		if err := s.Update(ctx, c, id, docstore.Fields{"b": "3", "c": "4"}); err != nil {
			t.Fatalf("Update: %v", err)
		}
		doc, err := s.Get(ctx, c, id)
		if err != nil {
			t.Fatal(err)
		}
		for k, v := range map[string]string{"a": "1", "b": "3", "c": "4"} {
			if doc.Fields[k] != v {
				t.Errorf("%s: expected %s, got %v", k, v, doc.Fields[k])
			}
		}
		if !doc.CreatedAt.Equal(before.CreatedAt) {
			t.Errorf("update changed creation time: %v -> %v", before.CreatedAt, doc.CreatedAt)
		}
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		err := s.Update(ctx, collection(), "nope", docstore.Fields{"a": 1})
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ReturnedCopiesAreDetached", func(t *testing.T) {
		c := collection()
		f := docstore.Fields{"a": "1"}
		id, err := s.Create(ctx, c, f)
		if err != nil {
			t.Fatal(err)
		}
		f["a"] = "changed"

		doc, _ := s.Get(ctx, c, id)
		doc.Fields["a"] = "mutated"

		again, _ := s.Get(ctx, c, id)
		if again.Fields["a"] != "1" {
			t.Errorf("stored document changed through a caller map: %v", again.Fields["a"])
		}
	})

	t.Run("ConcurrentCreates", func(t *testing.T) {
		c := collection()
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, err := s.Create(ctx, c, docstore.Fields{"i": i}); err != nil {
					t.Errorf("Create: %v", err)
				}
			}(i)
		}
		wg.Wait()

		docs, err := s.List(ctx, c)
		if err != nil {
			t.Fatal(err)
		}
		if len(docs) != 10 {
			t.Errorf("expected 10 documents, got %d", len(docs))
		}
	})
}
