package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/canari/internal/model"
)

type fakeSink struct {
	calls  [][]model.Count
	stored int // how many counts succeed before err, when err is set
	err    error
}

func (f *fakeSink) CreateCounts(ctx context.Context, counts []model.Count) ([]string, error) {
	f.calls = append(f.calls, counts)
	n := len(counts)
	if f.err != nil {
		n = f.stored
	}
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("doc-%d", i)
	}
	return ids, f.err
}

func count(tree string) model.Count {
	return model.Count{
		CreatedBy:   "Ana",
		Variety:     "Gala",
		BlockNumber: "B12",
		Row:         "4",
		Tree:        tree,
		TotalFruit:  80,
	}
}

func trees(records []QueuedRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Count.Tree
	}
	return out
}

func TestEnqueue_Validates(t *testing.T) {
	q := New(nil)

	bad := count("1")
	bad.BlockNumber = " "
	if _, err := q.Enqueue(bad); !errors.Is(err, model.ErrMissingRequiredField) {
		t.Errorf("expected ErrMissingRequiredField, got %v", err)
	}

	badOption := count("1")
	badOption.CanopyType = "Dense"
	if _, err := q.Enqueue(badOption); !errors.Is(err, model.ErrInvalidOption) {
		t.Errorf("expected ErrInvalidOption, got %v", err)
	}

	if q.Len() != 0 {
		t.Errorf("invalid counts must not be queued, got %d", q.Len())
	}

	padded := count("1")
	padded.CanopyType = "Low / Bajo "
	if _, err := q.Enqueue(padded); err != nil {
		t.Fatalf("padded option rejected: %v", err)
	}
	if got := q.List()[0].Count.CanopyType; got != "Low / Bajo" {
		t.Errorf("canopy not trimmed, got %q", got)
	}
	q.DrainAll()

	a, err := q.Enqueue(count("1"))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := q.Enqueue(count("2"))
	if a == "" || a == b {
		t.Errorf("expected distinct ids, got %q %q", a, b)
	}
}

func TestDequeue_RoundTrip(t *testing.T) {
	q := New(nil)
	for _, tree := range []string{"1", "2", "3"} {
		if _, err := q.Enqueue(count(tree)); err != nil {
			t.Fatal(err)
		}
	}
	before := q.List()

	id, err := q.Enqueue(count("4"))
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Dequeue(id); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(before, q.List()); diff != "" {
		t.Errorf("queue changed (-before +after):\n%s", diff)
	}

	// removing from the middle keeps order
	if err := q.Dequeue(before[1].ID); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"1", "3"}, trees(q.List())); diff != "" {
		t.Errorf("unexpected order:\n%s", diff)
	}

	if err := q.Dequeue("missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDrainAll_Twice(t *testing.T) {
	q := New(nil)
	_, _ = q.Enqueue(count("1"))
	_, _ = q.Enqueue(count("2"))

	first := q.DrainAll()
	if len(first) != 2 {
		t.Fatalf("expected 2 records, got %d", len(first))
	}
	second := q.DrainAll()
	if second == nil || len(second) != 0 {
		t.Errorf("expected empty sequence, got %v", second)
	}
}

func TestSubmit_Success(t *testing.T) {
	q := New(nil)
	_, _ = q.Enqueue(count("1"))
	_, _ = q.Enqueue(count("2"))

	sink := &fakeSink{}
	ids, err := q.Submit(context.Background(), sink)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || q.Len() != 0 {
		t.Errorf("expected 2 ids and empty queue, got %v, %d", ids, q.Len())
	}
	if len(sink.calls) != 1 || len(sink.calls[0]) != 2 {
		t.Errorf("expected one batched call, got %v", sink.calls)
	}
}

func TestSubmit_PartialFailureRequeuesUnsent(t *testing.T) {
	q := New(nil)
	for _, tree := range []string{"1", "2", "3"} {
		_, _ = q.Enqueue(count(tree))
	}

	sink := &fakeSink{stored: 1, err: &model.PersistenceError{Op: "create", Collection: "counts", Err: errors.New("unavailable")}}
	ids, err := q.Submit(context.Background(), sink)
	if !model.IsPersistence(err) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("expected 1 stored id, got %v", ids)
	}
	if diff := cmp.Diff([]string{"2", "3"}, trees(q.List())); diff != "" {
		t.Errorf("unexpected requeued records:\n%s", diff)
	}
}

func TestSubmit_FailureKeepsAheadOfNewRecords(t *testing.T) {
	q := New(nil)
	_, _ = q.Enqueue(count("1"))
	_, _ = q.Enqueue(count("2"))

	drained := q.DrainAll()
	_, _ = q.Enqueue(count("3"))
	q.Requeue(drained)

	if diff := cmp.Diff([]string{"1", "2", "3"}, trees(q.List())); diff != "" {
		t.Errorf("unexpected order:\n%s", diff)
	}
}

func TestSubmit_Empty(t *testing.T) {
	_, err := New(nil).Submit(context.Background(), &fakeSink{})
	if !errors.Is(err, model.ErrEmptyBatch) {
		t.Errorf("expected ErrEmptyBatch, got %v", err)
	}
}
