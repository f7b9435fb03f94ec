// Package queue holds fruit counts composed locally until they are sent together.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ppiankov/canari/internal/model"
	"github.com/ppiankov/canari/internal/validate"
)

// QueueID identifies a queued count within its queue
type QueueID string

// QueuedRecord is a validated count waiting to be sent. It is never mutated.
type QueuedRecord struct {
	ID    QueueID     `json:"id"`
	Count model.Count `json:"count"`
}

// Sink persists counts. It returns the ids of the counts it stored, in order;
// on failure the returned ids cover the prefix that was stored before the error.
type Sink interface {
	CreateCounts(ctx context.Context, counts []model.Count) ([]string, error)
}

// Queue is an ordered in-memory list of pending counts. Safe for concurrent use.
type Queue struct {
	mu        sync.Mutex
	records   []QueuedRecord
	validator *validate.Validator
}

// New creates an empty queue
func New(v *validate.Validator) *Queue {
	if v == nil {
		v = validate.NewValidator()
	}
	return &Queue{validator: v}
}

// Enqueue validates c and appends it
func (q *Queue) Enqueue(c model.Count) (QueueID, error) {
	if err := q.validator.Count(c); err != nil {
		return "", err
	}

	rec := QueuedRecord{ID: QueueID(uuid.NewString()), Count: c.Trimmed()}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = append(q.records, rec)
	return rec.ID, nil
}

// Dequeue removes the record with the given id
func (q *Queue) Dequeue(id QueueID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, r := range q.records {
		if r.ID == id {
			q.records = append(q.records[:i:i], q.records[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("queued count %s: %w", id, model.ErrNotFound)
}

// List returns the pending records in order
func (q *Queue) List() []QueuedRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]QueuedRecord(nil), q.records...)
}

// Len is the number of pending records
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// DrainAll returns every pending record and clears the queue
func (q *Queue) DrainAll() []QueuedRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.records
	q.records = nil
	if out == nil {
		return []QueuedRecord{}
	}
	return out
}

// Requeue puts records back at the front, ahead of anything enqueued since they were drained
func (q *Queue) Requeue(records []QueuedRecord) {
	if len(records) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	merged := make([]QueuedRecord, 0, len(records)+len(q.records))
	merged = append(merged, records...)
	q.records = append(merged, q.records...)
}

// Submit drains the queue into sink. Records the sink did not confirm are
// requeued, so nothing drained is lost when the write fails partway.
func (q *Queue) Submit(ctx context.Context, sink Sink) ([]string, error) {
	records := q.DrainAll()
	if len(records) == 0 {
		return nil, model.NewValidationError(model.ErrEmptyBatch)
	}

	counts := make([]model.Count, len(records))
	for i, r := range records {
		counts[i] = r.Count
	}

	ids, err := sink.CreateCounts(ctx, counts)
	if err != nil {
		sent := len(ids)
		if sent > len(records) {
			sent = len(records)
		}
		q.Requeue(records[sent:])
		return ids, err
	}
	return ids, nil
}
