// Package records persists batches and counts to the document store and
// reads them back for listing, review and correction.
package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/canari/internal/assemble"
	"github.com/ppiankov/canari/internal/docstore"
	"github.com/ppiankov/canari/internal/events"
	"github.com/ppiankov/canari/internal/logging"
	"github.com/ppiankov/canari/internal/model"
	"github.com/ppiankov/canari/internal/worker"
)

const module = "records"

// Filter narrows listings. Each non-blank field must appear, case-insensitively,
// within the corresponding record field.
type Filter struct {
	Block      string `form:"block" json:"block,omitempty"`
	Submitter  string `form:"submitter" json:"submitter,omitempty"`
	Variety    string `form:"variety" json:"variety,omitempty"`
	Subvariety string `form:"subvariety" json:"subvariety,omitempty"`
}

func (f Filter) match(block, submitter, variety, subvariety string) bool {
	return contains(block, f.Block) &&
		contains(submitter, f.Submitter) &&
		contains(variety, f.Variety) &&
		contains(subvariety, f.Subvariety)
}

func contains(s, sub string) bool {
	sub = strings.TrimSpace(sub)
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// MatchBatch reports whether b passes the filter
func (f Filter) MatchBatch(b model.Batch) bool {
	return f.match(b.Block, b.Submitter, b.Category, b.SubCategory)
}

// MatchCount reports whether c passes the filter
func (f Filter) MatchCount(c model.CountRecord) bool {
	return f.match(c.BlockNumber, c.CreatedBy, c.Variety, c.Subvariety)
}

// Options configures optional collaborators
type Options struct {
	Limiter   *worker.Limiter
	Publisher events.Publisher
	Logger    logrus.FieldLogger
}

// Service reads and writes records. It satisfies wizard.Persister and queue.Sink.
type Service struct {
	store     docstore.Store
	paths     model.PathsConfig
	limiter   *worker.Limiter
	publisher events.Publisher
	logger    logrus.FieldLogger
}

// NewService creates a service over store
func NewService(store docstore.Store, paths model.PathsConfig, opts Options) *Service {
	s := &Service{
		store:     store,
		paths:     paths,
		limiter:   opts.Limiter,
		publisher: opts.Publisher,
		logger:    opts.Logger,
	}
	if s.limiter == nil {
		s.limiter = worker.NewLimiter(0, 1)
	}
	if s.publisher == nil {
		s.publisher = events.Noop{}
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	return s
}

func (s *Service) fail(op, collection, funcName string, data any, err error) error {
	logging.LogError(s.logger, module, funcName, op+" "+collection, data, err)
	return &model.PersistenceError{Op: op, Collection: collection, Err: err}
}

func (s *Service) publish(ctx context.Context, kind, collection string, ids []string) {
	e := events.Event{Kind: kind, Collection: collection, IDs: ids, At: time.Now().UTC()}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.WithFields(logrus.Fields{
			"module": module,
			"kind":   kind,
			"error":  err.Error(),
		}).Warn("event not published")
	}
}

// CreateBatch writes a new batch document and returns its id
func (s *Service) CreateBatch(ctx context.Context, payload model.BatchPayload) (string, error) {
	collection := s.paths.Batches

	fields, err := docstore.Encode(payload)
	if err != nil {
		return "", err
	}
	if err := s.limiter.Wait(ctx, collection, 1); err != nil {
		return "", s.fail("create", collection, "CreateBatch", nil, err)
	}

	id, err := s.store.Create(ctx, collection, fields)
	if err != nil {
		return "", s.fail("create", collection, "CreateBatch", map[string]any{"samples": len(payload.Samples)}, err)
	}

	s.logger.WithFields(logrus.Fields{
		"module":  module,
		"id":      id,
		"block":   payload.Block,
		"samples": len(payload.Samples),
	}).Info("batch created")
	s.publish(ctx, events.BatchCreated, collection, []string{id})
	return id, nil
}

// ListBatches returns stored batches in creation order
func (s *Service) ListBatches(ctx context.Context, f Filter) ([]model.Batch, error) {
	collection := s.paths.Batches
	docs, err := s.store.List(ctx, collection)
	if err != nil {
		return nil, s.fail("list", collection, "ListBatches", nil, err)
	}

	out := make([]model.Batch, 0, len(docs))
	for _, d := range docs {
		b, err := toBatch(d)
		if err != nil {
			s.logger.WithFields(logrus.Fields{"module": module, "id": d.ID, "error": err.Error()}).Warn("skipping unreadable batch")
			continue
		}
		if f.MatchBatch(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

// GetBatch returns one batch. A missing batch yields model.ErrNotFound.
func (s *Service) GetBatch(ctx context.Context, id string) (model.Batch, error) {
	collection := s.paths.Batches
	d, err := s.store.Get(ctx, collection, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.Batch{}, err
	}
	if err != nil {
		return model.Batch{}, s.fail("get", collection, "GetBatch", id, err)
	}
	return toBatch(d)
}

// UpdateSamples replaces the samples of a stored batch
func (s *Service) UpdateSamples(ctx context.Context, id string, samples []model.Sample) error {
	collection := s.paths.Batches

	encoded, err := docstore.Encode(struct {
		Samples []model.Sample `json:"samples"`
	}{samples})
	if err != nil {
		return err
	}
	if err := s.limiter.Wait(ctx, collection, 1); err != nil {
		return s.fail("update", collection, "UpdateSamples", id, err)
	}

	err = s.store.Update(ctx, collection, id, docstore.Fields{"samples": encoded["samples"]})
	if errors.Is(err, model.ErrNotFound) {
		return err
	}
	if err != nil {
		return s.fail("update", collection, "UpdateSamples", id, err)
	}
	s.publish(ctx, events.BatchUpdated, collection, []string{id})
	return nil
}

// EditSample reads a batch, changes one field of one sample and writes the
// samples back. The edited batch is returned.
func (s *Service) EditSample(ctx context.Context, id string, sampleNumber int, field, value string) (model.Batch, error) {
	b, err := s.GetBatch(ctx, id)
	if err != nil {
		return model.Batch{}, err
	}

	sample, ok := b.Sample(sampleNumber)
	if !ok {
		return model.Batch{}, fmt.Errorf("sample %d of batch %s: %w", sampleNumber, id, model.ErrNotFound)
	}
	if err := assemble.SetField(sample, field, value); err != nil {
		return model.Batch{}, err
	}

	if err := s.UpdateSamples(ctx, id, b.Samples); err != nil {
		return model.Batch{}, err
	}
	return b, nil
}

// CreateCounts writes counts in one batched store write. On failure the
// returned ids cover the counts stored before the error.
func (s *Service) CreateCounts(ctx context.Context, counts []model.Count) ([]string, error) {
	collection := s.paths.Counts

	docs := make([]docstore.Fields, len(counts))
	for i, c := range counts {
		f, err := docstore.Encode(c)
		if err != nil {
			return nil, err
		}
		docs[i] = f
	}
	if err := s.limiter.Wait(ctx, collection, len(docs)); err != nil {
		return nil, s.fail("create", collection, "CreateCounts", nil, err)
	}

	ids, err := s.store.CreateMany(ctx, collection, docs)
	if err != nil {
		return ids, s.fail("create", collection, "CreateCounts", map[string]int{"counts": len(counts), "stored": len(ids)}, err)
	}

	s.logger.WithFields(logrus.Fields{"module": module, "counts": len(ids)}).Info("counts created")
	s.publish(ctx, events.CountsCreated, collection, ids)
	return ids, nil
}

// ListCounts returns stored counts in creation order
func (s *Service) ListCounts(ctx context.Context, f Filter) ([]model.CountRecord, error) {
	collection := s.paths.Counts
	docs, err := s.store.List(ctx, collection)
	if err != nil {
		return nil, s.fail("list", collection, "ListCounts", nil, err)
	}

	out := make([]model.CountRecord, 0, len(docs))
	for _, d := range docs {
		rec := model.CountRecord{ID: d.ID, CreatedAt: d.CreatedAt}
		if err := docstore.Decode(d.Fields, &rec.Count); err != nil {
			s.logger.WithFields(logrus.Fields{"module": module, "id": d.ID, "error": err.Error()}).Warn("skipping unreadable count")
			continue
		}
		if f.MatchCount(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func toBatch(d docstore.Document) (model.Batch, error) {
	b := model.Batch{ID: d.ID, CreatedAt: d.CreatedAt}
	if err := docstore.Decode(d.Fields, &b.BatchPayload); err != nil {
		return model.Batch{}, err
	}
	return b, nil
}
