// Package wizard drives the multi-step batch entry form.
//
// The machine holds a single integer cursor over catalog.Steps() positions:
// 0 is metadata entry, 1..Len() are attribute steps and Len()+1 is review.
// Everything a step renders or accepts is derived from that cursor and the catalog.
package wizard

import (
	"context"
	"fmt"
	"sync"

	"github.com/ppiankov/canari/internal/assemble"
	"github.com/ppiankov/canari/internal/catalog"
	"github.com/ppiankov/canari/internal/draft"
	"github.com/ppiankov/canari/internal/model"
	"github.com/ppiankov/canari/internal/validate"
)

// Phase is the kind of step the cursor is on
type Phase int

const (
	PhaseMetadata Phase = iota
	PhaseAttribute
	PhaseReview
)

func (p Phase) String() string {
	switch p {
	case PhaseMetadata:
		return "metadata"
	case PhaseAttribute:
		return "attribute"
	case PhaseReview:
		return "review"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText renders the phase name in JSON and YAML output
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText parses a phase name written by MarshalText
func (p *Phase) UnmarshalText(text []byte) error {
	for _, candidate := range []Phase{PhaseMetadata, PhaseAttribute, PhaseReview} {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown wizard phase %q", text)
}

// State describes the cursor position
type State struct {
	Step       int    `json:"step"`
	Phase      Phase  `json:"phase"`
	Entry      int    `json:"entry"`         // attribute index, -1 outside attribute steps
	Key        string `json:"key,omitempty"` // catalog key of the current attribute
	Label      string `json:"label,omitempty"`
	Submitting bool   `json:"submitting"`
}

// Persister receives assembled batches
type Persister interface {
	CreateBatch(ctx context.Context, payload model.BatchPayload) (string, error)
}

// Machine is the wizard state machine. Safe for concurrent use.
type Machine struct {
	mu         sync.Mutex
	catalog    *catalog.Catalog
	store      *draft.Store
	validator  *validate.Validator
	assembler  *assemble.Assembler
	step       int
	submitting bool
}

// New creates a machine positioned on the metadata step
func New(store *draft.Store, v *validate.Validator) (*Machine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil draft store", model.ErrInvalidConfiguration)
	}
	if v == nil {
		v = validate.NewValidator()
	}
	return &Machine{
		catalog:   store.Catalog(),
		store:     store,
		validator: v,
		assembler: assemble.New(v),
	}, nil
}

// Catalog returns the catalog that defines the steps
func (m *Machine) Catalog() *catalog.Catalog { return m.catalog }

// State returns the current cursor position
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Machine) stateLocked() State {
	s := State{Step: m.step, Phase: m.phase(), Entry: -1, Submitting: m.submitting}
	if s.Phase == PhaseAttribute {
		s.Entry = m.step - 1
		e, _ := m.catalog.Entry(s.Entry)
		s.Key = e.Key
		s.Label = e.Label
	}
	return s
}

func (m *Machine) phase() Phase {
	switch {
	case m.step == 0:
		return PhaseMetadata
	case m.step > m.catalog.Len():
		return PhaseReview
	default:
		return PhaseAttribute
	}
}

// Draft returns a snapshot of the metadata and items
func (m *Machine) Draft() (model.BatchMetadata, []draft.Item) {
	return m.store.Snapshot()
}

// Next advances one step. Leaving metadata requires submitter, category and
// block to be non-blank; otherwise a *model.ValidationError naming the missing
// fields is returned and the cursor stays. Next on review does nothing.
func (m *Machine) Next() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.submitting {
		return m.stateLocked(), model.ErrSubmitInProgress
	}

	switch m.phase() {
	case PhaseMetadata:
		if err := m.validator.Metadata(m.store.Metadata()); err != nil {
			return m.stateLocked(), err
		}
		m.step = 1
	case PhaseAttribute:
		m.step++
	case PhaseReview:
	}
	return m.stateLocked(), nil
}

// Back moves one attribute step back. From review it returns to the first
// attribute step. Back on metadata or the first attribute does nothing.
func (m *Machine) Back() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.submitting {
		return m.stateLocked(), model.ErrSubmitInProgress
	}

	switch m.phase() {
	case PhaseAttribute:
		if m.step > 1 {
			m.step--
		}
	case PhaseReview:
		m.step = 1
	case PhaseMetadata:
	}
	return m.stateLocked(), nil
}

// SetMetadata edits a metadata field. Only allowed on the metadata step.
func (m *Machine) SetMetadata(field model.MetadataField, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.submitting {
		return model.ErrSubmitInProgress
	}
	if m.phase() != PhaseMetadata {
		return fmt.Errorf("%w: metadata is edited on step 0, cursor at %d", model.ErrWrongStep, m.step)
	}
	return m.store.UpdateMetadata(field, value)
}

// Update applies an item edit. Allowed on attribute and review steps.
func (m *Machine) Update(index int, u draft.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.submitting {
		return model.ErrSubmitInProgress
	}
	if m.phase() == PhaseMetadata {
		return fmt.Errorf("%w: items cannot be edited on the metadata step", model.ErrWrongStep)
	}
	return m.store.UpdateField(index, u)
}

// Submit assembles the draft and hands it to p. Only allowed on review.
// On success the draft is cleared and the cursor returns to metadata; on any
// failure the draft and cursor are left untouched so the caller can retry.
// A second Submit while one is pending returns model.ErrSubmitInProgress.
func (m *Machine) Submit(ctx context.Context, p Persister) (string, error) {
	m.mu.Lock()
	if m.submitting {
		m.mu.Unlock()
		return "", model.ErrSubmitInProgress
	}
	if m.phase() != PhaseReview {
		step := m.step
		m.mu.Unlock()
		return "", fmt.Errorf("%w: submit is only available on review, cursor at %d", model.ErrWrongStep, step)
	}
	meta, items := m.store.Snapshot()
	payload, err := m.assembler.Assemble(meta, items)
	if err != nil {
		m.mu.Unlock()
		return "", err
	}
	m.submitting = true
	m.mu.Unlock()

	id, err := p.CreateBatch(ctx, payload)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitting = false
	if err != nil {
		return "", err
	}
	m.store.Reset()
	m.step = 0
	return id, nil
}
