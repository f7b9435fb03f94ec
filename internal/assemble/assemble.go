// Package assemble turns a draft into the batch document that gets persisted.
package assemble

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/canari/internal/catalog"
	"github.com/ppiankov/canari/internal/draft"
	"github.com/ppiankov/canari/internal/model"
	"github.com/ppiankov/canari/internal/validate"
)

// Canonical sample fields by stored key
var (
	flagFields = map[string]func(*model.Sample) *bool{
		catalog.KeyExposed:  func(s *model.Sample) *bool { return &s.IsExposed },
		catalog.KeyInternal: func(s *model.Sample) *bool { return &s.IsInternal },
		catalog.KeySplit:    func(s *model.Sample) *bool { return &s.IsSplit },
	}
	textFields = map[string]func(*model.Sample) *string{
		catalog.KeyRow: func(s *model.Sample) *string { return &s.Row },
	}
	measureFields = map[string]func(*model.Sample) *model.Measure{
		catalog.KeyWeight:          func(s *model.Sample) *model.Measure { return &s.Weight },
		catalog.KeyColor:           func(s *model.Sample) *model.Measure { return &s.ColorPercentage },
		catalog.KeyBackgroundColor: func(s *model.Sample) *model.Measure { return &s.BackgroundColorPercentage },
		catalog.KeyPressure1:       func(s *model.Sample) *model.Measure { return &s.Pressure1 },
		catalog.KeyPressure2:       func(s *model.Sample) *model.Measure { return &s.Pressure2 },
		catalog.KeyBrix:            func(s *model.Sample) *model.Measure { return &s.Brix },
		catalog.KeyStarch:          func(s *model.Sample) *model.Measure { return &s.Starch },
	}
)

// Assembler builds batch payloads. It has no side effects.
type Assembler struct {
	validator *validate.Validator
}

// New creates an assembler
func New(v *validate.Validator) *Assembler {
	if v == nil {
		v = validate.NewValidator()
	}
	return &Assembler{validator: v}
}

type numbered struct {
	number int
	item   draft.Item
}

// Assemble validates metadata, numbers items by their original 1-based slot,
// drops items without text or numeric data and normalises the rest.
func (a *Assembler) Assemble(meta model.BatchMetadata, items []draft.Item) (model.BatchPayload, error) {
	if err := a.validator.Metadata(meta); err != nil {
		return model.BatchPayload{}, err
	}
	meta = meta.Trimmed()

	// Numbers are fixed before filtering so kept samples keep their slot
	all := make([]numbered, len(items))
	for i, it := range items {
		all[i] = numbered{number: i + 1, item: it}
	}

	samples := make([]model.Sample, 0, len(items))
	for _, n := range all {
		if !n.item.HasData() {
			continue
		}
		s, err := normalize(n.number, n.item)
		if err != nil {
			return model.BatchPayload{}, err
		}
		s.Variety = meta.Category
		s.Subvariety = meta.SubCategory
		samples = append(samples, s)
	}

	if len(samples) == 0 {
		return model.BatchPayload{}, model.NewValidationError(model.ErrEmptyBatch)
	}

	return model.BatchPayload{BatchMetadata: meta, Samples: samples}, nil
}

func normalize(number int, it draft.Item) (model.Sample, error) {
	s := model.Sample{SampleNumber: number}

	for key, v := range it.Flags {
		field, ok := flagFields[key]
		if !ok {
			return s, fmt.Errorf("%w: no canonical boolean field for %q", model.ErrInvalidConfiguration, key)
		}
		*field(&s) = v
	}

	for key, v := range it.Values {
		if field, ok := textFields[key]; ok {
			*field(&s) = strings.TrimSpace(v)
			continue
		}
		field, ok := measureFields[key]
		if !ok {
			return s, fmt.Errorf("%w: no canonical field for %q", model.ErrInvalidConfiguration, key)
		}
		m, err := model.ParseMeasure(v)
		if err != nil {
			return s, model.NewValidationError(err, key)
		}
		*field(&s) = m
	}

	return s, nil
}

// SetField writes form input for one stored key into s. Booleans accept
// strconv.ParseBool forms; numerics must be blank or decimal.
func SetField(s *model.Sample, key, value string) error {
	if field, ok := flagFields[key]; ok {
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return model.NewValidationError(model.ErrInvalidValue, key)
		}
		*field(s) = b
		return nil
	}
	if field, ok := textFields[key]; ok {
		*field(s) = strings.TrimSpace(value)
		return nil
	}
	if field, ok := measureFields[key]; ok {
		m, err := model.ParseMeasure(value)
		if err != nil {
			return model.NewValidationError(err, key)
		}
		*field(s) = m
		return nil
	}
	return model.NewValidationError(model.ErrUnknownField, key)
}
