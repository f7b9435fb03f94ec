package model

import (
	"encoding/json"
	"strings"
	"time"
)

// MetadataField names one of the batch-level inputs collected on the first wizard step.
// Values are the canonical document keys.
type MetadataField string

const (
	FieldSubmitter   MetadataField = "createdBy"
	FieldCategory    MetadataField = "variety"
	FieldSubCategory MetadataField = "subvariety"
	FieldBlock       MetadataField = "blockNumber"
)

// MetadataFields lists the metadata inputs in entry order
var MetadataFields = []MetadataField{FieldSubmitter, FieldCategory, FieldSubCategory, FieldBlock}

// BatchMetadata describes who inspected what and where
type BatchMetadata struct {
	Submitter   string `json:"createdBy" yaml:"createdBy" validate:"required"`
	Category    string `json:"variety" yaml:"variety" validate:"required"` // apple variety
	SubCategory string `json:"subvariety" yaml:"subvariety"`
	Block       string `json:"blockNumber" yaml:"blockNumber" validate:"required"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field
func (m BatchMetadata) Trimmed() BatchMetadata {
	return BatchMetadata{
		Submitter:   strings.TrimSpace(m.Submitter),
		Category:    strings.TrimSpace(m.Category),
		SubCategory: strings.TrimSpace(m.SubCategory),
		Block:       strings.TrimSpace(m.Block),
	}
}

// Get returns the value of a metadata field
func (m BatchMetadata) Get(f MetadataField) string {
	switch f {
	case FieldSubmitter:
		return m.Submitter
	case FieldCategory:
		return m.Category
	case FieldSubCategory:
		return m.SubCategory
	case FieldBlock:
		return m.Block
	}
	return ""
}

// With returns a copy with one field replaced.
// Unknown fields yield ErrUnknownField.
func (m BatchMetadata) With(f MetadataField, value string) (BatchMetadata, error) {
	switch f {
	case FieldSubmitter:
		m.Submitter = value
	case FieldCategory:
		m.Category = value
	case FieldSubCategory:
		m.SubCategory = value
	case FieldBlock:
		m.Block = value
	default:
		return m, NewValidationError(ErrUnknownField, string(f))
	}
	return m, nil
}

// Sample is the persisted form of one inspected apple
type Sample struct {
	SampleNumber              int     `json:"sampleNumber"` // 1-based slot in the batch form
	IsExposed                 bool    `json:"isExposed"`
	IsInternal                bool    `json:"isInternal"`
	IsSplit                   bool    `json:"isSplit"`
	Row                       string  `json:"row"`
	Weight                    Measure `json:"weight"` // grams
	ColorPercentage           Measure `json:"colorPercentage"`
	BackgroundColorPercentage Measure `json:"backgroundColorPercentage"`
	Pressure1                 Measure `json:"pressure1"`
	Pressure2                 Measure `json:"pressure2"`
	Brix                      Measure `json:"brix"`
	Starch                    Measure `json:"starch"`
	Variety                   string  `json:"variety"`
	Subvariety                string  `json:"subvariety"`
}

// UnmarshalJSON reads the canonical schema plus the deprecated weight aliases
// (weightInGrams, size, medida) written by earlier clients. Aliases are read-only:
// they only fill Weight when the canonical key is absent or null.
func (s *Sample) UnmarshalJSON(data []byte) error {
	type plain Sample
	var aux struct {
		plain
		WeightInGrams Measure `json:"weightInGrams"`
		Size          Measure `json:"size"`
		Medida        Measure `json:"medida"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = Sample(aux.plain)
	if !s.Weight.Valid {
		for _, alias := range []Measure{aux.WeightInGrams, aux.Size, aux.Medida} {
			if alias.Valid {
				s.Weight = alias
				break
			}
		}
	}
	return nil
}

// BatchPayload is the document written for one wizard submission
type BatchPayload struct {
	BatchMetadata
	Samples []Sample `json:"samples"`
}

// Batch is a persisted batch as returned by the store
type Batch struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	BatchPayload
}

// Sample returns the sample with the given 1-based sample number
func (b *Batch) Sample(number int) (*Sample, bool) {
	for i := range b.Samples {
		if b.Samples[i].SampleNumber == number {
			return &b.Samples[i], true
		}
	}
	return nil, false
}
