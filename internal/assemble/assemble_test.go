package assemble

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/canari/internal/catalog"
	"github.com/ppiankov/canari/internal/draft"
	"github.com/ppiankov/canari/internal/model"
)

var measureEqual = cmp.Comparer(func(a, b model.Measure) bool { return a.Equal(b) })

func validMeta() model.BatchMetadata {
	return model.BatchMetadata{Submitter: " Ana ", Category: "Gala", SubCategory: "Royal", Block: "B12 "}
}

func newDraft(t *testing.T, n int) *draft.Store {
	t.Helper()
	s, err := draft.New(catalog.Default(), n)
	if err != nil {
		t.Fatalf("draft.New: %v", err)
	}
	return s
}

func TestAssemble_KeepsOriginalSlotNumber(t *testing.T) {
	s := newDraft(t, 10)
	if err := s.UpdateField(3, draft.SetSingle{Key: catalog.KeyBrix, Value: "13.2"}); err != nil {
		t.Fatal(err)
	}
	_, items := s.Snapshot()

	payload, err := New(nil).Assemble(validMeta(), items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(payload.Samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(payload.Samples))
	}
	if payload.Samples[0].SampleNumber != 4 {
		t.Errorf("expected sample number 4, got %d", payload.Samples[0].SampleNumber)
	}
}

func TestAssemble_Normalises(t *testing.T) {
	s := newDraft(t, 3)
	_ = s.UpdateField(1, draft.SetSingle{Key: catalog.KeyWeight, Value: "150"})
	_ = s.UpdateField(1, draft.SetSingle{Key: catalog.KeyRow, Value: "  R4 "})
	_ = s.UpdateField(1, draft.SetBooleanPair{Key: catalog.KeyInternalAndSplit, First: true, Second: false})
	_ = s.UpdateField(1, draft.SetNumericPair{Key: catalog.KeyPressure, First: "17", Second: ""})
	_ = s.UpdateField(2, draft.SetFlag{Key: catalog.KeyExposed, Value: true})
	_, items := s.Snapshot()

	payload, err := New(nil).Assemble(validMeta(), items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := model.BatchPayload{
		BatchMetadata: model.BatchMetadata{Submitter: "Ana", Category: "Gala", SubCategory: "Royal", Block: "B12"},
		Samples: []model.Sample{{
			SampleNumber: 2,
			IsInternal:   true,
			Row:          "R4",
			Weight:       model.MustMeasure("150"),
			Pressure1:    model.MustMeasure("17"),
			Variety:      "Gala",
			Subvariety:   "Royal",
		}},
	}
	if diff := cmp.Diff(want, payload, measureEqual); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestAssemble_BooleanOnlyRecordsAreDropped(t *testing.T) {
	s := newDraft(t, 2)
	_ = s.UpdateField(0, draft.SetFlag{Key: catalog.KeyExposed, Value: true})
	_ = s.UpdateField(1, draft.SetBooleanPair{Key: catalog.KeyInternalAndSplit, First: true, Second: true})
	_, items := s.Snapshot()

	_, err := New(nil).Assemble(validMeta(), items)
	if !errors.Is(err, model.ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestAssemble_WhitespaceOnlyIsEmpty(t *testing.T) {
	s := newDraft(t, 1)
	_ = s.UpdateField(0, draft.SetSingle{Key: catalog.KeyRow, Value: "   "})
	_, items := s.Snapshot()

	if _, err := New(nil).Assemble(validMeta(), items); !errors.Is(err, model.ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestAssemble_AllEmpty(t *testing.T) {
	_, items := newDraft(t, 10).Snapshot()

	_, err := New(nil).Assemble(validMeta(), items)
	if !errors.Is(err, model.ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
	if !model.IsValidation(err) {
		t.Error("expected empty batch to be a validation error")
	}
}

func TestAssemble_RevalidatesMetadata(t *testing.T) {
	s := newDraft(t, 1)
	_ = s.UpdateField(0, draft.SetSingle{Key: catalog.KeyBrix, Value: "12"})
	_, items := s.Snapshot()

	meta := validMeta()
	meta.Block = "  "

	_, err := New(nil).Assemble(meta, items)
	var ve *model.ValidationError
	if !errors.As(err, &ve) || !errors.Is(err, model.ErrMissingRequiredField) {
		t.Fatalf("expected missing field error, got %v", err)
	}
	if len(ve.Fields) != 1 || ve.Fields[0] != "blockNumber" {
		t.Errorf("expected blockNumber, got %v", ve.Fields)
	}
}

func TestAssemble_UnknownKey(t *testing.T) {
	items := []draft.Item{{
		Flags:  map[string]bool{},
		Values: map[string]string{"firmness": "3"},
	}}
	if _, err := New(nil).Assemble(validMeta(), items); !errors.Is(err, model.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestAssemble_PayloadSchema(t *testing.T) {
	s := newDraft(t, 1)
	_ = s.UpdateField(0, draft.SetSingle{Key: catalog.KeyWeight, Value: "151.5"})
	_, items := s.Snapshot()

	payload, err := New(nil).Assemble(validMeta(), items)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)

	for _, want := range []string{`"weight":151.5`, `"brix":null`, `"createdBy":"Ana"`, `"sampleNumber":1`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
	for _, legacy := range []string{`"size"`, `"medida"`, `"weightInGrams"`} {
		if strings.Contains(out, legacy) {
			t.Errorf("legacy key %s must not be written: %s", legacy, out)
		}
	}
}

func TestSetField(t *testing.T) {
	var s model.Sample

	for key, value := range map[string]string{
		catalog.KeyWeight: "152",
		catalog.KeyBrix:   " 13.4 ",
		catalog.KeyRow:    " R2 ",
		catalog.KeySplit:  "true",
	} {
		if err := SetField(&s, key, value); err != nil {
			t.Fatalf("SetField(%s): %v", key, err)
		}
	}
	if s.Weight.String() != "152" || s.Brix.String() != "13.4" || s.Row != "R2" || !s.IsSplit {
		t.Errorf("unexpected sample %+v", s)
	}

	if err := SetField(&s, catalog.KeyBrix, ""); err != nil || s.Brix.Valid {
		t.Errorf("expected blank to clear brix, got %v %v", err, s.Brix)
	}

	tests := []struct {
		key, value string
		want       error
	}{
		{catalog.KeyBrix, "sweet", model.ErrNotNumeric},
		{catalog.KeyExposed, "maybe", model.ErrInvalidValue},
		{"size", "100", model.ErrUnknownField},
		{catalog.KeyPressure, "1", model.ErrUnknownField},
	}
	for _, tt := range tests {
		err := SetField(&s, tt.key, tt.value)
		if !errors.Is(err, tt.want) || !model.IsValidation(err) {
			t.Errorf("SetField(%s, %s): expected %v, got %v", tt.key, tt.value, tt.want, err)
		}
	}
}
