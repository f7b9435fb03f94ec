package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/canari/internal/app"
	"github.com/ppiankov/canari/internal/catalog"
	"github.com/ppiankov/canari/internal/docstore"
	"github.com/ppiankov/canari/internal/draft"
	"github.com/ppiankov/canari/internal/model"
	"github.com/ppiankov/canari/internal/queue"
	"github.com/ppiankov/canari/internal/records"
	"github.com/ppiankov/canari/internal/wizard"
)

func newMachine(t *testing.T, n int) *wizard.Machine {
	t.Helper()
	s, err := draft.New(catalog.Default(), n)
	if err != nil {
		t.Fatal(err)
	}
	m, err := wizard.New(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestFillWizard(t *testing.T) {
	m := newMachine(t, 3)
	in := batchFile{
		CreatedBy:   "Ana",
		Variety:     "Gala",
		BlockNumber: "B12",
		Samples: []map[string]any{
			{"isExposed": true, "weight": 151.5, "pressure1": 7.2, "brix": "12.4"},
			{},
			{"row": "R3", "weight": 140, "isInternal": true},
		},
	}

	if err := fillWizard(m, in); err != nil {
		t.Fatalf("fillWizard: %v", err)
	}
	if got := m.State().Phase; got != wizard.PhaseReview {
		t.Fatalf("phase = %v, want review", got)
	}

	meta, items := m.Draft()
	if meta.Submitter != "Ana" || meta.Category != "Gala" || meta.Block != "B12" {
		t.Errorf("metadata = %+v", meta)
	}
	if !items[0].Flags["isExposed"] || !items[2].Flags["isInternal"] {
		t.Errorf("flags not entered: %+v / %+v", items[0].Flags, items[2].Flags)
	}
	if items[1].HasData() {
		t.Errorf("empty sample has data: %+v", items[1])
	}

	got := map[string]string{
		"0.weight":    items[0].Values["weight"],
		"0.pressure1": items[0].Values["pressure1"],
		"0.brix":      items[0].Values["brix"],
		"2.row":       items[2].Values["row"],
		"2.weight":    items[2].Values["weight"],
	}
	want := map[string]string{
		"0.weight":    "151.5",
		"0.pressure1": "7.2",
		"0.brix":      "12.4",
		"2.row":       "R3",
		"2.weight":    "140",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestFillWizard_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      batchFile
		wantErr error
	}{
		{
			name:    "unknown key",
			in:      batchFile{CreatedBy: "Ana", Variety: "Gala", BlockNumber: "B1", Samples: []map[string]any{{"colour": 3}}},
			wantErr: model.ErrUnknownField,
		},
		{
			name:    "flag given a number",
			in:      batchFile{CreatedBy: "Ana", Variety: "Gala", BlockNumber: "B1", Samples: []map[string]any{{"isExposed": 1}}},
			wantErr: model.ErrInvalidValue,
		},
		{
			name:    "missing metadata",
			in:      batchFile{Variety: "Gala", BlockNumber: "B1"},
			wantErr: model.ErrMissingRequiredField,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fillWizard(newMachine(t, 2), tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFillWizard_TooManySamples(t *testing.T) {
	in := batchFile{CreatedBy: "Ana", Variety: "Gala", BlockNumber: "B1", Samples: make([]map[string]any, 3)}
	if err := fillWizard(newMachine(t, 2), in); err == nil {
		t.Fatal("expected error for more samples than slots")
	}
}

func TestScalar(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"7,5", "7,5"},
		{12, "12"},
		{12.25, "12.25"},
		{1e21, "1000000000000000000000"},
		{true, "true"},
	}
	for _, tt := range tests {
		if got := scalar(tt.in); got != tt.want {
			t.Errorf("scalar(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQueueAll(t *testing.T) {
	valid := model.Count{CreatedBy: "Ana", Variety: "Gala", BlockNumber: "B1", Row: "4", Tree: "17", TotalFruit: 90}
	invalid := valid
	invalid.Tree = ""

	q, err := queueAll(queue.New(nil), []model.Count{valid, valid})
	if err != nil {
		t.Fatalf("queueAll: %v", err)
	}
	if q.Len() != 2 {
		t.Errorf("Len = %d, want 2", q.Len())
	}

	if _, err := queueAll(queue.New(nil), []model.Count{valid, invalid}); !errors.Is(err, model.ErrMissingRequiredField) {
		t.Errorf("err = %v, want missing required field", err)
	}
}

func TestFlatten(t *testing.T) {
	in := map[string]any{
		"store": map[string]any{
			"driver": "memory",
			"redis":  map[string]any{"addr": "localhost:6379"},
		},
		"sample_count": 10,
	}
	want := map[string]any{
		"store.driver":     "memory",
		"store.redis.addr": "localhost:6379",
		"sample_count":     10,
	}
	if diff := cmp.Diff(want, flatten("", in)); diff != "" {
		t.Errorf("flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitFile(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Wizard.SampleCount = 3
	a, err := app.NewWithStore(context.Background(), cfg, docstore.NewMemoryStore(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	path := filepath.Join(t.TempDir(), "batch.yaml")
	content := `createdBy: Ana
variety: Gala
blockNumber: B12
samples:
  - {isExposed: true, weight: 151.5, pressure1: 7.2, pressure2: 7.0}
  - {isSplit: true}
  - {row: R3, brix: 12.4}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	id, err := submitFile(context.Background(), a, path)
	if err != nil {
		t.Fatalf("submitFile: %v", err)
	}
	b, err := a.Records().GetBatch(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Samples) != 2 {
		t.Fatalf("stored %d samples, want 2 (flag-only sample dropped)", len(b.Samples))
	}

	list, err := a.Records().ListBatches(context.Background(), records.Filter{Block: "B1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != id {
		t.Errorf("ListBatches = %+v", list)
	}

	if _, err := submitFile(context.Background(), a, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
