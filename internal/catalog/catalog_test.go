package catalog

import (
	"errors"
	"testing"

	"github.com/ppiankov/canari/internal/model"
)

func TestDefault_Shape(t *testing.T) {
	c := Default()

	if c.Len() != 9 {
		t.Fatalf("expected 9 entries, got %d", c.Len())
	}
	if c.Steps() != 11 {
		t.Errorf("expected 11 steps (metadata + 9 + review), got %d", c.Steps())
	}

	first, _ := c.Entry(0)
	if first.Key != KeyExposed {
		t.Errorf("expected first entry %q, got %q", KeyExposed, first.Key)
	}
	last, _ := c.Entry(c.Len() - 1)
	if last.Key != KeyStarch {
		t.Errorf("expected last entry %q, got %q", KeyStarch, last.Key)
	}

	if _, ok := c.Entry(c.Len()); ok {
		t.Error("expected out-of-range entry lookup to fail")
	}
}

func TestLookup_PairHalves(t *testing.T) {
	c := Default()

	tests := []struct {
		key   string
		kind  Kind
		entry string
	}{
		{KeyExposed, Boolean, KeyExposed},
		{KeyInternal, Boolean, KeyInternalAndSplit},
		{KeySplit, Boolean, KeyInternalAndSplit},
		{KeyRow, Text, KeyRow},
		{KeyWeight, Numeric, KeyWeight},
		{KeyPressure1, Numeric, KeyPressure},
		{KeyPressure2, Numeric, KeyPressure},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			f, ok := c.Lookup(tt.key)
			if !ok {
				t.Fatalf("expected %q to resolve", tt.key)
			}
			if f.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, f.Kind)
			}
			e, _ := c.Entry(f.Entry)
			if e.Key != tt.entry {
				t.Errorf("expected owning entry %q, got %q", tt.entry, e.Key)
			}
		})
	}

	// Pair entry keys are not storage keys
	if _, ok := c.Lookup(KeyPressure); ok {
		t.Error("expected pair entry key not to resolve as a stored field")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{"empty", nil},
		{"missing key", []Entry{{Label: "x", Kind: Text}}},
		{"duplicate key", []Entry{{Key: "a", Kind: Text}, {Key: "a", Kind: Numeric}}},
		{"pair without fields", []Entry{{Key: "p", Kind: NumericPair}}},
		{"single with fields", []Entry{{Key: "s", Kind: Text, Fields: []SubField{{Key: "x"}}}}},
		{"wrong group", []Entry{{Key: "s", Kind: Text, Group: Double}}},
		{"unknown kind", []Entry{{Key: "s", Kind: Kind(42)}}},
		{"sub-field shadows single", []Entry{
			{Key: "a", Kind: Numeric},
			{Key: "p", Kind: NumericPair, Fields: []SubField{{Key: "a"}, {Key: "b"}}},
		}},
		{"pair key shadows stored field", []Entry{
			{Key: "p", Kind: NumericPair, Fields: []SubField{{Key: "a"}, {Key: "b"}}},
			{Key: "q", Kind: BooleanPair, Fields: []SubField{{Key: "p"}, {Key: "c"}}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.entries...)
			if !errors.Is(err, model.ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestNew_DefaultsGroup(t *testing.T) {
	c, err := New(
		Entry{Key: "n", Kind: Numeric},
		Entry{Key: "p", Kind: BooleanPair, Fields: []SubField{{Key: "a"}, {Key: "b"}}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries := c.Entries()
	if entries[0].Group != Single || entries[1].Group != Double {
		t.Errorf("expected groups single/double, got %s/%s", entries[0].Group, entries[1].Group)
	}

	want := []string{"n", "a", "b"}
	got := c.StorageKeys()
	if len(got) != len(want) {
		t.Fatalf("expected storage keys %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("storage key %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestKind_TextRoundTrip(t *testing.T) {
	for _, k := range []Kind{Boolean, BooleanPair, Text, Numeric, NumericPair} {
		text, err := k.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got Kind
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s): %v", text, err)
		}
		if got != k {
			t.Errorf("round trip of %s gave %s", k, got)
		}
	}

	var k Kind
	if err := k.UnmarshalText([]byte("unknown")); err == nil {
		t.Error("expected error for unknown kind")
	}
}
