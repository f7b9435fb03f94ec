package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Encode converts a value to document fields via its JSON form
func Encode(v any) (Fields, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return decodeFields(data)
}

// Decode fills v from document fields via their JSON form
func Decode(f Fields, v any) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func decodeFields(data []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var f Fields
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("document body is not a JSON object: %w", err)
	}
	if f == nil {
		f = Fields{}
	}
	return f, nil
}

// merge applies a top-level merge patch
func merge(dst, patch Fields) Fields {
	out := make(Fields, len(dst)+len(patch))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// envelope is the stored form of a document in the key/value backends
type envelope struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	Pos       int             `json:"pos,omitempty"` // position within the write that created it
	Fields    json.RawMessage `json:"fields"`
}

func newEnvelope(id string, createdAt time.Time, pos int, f Fields) ([]byte, error) {
	if f == nil {
		f = Fields{}
	}
	body, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode document %s: %w", id, err)
	}
	return json.Marshal(envelope{ID: id, CreatedAt: createdAt.UTC(), Pos: pos, Fields: body})
}

func openEnvelope(data []byte) (envelope, Document, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, Document{}, fmt.Errorf("corrupt document: %w", err)
	}
	f, err := decodeFields(env.Fields)
	if err != nil {
		return env, Document{}, fmt.Errorf("corrupt document %s: %w", env.ID, err)
	}
	return env, Document{ID: env.ID, CreatedAt: env.CreatedAt, Fields: f}, nil
}
