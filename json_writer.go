package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// objectWriter builds a JSON object keeping the fields in insertion order.
// Its zero value is ready to use.
type objectWriter struct {
	bytes.Buffer
	err error
}

// Embed merges the fields of a raw JSON object into the object being built.
func (w *objectWriter) Embed(rawJSON []byte) *objectWriter {
	if w.err != nil {
		return w
	}
	trimmed := bytes.TrimSpace(rawJSON)
	if len(trimmed) >= 2 && trimmed[0] == '{' && trimmed[len(trimmed)-1] == '}' {
		trimmed = trimmed[1 : len(trimmed)-1]
	}
	if len(trimmed) > 0 {
		w.Write(trimmed)
		w.WriteByte(',')
	}
	return w
}

// EmbedFrom marshals v into a JSON object and embeds its fields.
func (w *objectWriter) EmbedFrom(v any) *objectWriter {
	if w.err != nil {
		return w
	}
	rawJSON, err := json.Marshal(v)
	if err != nil {
		w.err = fmt.Errorf("failed to marshal for embedding: %w", err)
		return w
	}
	return w.Embed(rawJSON)
}

// Append adds a new key-value pair to the JSON object. The value is marshaled
// to JSON using `json.Marshal`.
func (w *objectWriter) Append(key string, value any) *objectWriter {
	if w.err != nil {
		return w
	}
	valBytes, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("failed to marshal value for key %q: %w", key, err)
		return w
	}
	fmt.Fprintf(w, "%q:", key)
	w.Write(valBytes)
	w.WriteByte(',')
	return w
}

// Optional appends a key-value pair only if value is not its type's zero
// value.
func (w *objectWriter) Optional(key string, value any) *objectWriter {
	if w.err != nil {
		return w
	}
	v := reflect.ValueOf(value)
	if !v.IsValid() || v.IsZero() {
		return w
	}
	return w.Append(key, value)
}

// OptionalMoney appends m only when it carries a currency or a non zero amount.
func (w *objectWriter) OptionalMoney(key string, m Money) *objectWriter {
	if m.cur == "" && m.value.IsZero() {
		return w
	}
	return w.Append(key, m)
}

// MarshalJSON wraps the content in braces and returns the JSON object.
func (w *objectWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	content := bytes.TrimSuffix(w.Bytes(), []byte(","))
	final := make([]byte, 0, len(content)+2)
	final = append(final, '{')
	final = append(final, content...)
	final = append(final, '}')
	return final, nil
}
