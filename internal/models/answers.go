package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Answers is an insertion-ordered map of field name to answer value.
// Values are string, float64 or []string once normalized by validation.
type Answers struct {
	order  []string
	values map[string]any
}

func NewAnswers() *Answers {
	return &Answers{values: make(map[string]any)}
}

// Set stores value under field. Re-setting a field keeps its original position.
func (a *Answers) Set(field string, value any) {
	if a.values == nil {
		a.values = make(map[string]any)
	}
	if _, exists := a.values[field]; !exists {
		a.order = append(a.order, field)
	}
	a.values[field] = value
}

func (a *Answers) Get(field string) (any, bool) {
	if a == nil || a.values == nil {
		return nil, false
	}
	v, ok := a.values[field]
	return v, ok
}

func (a *Answers) Has(field string) bool {
	_, ok := a.Get(field)
	return ok
}

func (a *Answers) Len() int {
	if a == nil {
		return 0
	}
	return len(a.order)
}

// Fields returns the field names in insertion order.
func (a *Answers) Fields() []string {
	if a == nil {
		return nil
	}
	return append([]string(nil), a.order...)
}

// Clone returns a shallow copy; slice values are copied.
func (a *Answers) Clone() *Answers {
	out := NewAnswers()
	if a == nil {
		return out
	}
	for _, field := range a.order {
		v := a.values[field]
		if list, ok := v.([]string); ok {
			v = append([]string(nil), list...)
		}
		out.Set(field, v)
	}
	return out
}

func (a *Answers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if a != nil {
		for i, field := range a.order {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(field)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(a.values[field])
			if err != nil {
				return nil, fmt.Errorf("marshal answer %q: %w", field, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (a *Answers) UnmarshalJSON(data []byte) error {
	a.order = nil
	a.values = make(map[string]any)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("answers: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("answers: expected string key, got %v", keyTok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("answers: decode %q: %w", key, err)
		}
		a.Set(key, normalizeDecoded(raw))
	}
	_, err = dec.Token()
	return err
}

// normalizeDecoded turns []any of strings back into []string.
func normalizeDecoded(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, fmt.Sprint(item))
	}
	return out
}
