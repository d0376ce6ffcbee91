package book

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// TextKind tells the two wire shapes of free text apart.
type TextKind int

const (
	// TextPlain is a bare JSON string.
	TextPlain TextKind = iota
	// TextTyped is an object of the form {"type": "/type/text", "value": "..."}.
	TextTyped
)

// Text is free text that providers send either as a plain string or as a
// typed object.
type Text struct {
	Kind  TextKind
	Type  string
	Value string
}

// UnmarshalJSON accepts both shapes. null leaves the zero value.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text{Kind: TextPlain, Value: s}
		return nil
	case '{':
		var typed struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		}
		if err := json.Unmarshal(data, &typed); err != nil {
			return err
		}
		*t = Text{Kind: TextTyped, Type: typed.Type, Value: typed.Value}
		return nil
	default:
		return fmt.Errorf("text: expected string or {type,value} object, got %s", truncate(data, 32))
	}
}

// MarshalJSON writes the text back in the shape it arrived in.
func (t Text) MarshalJSON() ([]byte, error) {
	if t.Kind == TextTyped {
		return json.Marshal(struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		}{t.Type, t.Value})
	}
	return json.Marshal(t.Value)
}

// Normalize returns the trimmed text, or nil when t is nil or blank.
func (t *Text) Normalize() *string {
	if t == nil {
		return nil
	}
	v := strings.TrimSpace(t.Value)
	if v == "" {
		return nil
	}
	return &v
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
