package task

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Content is the payload of a message: either free text or a structured
// JSON object. The zero value means "no content supplied".
type Content struct {
	text   string
	data   map[string]any
	isData bool
	set    bool
}

// TextContent wraps a text payload.
func TextContent(s string) Content {
	return Content{text: s, set: true}
}

// DataContent wraps a structured payload.
func DataContent(m map[string]any) Content {
	if m == nil {
		m = map[string]any{}
	}
	return Content{data: m, isData: true, set: true}
}

// IsSet reports whether any payload was supplied.
func (c Content) IsSet() bool { return c.set }

// IsData reports whether the payload is structured.
func (c Content) IsData() bool { return c.isData }

// Text returns the text payload, or "" for structured content.
func (c Content) Text() string { return c.text }

// Data returns the structured payload, or nil for text content.
func (c Content) Data() map[string]any { return c.data }

// IsEmpty reports whether the content carries nothing useful: unset,
// an empty string, or an object with no keys.
func (c Content) IsEmpty() bool {
	if !c.set {
		return true
	}
	if c.isData {
		return len(c.data) == 0
	}
	return c.text == ""
}

// String renders the content as text. Structured payloads are encoded as JSON.
func (c Content) String() string {
	if !c.isData {
		return c.text
	}
	b, err := json.Marshal(c.data)
	if err != nil {
		return fmt.Sprintf("%v", c.data)
	}
	return string(b)
}

func (c Content) clone() Content {
	if !c.isData {
		return c
	}
	out := c
	out.data = cloneMap(c.data)
	return out
}

// MarshalJSON encodes text as a JSON string and structured content as an object.
func (c Content) MarshalJSON() ([]byte, error) {
	switch {
	case !c.set:
		return []byte("null"), nil
	case c.isData:
		return json.Marshal(c.data)
	default:
		return json.Marshal(c.text)
	}
}

// UnmarshalJSON accepts a JSON string, object or null.
func (c *Content) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = Content{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return &ValidationError{Field: "content", Reason: err.Error()}
		}
		*c = TextContent(s)
	case '{':
		var m map[string]any
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return &ValidationError{Field: "content", Reason: err.Error()}
		}
		*c = DataContent(m)
	default:
		return &ValidationError{Field: "content", Reason: "must be a string or an object"}
	}
	return nil
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
