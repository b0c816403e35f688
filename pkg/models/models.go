package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// AnswerRequest is the body of a question sent to the answer endpoint.
type AnswerRequest struct {
	Prompt       string `json:"prompt"`
	GeminiAPIKey string `json:"gemini_api_key,omitempty"`
	Filters      string `json:"filters,omitempty"`
}

type RetrieveRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type SummaryRequest struct {
	TextList     []string `json:"text_list"`
	GeminiAPIKey string   `json:"gemini_api_key,omitempty"`
}

// Statistics keeps the counts as the server wrote them; an empty value means
// the key was missing or null.
type Statistics struct {
	NumDocuments json.Number `json:"num_documents"`
	NumChunks    json.Number `json:"num_chunks"`
}

type SearchResult struct {
	Score    float64        `json:"score"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Field is a single key of a document descriptor, kept with its raw JSON value.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Document is a descriptor returned by the listing endpoint. Every key but
// path lands in Fields in the order the server sent it. A path that is not a
// string is kept as compact JSON text; Path is empty when the key is absent.
type Document struct {
	Path   string
	Fields []Field
}

func (d *Document) UnmarshalJSON(b []byte) error {
	if string(bytes.TrimSpace(b)) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("document descriptor must be a JSON object")
	}

	var out Document
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		if key == "path" {
			out.Path = rawText(raw)
			continue
		}
		out.Fields = append(out.Fields, Field{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = out
	return nil
}

// Get returns the raw value for key, if present.
func (d Document) Get(key string) (json.RawMessage, bool) {
	for _, f := range d.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
