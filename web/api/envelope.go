package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is the backend's wrapper for single-entity responses.
type Envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// Page is a decoded list response.
type Page[T any] struct {
	Items  []T
	Total  int
	Limit  int
	Offset int
}

// EnvelopeError describes a response whose shape did not match the envelope contract.
type EnvelopeError struct {
	Reason string
}

func (e *EnvelopeError) Error() string {
	return "malformed envelope: " + e.Reason
}

type rawEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// DecodeEnvelope decodes {"data": T, "message": "..."}. A null or absent data field is an error.
func DecodeEnvelope[T any](raw json.RawMessage) (Envelope[T], error) {
	var out Envelope[T]
	if isNull(raw) {
		return out, &EnvelopeError{Reason: "empty body"}
	}

	var env rawEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return out, &EnvelopeError{Reason: "body is not an object"}
	}
	if isNull(env.Data) {
		return out, &EnvelopeError{Reason: "data is missing"}
	}
	if err := json.Unmarshal(env.Data, &out.Data); err != nil {
		return out, &EnvelopeError{Reason: fmt.Sprintf("data does not match: %v", err)}
	}
	out.Message = env.Message
	return out, nil
}

// DecodeList decodes a list response. Accepted shapes are
//
//	{"data": {"<key>": [...], "total": n, "limit": n, "offset": n}}
//	{"data": [...]}
//
// where the first of keys present in data wins. Any other shape yields an
// empty page and an *EnvelopeError.
func DecodeList[T any](raw json.RawMessage, keys ...string) (Page[T], error) {
	empty := Page[T]{Items: []T{}}

	if isNull(raw) {
		return empty, &EnvelopeError{Reason: "empty body"}
	}

	var env rawEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return empty, &EnvelopeError{Reason: "body is not an object"}
	}
	if isNull(env.Data) {
		return empty, &EnvelopeError{Reason: "data is missing"}
	}

	data := bytes.TrimSpace(env.Data)
	if data[0] == '[' {
		items, err := decodeItems[T](data)
		if err != nil {
			return empty, err
		}
		return Page[T]{Items: items, Total: len(items)}, nil
	}
	if data[0] != '{' {
		return empty, &EnvelopeError{Reason: "data is neither an object nor an array"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return empty, &EnvelopeError{Reason: "data is not an object"}
	}

	var (
		list  json.RawMessage
		found string
	)
	for _, key := range keys {
		if v, ok := fields[key]; ok {
			list, found = v, key
			break
		}
	}
	if found == "" {
		return empty, &EnvelopeError{Reason: fmt.Sprintf("none of %v present in data", keys)}
	}
	if isNull(list) || bytes.TrimSpace(list)[0] != '[' {
		return empty, &EnvelopeError{Reason: fmt.Sprintf("data.%s is not an array", found)}
	}

	items, err := decodeItems[T](list)
	if err != nil {
		return empty, err
	}

	page := Page[T]{Items: items, Total: len(items)}
	decodeInt(fields["total"], &page.Total)
	decodeInt(fields["limit"], &page.Limit)
	decodeInt(fields["offset"], &page.Offset)
	return page, nil
}

func decodeItems[T any](raw json.RawMessage) ([]T, error) {
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &EnvelopeError{Reason: fmt.Sprintf("list element does not match: %v", err)}
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// decodeInt leaves dst unchanged when raw is absent or not a number.
func decodeInt(raw json.RawMessage, dst *int) {
	if isNull(raw) {
		return
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		*dst = n
	}
}
