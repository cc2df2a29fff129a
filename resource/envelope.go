package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Paged is the backend's paged list shape.
type Paged[T any] struct {
	Data         []T `json:"data"`
	CurrentPage  int `json:"currentPage"`
	PageSize     int `json:"pageSize"`
	TotalRecords int `json:"totalRecords"`
	TotalPages   int `json:"totalPages"`
}

// HasNext reports whether a page after CurrentPage exists.
func (p Paged[T]) HasNext() bool { return p.CurrentPage < p.TotalPages }

// Code is an envelope status code. The backend sends it as a string or a
// number depending on the endpoint.
type Code string

func (c *Code) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*c = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Code(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("resource: status code: %w", err)
	}
	*c = Code(n.String())
	return nil
}

// Int returns the numeric form of c, 0 when it is not a number.
func (c Code) Int() int {
	n, _ := strconv.Atoi(string(c))
	return n
}

// Envelope is the backend's generic result shape.
type Envelope[T any] struct {
	IsSuccess  bool   `json:"isSuccess"`
	StatusCode Code   `json:"statusCode"`
	Message    string `json:"message"`
	Value      T      `json:"value"`
	Errors     []any  `json:"errors"`
}

// EnvelopeError is an envelope with isSuccess=false on a 2xx response.
type EnvelopeError struct {
	Resource   string
	Op         string
	StatusCode Code
	Message    string
	Errors     []string
}

func (e *EnvelopeError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.Join(e.Errors, "; ")
	}
	if msg == "" {
		msg = "request was not successful"
	}
	return fmt.Sprintf("%s %s: %s", e.Resource, e.Op, msg)
}

// unwrap decodes raw either as an Envelope[T] (when it carries isSuccess)
// or as a bare T. An empty body yields the zero T.
func unwrap[T any](resource, op string, raw json.RawMessage) (T, error) {
	var zero T
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return zero, nil
	}
	if raw[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(raw, &probe); err != nil {
			return zero, fmt.Errorf("resource: %s %s: decode: %w", resource, op, err)
		}
		if _, ok := probe["isSuccess"]; ok {
			var env Envelope[T]
			if err := json.Unmarshal(raw, &env); err != nil {
				return zero, fmt.Errorf("resource: %s %s: decode envelope: %w", resource, op, err)
			}
			if !env.IsSuccess {
				return zero, &EnvelopeError{
					Resource:   resource,
					Op:         op,
					StatusCode: env.StatusCode,
					Message:    env.Message,
					Errors:     messages(env.Errors),
				}
			}
			return env.Value, nil
		}
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("resource: %s %s: decode: %w", resource, op, err)
	}
	return v, nil
}

// messages flattens envelope errors, which come as strings or as
// {"message": ...} objects.
func messages(errs []any) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		switch v := e.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			if m, ok := v["message"].(string); ok {
				out = append(out, m)
			} else if m, ok := v["errorMessage"].(string); ok {
				out = append(out, m)
			}
		}
	}
	return out
}
