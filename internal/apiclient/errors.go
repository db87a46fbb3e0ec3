package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnexpected   = errors.New("unexpected status")
)

// Error is a non-2xx backend response.
type Error struct {
	Method string
	Path   string
	Status int
	Body   []byte
	Fields map[string][]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

func (e *Error) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return ErrUnauthorized
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return ErrValidation
	default:
		return ErrUnexpected
	}
}

// Field returns the first message the backend reported for name.
func (e *Error) Field(name string) (string, bool) {
	msgs := e.Fields[name]
	if len(msgs) == 0 {
		return "", false
	}
	return msgs[0], true
}

// FieldNames lists the fields carrying messages, sorted.
func (e *Error) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func newError(method, path string, resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &Error{
		Method: method,
		Path:   path,
		Status: resp.StatusCode,
		Body:   body,
		Fields: parseFields(body),
	}
}

// parseFields flattens a DRF-style error object. Values may be a string,
// a list of strings or a nested object.
func parseFields(body []byte) map[string][]string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}
	out := make(map[string][]string, len(raw))
	for k, v := range raw {
		if msgs := messages(v); len(msgs) > 0 {
			out[k] = msgs
		}
	}
	return out
}

func messages(v json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if s = strings.TrimSpace(s); s != "" {
			return []string{s}
		}
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(v, &list); err == nil {
		var out []string
		for _, item := range list {
			out = append(out, messages(item)...)
		}
		return out
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(v, &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			out = append(out, messages(obj[k])...)
		}
		return out
	}
	return nil
}
