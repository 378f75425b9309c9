package errors

import (
	"sort"
	"strings"
)

// FieldErrors collects request validation failures keyed by JSON field name.
type FieldErrors struct {
	fields map[string][]string
}

func NewFieldErrors() *FieldErrors {
	return &FieldErrors{fields: make(map[string][]string)}
}

func (e *FieldErrors) Add(field, message string) {
	e.fields[field] = append(e.fields[field], message)
}

func (e *FieldErrors) HasErrors() bool {
	return len(e.fields) > 0
}

// Fields returns a copy of the collected messages, suitable for a response body.
func (e *FieldErrors) Fields() map[string][]string {
	out := make(map[string][]string, len(e.fields))
	for field, messages := range e.fields {
		out[field] = append([]string(nil), messages...)
	}
	return out
}

// Error lists every message ordered by field name.
func (e *FieldErrors) Error() string {
	names := make([]string, 0, len(e.fields))
	for field := range e.fields {
		names = append(names, field)
	}
	sort.Strings(names)

	var parts []string
	for _, field := range names {
		for _, message := range e.fields[field] {
			parts = append(parts, field+": "+message)
		}
	}
	return strings.Join(parts, "; ")
}
