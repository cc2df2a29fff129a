package resource

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ErrEmptyID is returned by item operations called with id "".
var ErrEmptyID = errors.New("resource: empty id")

// ValidationError is returned by Create and Update when the value fails its
// own rules. No request is sent.
type ValidationError struct {
	Resource string
	// Fields maps a JSON field name to its message. Empty when the rules
	// failed as a whole (Err is then the cause).
	Fields map[string]string
	Err    error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: invalid: %v", e.Resource, e.Err)
	}
	names := make([]string, 0, len(e.Fields))
	for n := range e.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + ": " + e.Fields[n]
	}
	return fmt.Sprintf("%s: invalid: %s", e.Resource, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return e.Err }

// validate runs the ozzo rules of v, declared on T or *T, if it has any.
func validate[T any](resource string, v *T) error {
	var vv validation.Validatable
	if x, ok := any(*v).(validation.Validatable); ok {
		vv = x
	} else if x, ok := any(v).(validation.Validatable); ok {
		vv = x
	} else {
		return nil
	}
	err := vv.Validate()
	if err == nil {
		return nil
	}
	ve := &ValidationError{Resource: resource, Err: err}
	var fields validation.Errors
	if errors.As(err, &fields) {
		ve.Fields = flatten("", fields)
	}
	return ve
}

func flatten(prefix string, errs validation.Errors) map[string]string {
	out := make(map[string]string, len(errs))
	for name, err := range errs {
		if err == nil {
			continue
		}
		var nested validation.Errors
		if errors.As(err, &nested) {
			for k, v := range flatten(prefix+name+".", nested) {
				out[k] = v
			}
			continue
		}
		out[prefix+name] = err.Error()
	}
	return out
}
