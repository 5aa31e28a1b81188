package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrSessionNotFound is returned when a cached token no longer restores
var ErrSessionNotFound = errors.New("session not found")

// ErrIllegalTransition is returned by the checkout reducer for events the current stage does not accept
var ErrIllegalTransition = errors.New("illegal checkout transition")

// PermanentError represents an error that should not be retried
type PermanentError struct {
	Msg string
}

func (e *PermanentError) Error() string {
	return e.Msg
}

// ServiceError is a failed call to a remote service: a transport failure or a non-2xx answer
type ServiceError struct {
	Service    string
	StatusCode int
	Msg        string
}

func (e *ServiceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Service, e.Msg)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.StatusCode, e.Msg)
}

// NotFound reports whether the service answered 404
func (e *ServiceError) NotFound() bool {
	return e.StatusCode == 404
}

// ValidationError represents a validation error that should not be retried
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
