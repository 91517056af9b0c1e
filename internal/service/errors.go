package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/prohmpiriya/jelli-fit/internal/ident"
)

// Service errors
var (
	ErrEventNotFound  = errors.New("event not found")
	ErrPersonNotFound = errors.New("person not found")
	ErrNotAuthorized  = errors.New("not authorized")
	ErrAdaptorFailure = errors.New("storage adaptor failure")

	// ErrAllocationExhausted means no free event id was found within the
	// attempt cap
	ErrAllocationExhausted = ident.ErrAllocationExhausted
)

// AdaptorError wraps an opaque storage failure with the operation that hit it
type AdaptorError struct {
	Op  string
	Err error
}

func (e *AdaptorError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrAdaptorFailure, e.Op, e.Err)
}

func (e *AdaptorError) Unwrap() error {
	return e.Err
}

// Is makes every AdaptorError match ErrAdaptorFailure
func (e *AdaptorError) Is(target error) bool {
	return target == ErrAdaptorFailure
}

func adaptorErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &AdaptorError{Op: op, Err: err}
}

// ValidationError lists invalid input fields
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

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
