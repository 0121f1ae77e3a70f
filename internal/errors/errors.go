// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines the error taxonomy shared by the Hyperbase client packages.
// Every failure that leaves the HTTP boundary, the schema validator or the session
// layer carries an explicit Kind so callers can decide how to surface it without
// probing the shape of the error value.
//
// The four kinds are:
//   - KindService: the server answered with a non-2xx status and an error envelope.
//   - KindValidation: the client rejected input before any network call was made.
//   - KindAborted: the caller cancelled the request; never shown to users.
//   - KindTransport: the server could not be reached or answered with something unparseable.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// KindUnknown is reported for errors produced outside this taxonomy.
	KindUnknown Kind = "unknown"
	// KindService indicates an error reported by the server.
	KindService Kind = "service"
	// KindValidation indicates a client-side rejection before any request was sent.
	KindValidation Kind = "validation"
	// KindAborted indicates a caller-initiated cancellation.
	KindAborted Kind = "aborted"
	// KindTransport indicates a network or decoding failure.
	KindTransport Kind = "transport"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

// Is reports whether target is an *E of the same kind and message, so that
// wrapped copies of the sentinels below still match with errors.Is.
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

var (
	// ErrAborted is returned when the caller's context was cancelled mid-request.
	ErrAborted = New(KindAborted, "request aborted")
	// ErrDeleted is returned by a resource handle once its Delete call succeeded.
	ErrDeleted = New(KindValidation, "handle refers to a deleted resource")
	// ErrNotAuthenticated is returned when an operation needs a session token and none is held.
	ErrNotAuthenticated = New(KindValidation, "not signed in")
)

// ServiceError is the error envelope returned by the server: { "status", "message" }.
type ServiceError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

// Reason explains why a record failed schema validation.
type Reason string

const (
	ReasonMissingField Reason = "missing_field"
	ReasonTypeMismatch Reason = "type_mismatch"
	ReasonUnknownField Reason = "unknown_field"
	ReasonUnknownKind  Reason = "unknown_kind"
	ReasonInvalidID    Reason = "invalid_id"
)

// ValidationError reports a client-side rejection of a single field.
type ValidationError struct {
	Field  string
	Reason Reason
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonMissingField:
		return fmt.Sprintf("value for '%s' is required", e.Field)
	case ReasonTypeMismatch:
		return fmt.Sprintf("field '%s' has an incorrect type value", e.Field)
	case ReasonUnknownField:
		return fmt.Sprintf("field '%s' is not part of the schema", e.Field)
	case ReasonUnknownKind:
		return fmt.Sprintf("field '%s' has an unsupported kind", e.Field)
	case ReasonInvalidID:
		return fmt.Sprintf("'%s' is not a valid id", e.Field)
	}
	return fmt.Sprintf("field '%s' is invalid: %s", e.Field, e.Reason)
}

// MissingField builds a ValidationError for an absent mandatory field.
func MissingField(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: ReasonMissingField}
}

// TypeMismatch builds a ValidationError for a value that cannot be coerced.
func TypeMismatch(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: ReasonTypeMismatch}
}

// TransportError reports a request that never produced a server verdict.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// KindOf classifies err. A nil error has no kind and yields "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	var serviceErr *ServiceError
	if stderrors.As(err, &serviceErr) {
		return KindService
	}
	var validationErr *ValidationError
	if stderrors.As(err, &validationErr) {
		return KindValidation
	}
	var transportErr *TransportError
	if stderrors.As(err, &transportErr) {
		return KindTransport
	}
	return KindUnknown
}

// IsAborted reports whether err stems from a caller cancellation.
func IsAborted(err error) bool {
	return KindOf(err) == KindAborted
}
