// Package errors defines the failure taxonomy of an ingestion run.
//
// ConfigError and StoreError are fatal and stop the run. ErrIdentityMissing marks a
// per-entity skip that callers log and count but never propagate.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

// ErrIdentityMissing is reported when an entity group produced no canonical name.
var ErrIdentityMissing = errors.New("entity identity missing")

// ConfigError is a missing or malformed rules document or application setting.
type ConfigError struct {
	Source  string
	Field   string
	Message string
	Err     error
}

func NewConfigError(source, msg string) *ConfigError {
	return &ConfigError{Source: source, Message: msg}
}

func NewConfigErrorf(source, format string, args ...any) *ConfigError {
	err := fmt.Errorf(format, args...)
	return &ConfigError{Source: source, Message: err.Error(), Err: errors.Unwrap(err)}
}

func (e *ConfigError) AddField(field string) *ConfigError {
	e.Field = field
	return e
}

func (e *ConfigError) Error() string {
	path := []string{}
	if e.Source != "" {
		path = append(path, e.Source)
	}
	if e.Field != "" {
		path = append(path, fmt.Sprintf("field '%s'", e.Field))
	}
	if len(path) == 0 {
		return "config: " + e.Message
	}
	return "config: " + strings.Join(path, " -> ") + ": " + e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, e.Error()).AddMetaValue("source", e.Source).AddMetaValue("field", e.Field)
}

// StoreError is any failure executing a statement against the graph store.
type StoreError struct {
	Op  string
	Err error
}

func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("graph store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadGateway, "graph store unavailable").AddMetaValue("op", e.Op)
}

func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// ToHTTPError converts a taxonomy error into an HTTP error; other errors pass through.
func ToHTTPError(err error) error {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.ToHTTPError()
	}
	var se *StoreError
	if errors.As(err, &se) {
		return se.ToHTTPError()
	}
	return err
}
