package remote

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oremus-labs/watchdesk/internal/forms"
)

// Kind classifies a failed call.
type Kind string

const (
	KindConnectivity Kind = "connectivity"
	KindHTTP         Kind = "http"
	KindMalformed    Kind = "malformed"
	KindUnknown      Kind = "unknown"
	KindValidation   Kind = "validation"
)

// ConnectivityMessage is reported when the backend cannot be reached.
const ConnectivityMessage = "No se pudo conectar con el servidor. Verifica que el backend esté ejecutándose."

// CanceledMessage is reported when the caller's context ends first.
const CanceledMessage = "request canceled"

// Error is the internal form of a failed attempt or call.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Body    json.RawMessage
	Err     error
	// permanent failures are never retried.
	permanent bool
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result is the envelope every client operation returns.
// Success is the discriminant: Data is meaningful only when it is true,
// Error/Status/Kind only when it is false.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Status  int    `json:"status,omitempty"`
	Kind    Kind   `json:"kind,omitempty"`
}

// MarshalJSON emits data on success and error fields on failure, never both.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.Success {
		return json.Marshal(struct {
			Success bool `json:"success"`
			Data    T    `json:"data"`
		}{true, r.Data})
	}
	return json.Marshal(struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Status  int    `json:"status,omitempty"`
		Kind    Kind   `json:"kind,omitempty"`
	}{false, r.Error, r.Status, r.Kind})
}

// Err returns nil for a successful envelope and an *Error otherwise.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	return &Error{Kind: r.Kind, Status: r.Status, Message: r.Error}
}

// OK wraps data in a success envelope.
func OK[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail converts any error into a failure envelope.
func Fail[T any](err error) Result[T] {
	e := asError(err)
	return Result[T]{Error: e.Message, Status: e.Status, Kind: e.Kind}
}

func asError(err error) *Error {
	if err == nil {
		return &Error{Kind: KindUnknown, Message: "Error desconocido"}
	}
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	var fe *forms.Error
	if errors.As(err, &fe) {
		return &Error{Kind: KindValidation, Message: fe.Message, Err: err}
	}
	msg := err.Error()
	if msg == "" {
		msg = "Error desconocido"
	}
	return &Error{Kind: KindUnknown, Message: msg, Err: err}
}

func malformed(status int, err error) *Error {
	return &Error{
		Kind:    KindMalformed,
		Status:  status,
		Message: fmt.Sprintf("respuesta inválida del servidor: %v", err),
		Err:     err,
	}
}
