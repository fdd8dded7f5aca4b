// Package chat validates inbound chat payloads before they reach a model.
package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	// MaxDocumentContextIntake is the largest accepted pdfText, in characters.
	MaxDocumentContextIntake = 500_000
	// MaxDocumentContext is what survives into the system instruction.
	MaxDocumentContext = 200_000
)

// ErrInvalidRequest is the only thing callers outside the server get to see
// about a malformed body.
var ErrInvalidRequest = errors.New("invalid request body")

var requestValidate = validator.New()

// ValidationError wraps the internal reason a body was refused.
// It matches ErrInvalidRequest under errors.Is.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return ErrInvalidRequest.Error()
	}
	return ErrInvalidRequest.Error() + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRequest }

// Request is a validated chat request.
//
// Messages are kept as raw JSON in conversation order; their shape belongs
// to the proxy that converts them for a provider.
type Request struct {
	Messages        []json.RawMessage
	DocumentContext string
}

type body struct {
	Messages []json.RawMessage `json:"messages"`
	PDFText  json.RawMessage   `json:"pdfText"`
}

type intake struct {
	Messages        []json.RawMessage `validate:"required"`
	DocumentContext string            `validate:"max=500000"`
}

// Validate decodes and checks a raw POST /api/chat body.
func Validate(raw []byte) (Request, error) {
	var b body
	if err := json.Unmarshal(raw, &b); err != nil {
		return Request{}, &ValidationError{Err: fmt.Errorf("decode body: %w", err)}
	}

	in := intake{Messages: b.Messages}
	if pdf := bytes.TrimSpace(b.PDFText); len(pdf) > 0 {
		if bytes.Equal(pdf, []byte("null")) {
			return Request{}, &ValidationError{Err: errors.New("pdfText must be a string")}
		}
		if err := json.Unmarshal(pdf, &in.DocumentContext); err != nil {
			return Request{}, &ValidationError{Err: fmt.Errorf("pdfText: %w", err)}
		}
	}

	if err := requestValidate.Struct(in); err != nil {
		return Request{}, &ValidationError{Err: err}
	}

	return Request{
		Messages:        in.Messages,
		DocumentContext: Truncate(in.DocumentContext, MaxDocumentContext),
	}, nil
}

// Truncate keeps the first n characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	seen := 0
	for i := range s {
		if seen == n {
			return s[:i]
		}
		seen++
	}
	return s
}
