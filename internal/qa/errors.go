package qa

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindInternal is an unexpected failure.
	KindInternal Kind = iota
	// KindInputFormat covers unsupported file types and empty extracted text.
	KindInputFormat
	// KindNotReady means the document has not reached the state the
	// operation requires (query before embedding, embed before ingestion).
	KindNotReady
	// KindProvider covers embedding or completion provider failures,
	// including malformed JSON from the completion provider.
	KindProvider
)

func (k Kind) String() string {
	switch k {
	case KindInputFormat:
		return "input_format"
	case KindNotReady:
		return "not_ready"
	case KindProvider:
		return "provider"
	default:
		return "internal"
	}
}

// Error is a classified pipeline error. None are retried automatically.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// ErrKind returns the Kind of err, or KindInternal if err is not a *Error.
func ErrKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func inputFormatError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInputFormat, Message: fmt.Sprintf(format, args...)}
}

func notReadyError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotReady, Message: fmt.Sprintf(format, args...)}
}

func providerError(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindProvider, Message: fmt.Sprintf(format, args...), Err: err}
}
