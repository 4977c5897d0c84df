package protocol

import (
	"errors"
	"fmt"
)

// Kind tags a failure reply. The empty kind marks success.
type Kind string

const (
	KindOK                Kind = ""
	KindMissingDependency Kind = "missing_dependency"
	KindInvalidArgument   Kind = "invalid_argument"
	KindLengthMismatch    Kind = "length_mismatch"
	KindRendererError     Kind = "renderer_error"
)

// Legacy kind names still accepted from older workers.
var kindAliases = map[string]Kind{
	"ModuleNotFoundError": KindMissingDependency,
	"ValueError":          KindInvalidArgument,
}

// knownKind maps s to a failure kind, accepting legacy names.
func knownKind(s string) (Kind, bool) {
	if k, ok := kindAliases[s]; ok {
		return k, true
	}
	switch k := Kind(s); k {
	case KindMissingDependency, KindInvalidArgument, KindLengthMismatch, KindRendererError:
		return k, true
	}
	return KindOK, false
}

var (
	// ErrMissingDependency means the worker cannot render dialogs at all.
	ErrMissingDependency = errors.New("missing dependency")
	// ErrInvalidArgument means the request was rejected before any window
	// was shown.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMalformedReply means the worker output could not be decoded.
	ErrMalformedReply = errors.New("malformed reply")
)

// Error is a tagged failure, either raised locally or decoded from a reply.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap maps the kind onto a sentinel so callers can use errors.Is.
func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindMissingDependency:
		return ErrMissingDependency
	case KindInvalidArgument, KindLengthMismatch:
		return ErrInvalidArgument
	}
	return nil
}
