package rim

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies generation failures.
type Kind string

const (
	KindValidation    Kind = "ValidationError"
	KindDegenerate    Kind = "ProfileDegenerate"
	KindHoleOverlap   Kind = "HoleOverlap"
	KindNonManifold   Kind = "NonManifoldResult"
	KindTimeout       Kind = "Timeout"
	KindUnimplemented Kind = "Unimplemented"
	KindOverloaded    Kind = "Overloaded"
	KindInternal      Kind = "Internal"
)

// Retryable reports whether the same request may succeed later.
func (k Kind) Retryable() bool {
	return k == KindTimeout || k == KindOverloaded
}

// Component names the stage that raised an error.
type Component string

const (
	CompValidator    Component = "validator"
	CompProfile      Component = "profile"
	CompFeatures     Component = "features"
	CompAssembler    Component = "assembler"
	CompExporter     Component = "exporter"
	CompOrchestrator Component = "orchestrator"
)

// FieldError is a single violated constraint on a wire field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (f FieldError) String() string { return f.Field + ": " + f.Message }

// Error is returned by every generation stage.
type Error struct {
	Kind      Kind
	Component Component
	Msg       string
	Fields    []FieldError
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Component != "" {
		b.WriteString(string(e.Component))
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	for i, f := range e.Fields {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(f.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind. A target without
// component matches any component.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Component == "" || t.Component == e.Component)
}

// Sentinels for errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrDegenerate    = &Error{Kind: KindDegenerate}
	ErrHoleOverlap   = &Error{Kind: KindHoleOverlap}
	ErrNonManifold   = &Error{Kind: KindNonManifold}
	ErrTimeout       = &Error{Kind: KindTimeout}
	ErrUnimplemented = &Error{Kind: KindUnimplemented}
	ErrOverloaded    = &Error{Kind: KindOverloaded}
)

func newError(kind Kind, comp Component, format string, args ...any) *Error {
	return &Error{Kind: kind, Component: comp, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and component to err unless err already is an *Error,
// in which case it is returned unchanged.
func Wrap(err error, kind Kind, comp Component, msg string) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	return &Error{Kind: kind, Component: comp, Msg: msg, Err: err}
}

// KindOf returns the kind of a generation error, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindInternal
}

// ComponentOf returns the component that raised err, if known.
func ComponentOf(err error) Component {
	var re *Error
	if errors.As(err, &re) {
		return re.Component
	}
	return ""
}
