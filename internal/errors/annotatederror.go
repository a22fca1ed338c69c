// Package errors extends the standard library errors with annotations that are rendered as structured log
// attributes together with the source location where the error was wrapped.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
)

// annotatedError is an error enriched with a message, slog attributes and the program counter of the call site.
type annotatedError struct {
	msg   string
	cause error
	attrs []slog.Attr
	pc    uintptr
	// file and line are set when the location is already resolved, e.g. for recovered panics.
	file string
	line int
}

func (e *annotatedError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.cause
}

// source returns "file:line" of the call site that created the error.
func (e *annotatedError) source() string {
	if e.file != "" {
		return e.file + ":" + strconv.Itoa(e.line)
	}
	if e.pc == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{e.pc})
	frame, _ := frames.Next()
	if frame.File == "" {
		return ""
	}
	return frame.File + ":" + strconv.Itoa(frame.Line)
}

// callerPC returns the program counter of the function calling the exported constructor.
func callerPC() uintptr {
	var pcs [1]uintptr
	// Skip runtime.Callers, callerPC and the exported constructor.
	if runtime.Callers(3, pcs[:]) == 0 { //nolint:mnd // see above.
		return 0
	}
	return pcs[0]
}

// NewSentinel creates a plain error without annotations meant to be declared as a package level variable.
func NewSentinel(msg string) error {
	return stderrors.New(msg) //nolint:err113 // this is the sentinel constructor.
}

// New creates an annotated error recording the call site.
func New(msg string, attrs ...slog.Attr) error {
	return &annotatedError{msg: msg, cause: nil, attrs: attrs, pc: callerPC(), file: "", line: 0}
}

// Wrap annotates err with msg and attrs. It returns nil if err is nil.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return &annotatedError{msg: msg, cause: err, attrs: attrs, pc: callerPC(), file: "", line: 0}
}

// DecoratePanic converts a recovered value into an error pointing to the line that panicked.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	var pcs [32]uintptr
	n := runtime.Callers(2, pcs[:]) //nolint:mnd // skip runtime.Callers and DecoratePanic.
	frames := runtime.CallersFrames(pcs[:n])
	var (
		panicSite runtime.Frame
		seenPanic bool
	)
	for {
		frame, more := frames.Next()
		if seenPanic && !strings.HasPrefix(frame.Function, "runtime.") {
			panicSite = frame
			break
		}
		if frame.Function == "runtime.gopanic" {
			seenPanic = true
		}
		if !more {
			break
		}
	}
	var cause error
	if err, ok := excp.(error); ok {
		cause = err
	} else {
		cause = fmt.Errorf("%v", excp) //nolint:err113 // the panic value is dynamic.
	}
	return &annotatedError{msg: "panic", cause: cause, attrs: nil, pc: 0, file: panicSite.File, line: panicSite.Line}
}

// SlogError renders err as a slog group containing the message, the collected annotations and the source location
// of the innermost annotated error.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	var (
		annotations []any
		source      string
	)
	walk(err, func(ae *annotatedError) {
		for _, a := range ae.attrs {
			annotations = append(annotations, a)
		}
		if s := ae.source(); s != "" {
			source = s
		}
	})
	attrs := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	if source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	return slog.Group("error", attrs...)
}

// walk visits every annotated error in the tree of err, outermost first.
func walk(err error, visit func(*annotatedError)) {
	if err == nil {
		return
	}
	if ae, ok := err.(*annotatedError); ok { //nolint:errorlint // we walk the chain ourselves.
		visit(ae)
	}
	switch x := err.(type) { //nolint:errorlint // we walk the chain ourselves.
	case interface{ Unwrap() error }:
		walk(x.Unwrap(), visit)
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			walk(e, visit)
		}
	}
}

// Is is [errors.Is].
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is [errors.As].
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join is [errors.Join].
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
