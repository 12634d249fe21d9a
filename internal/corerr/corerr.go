// Package corerr wraps ordinary Go errors the way rclone's lib/errors
// does, walking both the stdlib Unwrap chain and the older Cause()
// convention, so that I/O failures picked up while reading the
// registry or loading a native library can be inspected uniformly
// before being converted to an errcode.Code at the runtime boundary.
package corerr

import (
	"fmt"
	"reflect"

	"github.com/ncw/comrt/internal/errcode"
)

// causer is satisfied by errors that expose their underlying cause
// without using the stdlib Unwrap convention.
type causer interface {
	Cause() error
}

// wrapper is the stdlib single-error unwrap convention.
type wrapper interface {
	Unwrap() error
}

// multiWrapper is the stdlib multi-error unwrap convention
// (errors.Join).
type multiWrapper interface {
	Unwrap() []error
}

// Walk calls fn on err and then on each wrapped error in turn,
// following Unwrap() error, Unwrap() []error, and Cause() error in
// that order of preference, and falling back to an exported Err
// struct field via reflection when none of those are implemented.
// Walk stops descending into a branch as soon as fn returns true for
// the error it was just given.
func Walk(err error, fn func(error) bool) {
	for err != nil {
		if fn(err) {
			return
		}
		switch e := err.(type) {
		case multiWrapper:
			for _, sub := range e.Unwrap() {
				Walk(sub, fn)
			}
			return
		case wrapper:
			err = e.Unwrap()
		case causer:
			err = e.Cause()
		default:
			err = reflectCause(err)
		}
	}
}

// reflectCause looks for an exported "Err" field holding an error on a
// struct value, the last-resort fallback lib/errors.Walk also uses for
// error types that predate the Unwrap/Cause conventions. An unexported
// "err" field cannot be read through reflection and is skipped.
func reflectCause(err error) error {
	v := reflect.ValueOf(err)
	if v.Kind() != reflect.Struct {
		return nil
	}
	for _, name := range []string{"Err", "err"} {
		f := v.FieldByName(name)
		if !f.IsValid() || !f.CanInterface() {
			continue
		}
		if cause, ok := f.Interface().(error); ok {
			return cause
		}
	}
	return nil
}

// Wrapped is a minimal wrapper error carrying a message and a cause,
// implementing both Unwrap and Cause so it composes with any walker.
type Wrapped struct {
	Msg string
	Err error
}

// Wrap annotates err with msg. Wrap(nil, msg) returns nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Wrapped{Msg: msg, Err: err}
}

func (w *Wrapped) Error() string {
	if w.Err == nil {
		return w.Msg
	}
	return fmt.Sprintf("%s: %s", w.Msg, w.Err)
}

func (w *Wrapped) Unwrap() error { return w.Err }
func (w *Wrapped) Cause() error  { return w.Err }

// Classified pairs a classified errcode.Code with the raw cause that
// produced it. It implements the multi-error Unwrap() []error
// convention rather than a single-error chain, so Walk (and ordinary
// errors.Is/errors.As) can reach both branches independently: code is
// what ToCode recovers at the runtime boundary, cause is the original
// error a caller like registry's isNotFound still needs to inspect.
type Classified struct {
	Msg   string
	Code  errcode.Code
	Cause error
}

// WrapCode classifies err as code under msg, keeping err reachable as
// Classified's cause branch. WrapCode(code, nil, msg) returns nil.
func WrapCode(code errcode.Code, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Classified{Msg: msg, Code: code, Cause: err}
}

func (c *Classified) Error() string {
	if c.Cause == nil {
		return fmt.Sprintf("%s: %s", c.Msg, c.Code)
	}
	return fmt.Sprintf("%s: %s: %s", c.Msg, c.Code, c.Cause)
}

func (c *Classified) Unwrap() []error { return []error{c.Code, c.Cause} }

// ToCode converts a Go error to an errcode.Code by walking its cause
// chain for the first errcode.Code it finds, falling back to
// fallback when none is present. This is the one boundary where an
// internal Go error becomes the wire-level result value every comrt
// operation returns.
func ToCode(err error, fallback errcode.Code) errcode.Code {
	if err == nil {
		return errcode.OK
	}
	var found errcode.Code
	ok := false
	Walk(err, func(e error) bool {
		if c, isCode := e.(errcode.Code); isCode {
			found = c
			ok = true
			return true
		}
		return false
	})
	if ok {
		return found
	}
	return fallback
}
