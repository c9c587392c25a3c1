// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors defines the error handling used throughout pandora.
package errors

import (
	"bytes"
	"fmt"
	"log"
	"runtime"
)

// Error is the type that implements the error interface.
// It contains a number of fields, each of different type.
// An Error value may leave some values unset.
type Error struct {
	// Name is the package name involved in the operation, if any.
	Name string
	// Version is the package version involved in the operation, if any.
	Version string
	// Path is the file path involved in the operation, if any.
	Path string
	// Op is the operation being performed, usually the name of the
	// method being invoked (Import, Assemble, Activate, etc.).
	Op string
	// Kind is the class of error, such as a hash mismatch, or Other if
	// its class is unknown or irrelevant.
	Kind Kind
	// The underlying error that triggered this one, if any.
	Err error
}

var (
	_       error = (*Error)(nil)
	zeroErr Error
)

// Separator is the string used to separate nested errors. By
// default, to make errors easier on the eye, nested errors are
// indented on a new line. A caller may instead choose to keep each
// error on a single line by modifying the separator string, perhaps
// to ":: ".
var Separator = ":\n\t"

// Kind defines the class of error. It matches the error taxonomy of
// spec.md §7 one-for-one.
type Kind uint8

// Kinds of errors.
const (
	Other                  Kind = iota // Unclassified error. Not printed.
	ConfigMissing                      // Required configuration key or env var absent.
	ParseFailed                        // Config/manifest/index cannot be parsed.
	NotFound                           // Package or version absent from index.
	FetchFailed                        // Network/transport error or local read failure.
	HashMismatch                       // Computed digest != manifest digest.
	UnsafeArchive                      // Path-safety validation rejected the unpacked tree.
	StoreConflict                      // Version already present with a different digest.
	ProfileConflict                    // Two entries share a normalized relpath.
	ProfileMissingTarget               // An entry references a nonexistent target.
	InvalidInput                       // Malformed name/version/relpath.
	Internal                           // OS call failed in a way not attributable to user input.
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case ConfigMissing:
		return "configuration missing"
	case ParseFailed:
		return "parse failed"
	case NotFound:
		return "not found"
	case FetchFailed:
		return "fetch failed"
	case HashMismatch:
		return "hash mismatch"
	case UnsafeArchive:
		return "unsafe archive"
	case StoreConflict:
		return "store conflict"
	case ProfileConflict:
		return "profile conflict"
	case ProfileMissingTarget:
		return "profile missing target"
	case InvalidInput:
		return "invalid input"
	case Internal:
		return "internal error"
	}
	return "unknown error kind"
}

// E builds an error value from its arguments.
// The type of each argument determines its meaning.
// If more than one argument of a given type is presented,
// only the last one is recorded.
//
// The types are:
//	errors.Op
//		The operation being performed, usually the method
//		being invoked (Import, Assemble, Activate, etc.)
//	errors.Kind
//		The class of error, such as a hash mismatch.
//	errors.PkgName, errors.PkgVersion, errors.Path
//		The package name, version, or file path involved.
//	error
//		The underlying error that triggered this one.
//
// If the error is printed, only those items that have been
// set to non-zero values will appear in the result.
//
// If Kind is not specified or Other, it is set to the Kind of
// the underlying error, if any.
func E(args ...interface{}) error {
	if len(args) == 0 {
		return nil
	}
	e := &Error{}
	for _, arg := range args {
		switch arg := arg.(type) {
		case PkgName:
			e.Name = string(arg)
		case PkgVersion:
			e.Version = string(arg)
		case Path:
			e.Path = string(arg)
		case string:
			e.Op = arg
		case Kind:
			e.Kind = arg
		case *Error:
			// Make a copy
			errCopy := *arg
			e.Err = &errCopy
		case error:
			e.Err = arg
		default:
			_, file, line, _ := runtime.Caller(1)
			log.Printf("errors.E: bad call from %s:%d: %v", file, line, args)
			return Errorf("unknown type %T, value %v in error call", arg, arg)
		}
	}
	prev, ok := e.Err.(*Error)
	if !ok {
		return e
	}

	// The previous error was also one of ours. Suppress duplications
	// so the message won't contain the same kind, name, or path twice.
	if prev.Path == e.Path {
		prev.Path = ""
	}
	if prev.Name == e.Name {
		prev.Name = ""
	}
	if prev.Version == e.Version {
		prev.Version = ""
	}
	if prev.Kind == e.Kind {
		prev.Kind = Other
	}
	// If this error has Kind unset or Other, pull up the inner one.
	if e.Kind == Other {
		e.Kind = prev.Kind
		prev.Kind = Other
	}
	return e
}

// PkgName is the name half of a (name, version) package identity.
type PkgName string

// PkgVersion is the version half of a (name, version) package identity.
type PkgVersion string

// Path is a file path involved in an operation.
type Path string

// pad appends str to the buffer if the buffer already has some data.
func pad(b *bytes.Buffer, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) Error() string {
	b := new(bytes.Buffer)
	if e.Name != "" {
		b.WriteString(e.Name)
		if e.Version != "" {
			b.WriteString("@")
			b.WriteString(e.Version)
		}
	}
	if e.Path != "" {
		pad(b, ": ")
		b.WriteString(e.Path)
	}
	if e.Op != "" {
		pad(b, ": ")
		b.WriteString(e.Op)
	}
	if e.Kind != 0 {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		// Indent on new line if we are cascading non-empty nested errors.
		if prevErr, ok := e.Err.(*Error); ok {
			if *prevErr != zeroErr {
				pad(b, Separator)
				b.WriteString(e.Err.Error())
			}
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

// Is reports whether err is, or wraps, an *Error of the given Kind.
func Is(kind Kind, err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	if e.Kind != Other {
		return e.Kind == kind
	}
	if e.Err != nil {
		return Is(kind, e.Err)
	}
	return false
}

// Str returns an error that formats as the given text. It is intended to
// be used as the error-typed argument to the E function.
func Str(text string) error {
	return &errorString{text}
}

// errorString is a trivial implementation of error.
type errorString struct {
	s string
}

func (e *errorString) Error() string {
	return e.s
}

// Errorf is equivalent to fmt.Errorf, but allows clients to import only
// this package for all error handling.
func Errorf(format string, args ...interface{}) error {
	return &errorString{fmt.Sprintf(format, args...)}
}
