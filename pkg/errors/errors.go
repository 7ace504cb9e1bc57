// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errors holds the standardized error definition for the restorer.
package errors

import (
	"golang.org/x/sys/unix"
)

// Class groups errors by how a caller is expected to react to them.
type Class int

const (
	// NotFound indicates that a referenced pid, descriptor or mapping does
	// not exist in the current state.
	NotFound Class = iota + 1

	// Conflict indicates that an object the operation would create already
	// exists.
	Conflict

	// NotAChild indicates that a wait targeted a process that is not a child
	// of the waiter.
	NotAChild

	// InvalidArgument indicates an argument that can never be valid.
	InvalidArgument

	// InvariantViolation indicates that the model reached a state that
	// valid input can not produce. It is always fatal.
	InvariantViolation
)

// String implements fmt.Stringer.String.
func (c Class) String() string {
	switch c {
	case NotFound:
		return "not found"
	case Conflict:
		return "conflict"
	case NotAChild:
		return "not a child"
	case InvalidArgument:
		return "invalid argument"
	case InvariantViolation:
		return "invariant violation"
	default:
		return "unknown"
	}
}

// Error represents an errno with a class and a descriptive message.
type Error struct {
	errno   unix.Errno
	class   Class
	message string
}

// New creates a new *Error.
func New(class Class, err unix.Errno, message string) *Error {
	return &Error{
		errno:   err,
		class:   class,
		message: message,
	}
}

// Error implements error.Error.
func (e *Error) Error() string { return e.message }

// Errno returns the underlying unix.Errno value.
func (e *Error) Errno() unix.Errno { return e.errno }

// Class returns the class of the error.
func (e *Error) Class() Class { return e.class }
