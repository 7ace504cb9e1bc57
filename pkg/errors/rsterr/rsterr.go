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

// Package rsterr contains the errors returned by state-mutating operations
// of the restore model, exported as *errors.Error pointers so they can be
// matched with errors.Is even after being wrapped with context.
package rsterr

import (
	goerrors "errors"

	"golang.org/x/sys/unix"
	"gvisor.dev/restorer/pkg/errors"
)

// The following errors mirror the errno a kernel would report for the same
// condition. Each belongs to exactly one errors.Class.
var (
	// ESRCH is returned when a pid does not resolve to a process.
	ESRCH = errors.New(errors.NotFound, unix.ESRCH, "no such process")

	// EBADF is returned when a descriptor is not open in a process.
	EBADF = errors.New(errors.NotFound, unix.EBADF, "bad file number")

	// ENOENT is returned when no mapping starts at an address.
	ENOENT = errors.New(errors.NotFound, unix.ENOENT, "no mapping at address")

	// EEXIST is returned for a duplicate pid, descriptor or mapping start.
	EEXIST = errors.New(errors.Conflict, unix.EEXIST, "already exists")

	// ECHILD is returned when waiting for a process that is not a child.
	ECHILD = errors.New(errors.NotAChild, unix.ECHILD, "no child processes")

	// EINVAL is returned for malformed arguments, e.g. an empty mapping.
	EINVAL = errors.New(errors.InvalidArgument, unix.EINVAL, "invalid argument")

	// ENOTRECOVERABLE is returned when no child reaper can adopt orphans.
	ENOTRECOVERABLE = errors.New(errors.InvariantViolation, unix.ENOTRECOVERABLE, "no child reaper ancestor")
)

// ClassOf returns the class of the first *errors.Error in err's chain, and
// false if there is none.
func ClassOf(err error) (errors.Class, bool) {
	var e *errors.Error
	if !goerrors.As(err, &e) {
		return 0, false
	}
	return e.Class(), true
}

// ToUnix returns the errno carried by err, or 0 if err carries none.
func ToUnix(err error) unix.Errno {
	var e *errors.Error
	if !goerrors.As(err, &e) {
		return 0
	}
	return e.Errno()
}

func is(err error, c errors.Class) bool {
	got, ok := ClassOf(err)
	return ok && got == c
}

// IsNotFound returns true if err reports a missing pid, descriptor or mapping.
func IsNotFound(err error) bool { return is(err, errors.NotFound) }

// IsConflict returns true if err reports a duplicate object.
func IsConflict(err error) bool { return is(err, errors.Conflict) }

// IsNotAChild returns true if err reports a wait on a non-child.
func IsNotAChild(err error) bool { return is(err, errors.NotAChild) }

// IsInvalidArgument returns true if err reports a malformed argument.
func IsInvalidArgument(err error) bool { return is(err, errors.InvalidArgument) }

// IsInvariant returns true if err reports a broken model invariant.
func IsInvariant(err error) bool { return is(err, errors.InvariantViolation) }
