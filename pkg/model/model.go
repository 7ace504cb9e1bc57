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

// Package model is an in-memory model of the resources of a process tree:
// the process hierarchy, per-process descriptor tables, regular files shared
// between descriptors, and memory mappings.
//
// An Application plays the role a kernel plays for a real restore. Restore
// commands are applied to it as method calls and the resulting state can be
// compared with the state recorded at checkpoint time. Nothing here touches
// real OS resources.
//
// The model is not synchronized. Each Application is owned by a single
// goroutine for its entire lifetime.
package model

import (
	"fmt"
)

// PID is a process identifier.
type PID int32

// String returns a decimal representation of the PID.
func (p PID) String() string {
	return fmt.Sprintf("%d", int32(p))
}

// NoParent is the PPID of the root process.
const NoParent PID = -1

// FD is a descriptor number, local to a process.
type FD int32

// FileID identifies a RegularFile within an Application, independently of
// the descriptor numbers that refer to it.
type FileID uint64

// Addr is a virtual address.
type Addr uint64

// String returns a hexadecimal representation of the address.
func (a Addr) String() string {
	return fmt.Sprintf("%#x", uint64(a))
}

// Holder is a (process, descriptor) pair that refers to a RegularFile.
type Holder struct {
	PID PID
	FD  FD
}

// String implements fmt.Stringer.String.
func (h Holder) String() string {
	return fmt.Sprintf("%d:%d", h.PID, h.FD)
}

// RegularFile is an open file description. It is shared by every descriptor
// that was derived from the same open, so a position change made through one
// holder is observed by all of them.
type RegularFile struct {
	// Path is the path the file was opened at.
	Path string

	// Pos is the current offset.
	Pos uint64

	// Size is the file size, if known.
	Size *uint64
}

// String implements fmt.Stringer.String.
func (f *RegularFile) String() string {
	if f.Size == nil {
		return fmt.Sprintf("RegularFile(path: %s, pos: %d)", f.Path, f.Pos)
	}
	return fmt.Sprintf("RegularFile(path: %s, pos: %d, size: %d)", f.Path, f.Pos, *f.Size)
}
