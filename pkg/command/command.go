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

// Package command defines restore commands, the schema that describes their
// arguments, and the validator that turns untyped program statements into
// typed commands.
package command

import (
	"gvisor.dev/restorer/pkg/model"
)

// Command is a validated restore command. The set of implementations is
// closed: it is exactly the types declared in this file.
type Command interface {
	// Name returns the command name as used in programs.
	Name() string

	isCommand()
}

// Program is a validated sequence of commands.
type Program []Command

// Fork creates Child as a child of PID.
type Fork struct {
	PID   model.PID
	Child model.PID
}

// Clone creates Child as a sibling of PID.
type Clone struct {
	PID   model.PID
	Child model.PID
}

// SetChildReaper sets the child reaper flag of PID.
type SetChildReaper struct {
	PID   model.PID
	Value bool
}

// SetSID makes PID a session leader.
type SetSID struct {
	PID model.PID
}

// Exit turns PID into a zombie.
type Exit struct {
	PID model.PID
}

// Wait reaps Child, a child of PID.
type Wait struct {
	PID   model.PID
	Child model.PID
}

// Open opens Path at FD in PID.
type Open struct {
	PID  model.PID
	Path string
	FD   model.FD
}

// Close closes FD in PID.
type Close struct {
	PID model.PID
	FD  model.FD
}

// Dup2 duplicates OldFD onto NewFD in PID.
type Dup2 struct {
	PID   model.PID
	OldFD model.FD
	NewFD model.FD
}

// Lseek sets the position of the file at FD in PID.
type Lseek struct {
	PID model.PID
	FD  model.FD
	Pos uint64
}

// TransferFD installs FD of From as TargetFD in To.
type TransferFD struct {
	From     model.PID
	To       model.PID
	FD       model.FD
	TargetFD model.FD
}

// MMap maps the file at FD in PID.
type MMap struct {
	PID    model.PID
	Addr   model.Addr
	Length uint64
	FD     model.FD
	Offset uint64
	Shared bool
}

// MMapAnon maps anonymous memory in PID.
type MMapAnon struct {
	PID    model.PID
	Addr   model.Addr
	Length uint64
	Shared bool
}

// MRemap moves the mapping at Addr to NewAddr in PID.
type MRemap struct {
	PID     model.PID
	Addr    model.Addr
	NewAddr model.Addr
}

// MUnmap removes the mapping at Addr in PID.
type MUnmap struct {
	PID  model.PID
	Addr model.Addr
}

// Name implements Command.Name.
func (Fork) Name() string { return "FORK" }

// Name implements Command.Name.
func (Clone) Name() string { return "CLONE" }

// Name implements Command.Name.
func (SetChildReaper) Name() string { return "SET_CHILD_REAPER" }

// Name implements Command.Name.
func (SetSID) Name() string { return "SET_SID" }

// Name implements Command.Name.
func (Exit) Name() string { return "EXIT" }

// Name implements Command.Name.
func (Wait) Name() string { return "WAIT" }

// Name implements Command.Name.
func (Open) Name() string { return "OPEN" }

// Name implements Command.Name.
func (Close) Name() string { return "CLOSE" }

// Name implements Command.Name.
func (Dup2) Name() string { return "DUP2" }

// Name implements Command.Name.
func (Lseek) Name() string { return "LSEEK" }

// Name implements Command.Name.
func (TransferFD) Name() string { return "TRANSFER_FD" }

// Name implements Command.Name.
func (MMap) Name() string { return "MMAP" }

// Name implements Command.Name.
func (MMapAnon) Name() string { return "MMAP_ANON" }

// Name implements Command.Name.
func (MRemap) Name() string { return "MREMAP" }

// Name implements Command.Name.
func (MUnmap) Name() string { return "MUNMAP" }

func (Fork) isCommand()           {}
func (Clone) isCommand()          {}
func (SetChildReaper) isCommand() {}
func (SetSID) isCommand()         {}
func (Exit) isCommand()           {}
func (Wait) isCommand()           {}
func (Open) isCommand()           {}
func (Close) isCommand()          {}
func (Dup2) isCommand()           {}
func (Lseek) isCommand()          {}
func (TransferFD) isCommand()     {}
func (MMap) isCommand()           {}
func (MMapAnon) isCommand()       {}
func (MRemap) isCommand()         {}
func (MUnmap) isCommand()         {}
