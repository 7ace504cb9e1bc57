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

package model

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Process is one task of the modeled tree.
//
// Processes refer to each other by PID only. Parent and child navigation goes
// through the owning Application.
type Process struct {
	// PID is the process identifier. It is unique within an Application.
	PID PID

	// PPID is the parent PID, NoParent for the root.
	PPID PID

	// SID is the session identifier.
	SID PID

	// Zombie is true once the process exited and has not been waited for.
	Zombie bool

	// ChildReaper is true if the process adopts orphaned descendants.
	ChildReaper bool

	// FDs is the descriptor table. Entries are handles into the owning
	// Application's file table, so two entries with the same FileID share
	// one file position.
	FDs map[FD]FileID

	// vmas are the memory mappings of the process.
	vmas *vmaSet
}

func newProcess(pid, ppid, sid PID) *Process {
	return &Process{
		PID:  pid,
		PPID: ppid,
		SID:  sid,
		FDs:  make(map[FD]FileID),
		vmas: newVmaSet(),
	}
}

// Descriptors returns the open descriptor numbers in increasing order.
func (p *Process) Descriptors() []FD {
	return slices.Sorted(maps.Keys(p.FDs))
}

// Mappings returns the mappings of p in address order.
func (p *Process) Mappings() []Vma {
	return p.vmas.all()
}

// fork returns a process that shares p's open files and owns a copy of its
// mappings.
func (p *Process) fork(child PID) *Process {
	c := newProcess(child, p.PID, p.SID)
	maps.Copy(c.FDs, p.FDs)
	c.vmas = p.vmas.clone()
	return c
}

// String implements fmt.Stringer.String.
func (p *Process) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Process(pid: %d, ppid: %d, sid: %d", p.PID, p.PPID, p.SID)
	if p.Zombie {
		b.WriteString(", zombie")
	}
	if p.ChildReaper {
		b.WriteString(", child reaper")
	}
	b.WriteString(")")
	return b.String()
}
