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

	"github.com/mohae/deepcopy"
	"gvisor.dev/restorer/pkg/errors/rsterr"
)

// Application is the full modeled state of a process tree.
//
// Processes and files are kept in flat tables. A file lives exactly as long
// as some descriptor refers to it: every operation that drops a descriptor
// reclaims the file it referred to if no other holder is left.
type Application struct {
	// ProcessTable maps every live or zombie process by PID.
	ProcessTable map[PID]*Process

	// FileTable maps every open file by its handle.
	FileTable map[FileID]*RegularFile

	// nextFileID is the next handle to allocate. Handles are never reused.
	nextFileID FileID

	// anonShared counts shared anonymous mappings, for synthetic paths.
	anonShared uint64
}

// NewApplication returns an Application holding a single root process with
// the given pid. The root has no parent and reaps orphans.
func NewApplication(root PID) *Application {
	a := NewEmptyApplication()
	p := newProcess(root, NoParent, root)
	p.ChildReaper = true
	a.ProcessTable[root] = p
	return a
}

// NewEmptyApplication returns an Application with no processes. It is meant
// for builders that add every process explicitly, see AddProcess.
func NewEmptyApplication() *Application {
	return &Application{
		ProcessTable: make(map[PID]*Process),
		FileTable:    make(map[FileID]*RegularFile),
		nextFileID:   1,
	}
}

// DeepCopy returns a copy of a that shares no state with a.
func (a *Application) DeepCopy() *Application {
	c := &Application{
		ProcessTable: deepcopy.Copy(a.ProcessTable).(map[PID]*Process),
		FileTable:    deepcopy.Copy(a.FileTable).(map[FileID]*RegularFile),
		nextFileID:   a.nextFileID,
		anonShared:   a.anonShared,
	}
	// Unexported fields are not visible to deepcopy.
	for pid, p := range a.ProcessTable {
		c.ProcessTable[pid].vmas = p.vmas.clone()
	}
	return c
}

// FindProcess returns the process with the given pid.
func (a *Application) FindProcess(pid PID) (*Process, error) {
	p, ok := a.ProcessTable[pid]
	if !ok {
		return nil, fmt.Errorf("pid %d: %w", pid, rsterr.ESRCH)
	}
	return p, nil
}

// Processes returns all processes ordered by pid.
func (a *Application) Processes() []*Process {
	pids := slices.Sorted(maps.Keys(a.ProcessTable))
	ps := make([]*Process, 0, len(pids))
	for _, pid := range pids {
		ps = append(ps, a.ProcessTable[pid])
	}
	return ps
}

// Children returns the pids of the children of pid, in increasing order.
func (a *Application) Children(pid PID) []PID {
	var children []PID
	for _, p := range a.ProcessTable {
		if p.PPID == pid && p.PID != pid {
			children = append(children, p.PID)
		}
	}
	slices.Sort(children)
	return children
}

// File returns the file with the given handle, or nil.
func (a *Application) File(id FileID) *RegularFile {
	return a.FileTable[id]
}

// FileIDs returns the handles of all open files in increasing order.
func (a *Application) FileIDs() []FileID {
	return slices.Sorted(maps.Keys(a.FileTable))
}

// FileAt returns the handle and file installed at fd in pid.
func (a *Application) FileAt(pid PID, fd FD) (FileID, *RegularFile, error) {
	p, err := a.FindProcess(pid)
	if err != nil {
		return 0, nil, err
	}
	id, ok := p.FDs[fd]
	if !ok {
		return 0, nil, fmt.Errorf("pid %d fd %d: %w", pid, fd, rsterr.EBADF)
	}
	return id, a.FileTable[id], nil
}

// Holders returns every (pid, fd) pair that refers to id, sorted by pid then
// fd.
func (a *Application) Holders(id FileID) []Holder {
	var hs []Holder
	for _, p := range a.ProcessTable {
		for fd, fid := range p.FDs {
			if fid == id {
				hs = append(hs, Holder{PID: p.PID, FD: fd})
			}
		}
	}
	slices.SortFunc(hs, compareHolders)
	return hs
}

func compareHolders(x, y Holder) int {
	if x.PID != y.PID {
		return int(x.PID) - int(y.PID)
	}
	return int(x.FD) - int(y.FD)
}

// Mappings returns the mappings of pid in address order.
func (a *Application) Mappings(pid PID) ([]Vma, error) {
	p, err := a.FindProcess(pid)
	if err != nil {
		return nil, err
	}
	return p.Mappings(), nil
}

// allocFile adds f to the file table under a fresh handle.
func (a *Application) allocFile(f *RegularFile) FileID {
	id := a.nextFileID
	a.nextFileID++
	a.FileTable[id] = f
	return id
}

// held returns true if any descriptor in the application refers to id.
func (a *Application) held(id FileID) bool {
	for _, p := range a.ProcessTable {
		for _, fid := range p.FDs {
			if fid == id {
				return true
			}
		}
	}
	return false
}

// reclaim removes each of ids from the file table if nothing holds it
// anymore.
func (a *Application) reclaim(ids ...FileID) {
	for _, id := range ids {
		if _, ok := a.FileTable[id]; ok && !a.held(id) {
			delete(a.FileTable, id)
		}
	}
}

// install sets p.FDs[fd] to id, reclaiming whatever fd referred to before.
func (a *Application) install(p *Process, fd FD, id FileID) {
	old, replaced := p.FDs[fd]
	p.FDs[fd] = id
	if replaced && old != id {
		a.reclaim(old)
	}
}

// String returns a multi-line description of the application, one line per
// process followed by its descriptors and mappings.
func (a *Application) String() string {
	var b strings.Builder
	for _, p := range a.Processes() {
		fmt.Fprintf(&b, "%v\n", p)
		for _, fd := range p.Descriptors() {
			id := p.FDs[fd]
			fmt.Fprintf(&b, "  fd %d -> #%d %v\n", fd, id, a.FileTable[id])
		}
		for _, v := range p.Mappings() {
			fmt.Fprintf(&b, "  %v\n", v)
		}
	}
	return b.String()
}
