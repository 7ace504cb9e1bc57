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

	"gvisor.dev/restorer/pkg/errors/rsterr"
)

// The methods in this file build an Application from recorded state, e.g. a
// checkpoint. They do not reclaim anything, so a builder must call Validate
// once it is done.

// AddProcess adds a process with the given identity. The parent does not
// need to exist yet.
func (a *Application) AddProcess(pid, ppid, sid PID, zombie bool) (*Process, error) {
	if _, ok := a.ProcessTable[pid]; ok {
		return nil, fmt.Errorf("add process %d: %w", pid, rsterr.EEXIST)
	}
	p := newProcess(pid, ppid, sid)
	p.Zombie = zombie
	a.ProcessTable[pid] = p
	return p, nil
}

// AddFile adds f under a fresh handle and returns the handle.
func (a *Application) AddFile(f *RegularFile) FileID {
	return a.allocFile(f)
}

// Install installs the file id at fd in pid.
func (a *Application) Install(pid PID, fd FD, id FileID) error {
	p, err := a.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("install %d at %d:%d: %w", id, pid, fd, err)
	}
	if _, ok := a.FileTable[id]; !ok {
		return fmt.Errorf("install %d at %d:%d: no such file: %w", id, pid, fd, rsterr.EBADF)
	}
	if _, ok := p.FDs[fd]; ok {
		return fmt.Errorf("install %d at %d:%d: %w", id, pid, fd, rsterr.EEXIST)
	}
	p.FDs[fd] = id
	return nil
}

// AddMapping adds v to the mappings of pid.
func (a *Application) AddMapping(pid PID, v Vma) error {
	p, err := a.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("add mapping %v: %w", v, err)
	}
	if v.End <= v.Start {
		return fmt.Errorf("add mapping %v: %w", v, rsterr.EINVAL)
	}
	if err := a.mapAt(p, v); err != nil {
		return fmt.Errorf("add mapping %v: %w", v, err)
	}
	return nil
}

// Validate checks the invariants of a: every parent exists, every
// descriptor refers to an existing file and every file has a holder.
func (a *Application) Validate() error {
	held := make(map[FileID]bool, len(a.FileTable))
	for _, p := range a.Processes() {
		if p.PPID != NoParent {
			if _, ok := a.ProcessTable[p.PPID]; !ok {
				return fmt.Errorf("process %d: parent %d does not exist: %w", p.PID, p.PPID, rsterr.ENOTRECOVERABLE)
			}
		}
		for _, fd := range p.Descriptors() {
			id := p.FDs[fd]
			if _, ok := a.FileTable[id]; !ok {
				return fmt.Errorf("process %d: fd %d refers to missing file %d: %w", p.PID, fd, id, rsterr.ENOTRECOVERABLE)
			}
			held[id] = true
		}
	}
	for _, id := range a.FileIDs() {
		if !held[id] {
			return fmt.Errorf("file %d %v has no holder: %w", id, a.FileTable[id], rsterr.ENOTRECOVERABLE)
		}
	}
	return nil
}
