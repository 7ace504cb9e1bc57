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

// Fork creates child as a child of pid. The child inherits the session,
// shares every open file of pid through the same handles, and receives its
// own copy of pid's mappings.
func (a *Application) Fork(pid, child PID) error {
	parent, err := a.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("fork(%d, %d): %w", pid, child, err)
	}
	if _, ok := a.ProcessTable[child]; ok {
		return fmt.Errorf("fork(%d, %d): pid %d: %w", pid, child, child, rsterr.EEXIST)
	}
	a.ProcessTable[child] = parent.fork(child)
	return nil
}

// Clone creates child as a sibling of pid: the new process is a child of
// pid's parent and its resources are copied from that parent, not from pid.
func (a *Application) Clone(pid, child PID) error {
	sibling, err := a.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("clone(%d, %d): %w", pid, child, err)
	}
	parent, err := a.FindProcess(sibling.PPID)
	if err != nil {
		return fmt.Errorf("clone(%d, %d): parent of %d: %w", pid, child, pid, err)
	}
	if _, ok := a.ProcessTable[child]; ok {
		return fmt.Errorf("clone(%d, %d): pid %d: %w", pid, child, child, rsterr.EEXIST)
	}
	a.ProcessTable[child] = parent.fork(child)
	return nil
}

// SetChildReaper sets or clears the child reaper flag of pid.
func (a *Application) SetChildReaper(pid PID, value bool) error {
	p, err := a.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("set_child_reaper(%d, %t): %w", pid, value, err)
	}
	p.ChildReaper = value
	return nil
}

// SetSID makes pid the leader of a new session.
func (a *Application) SetSID(pid PID) error {
	p, err := a.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("setsid(%d): %w", pid, err)
	}
	p.SID = p.PID
	return nil
}

// findReaper returns the nearest ancestor of p that is a child reaper. The
// search starts at p's parent, so p is never its own reaper, except for the
// root: it stands in for its own parent and keeps its children if it is a
// reaper.
func (a *Application) findReaper(p *Process) (*Process, error) {
	cur := p.PPID
	if cur == NoParent {
		cur = p.PID
	}
	// Every step visits a distinct process unless the tree has a cycle.
	for steps := 0; steps <= len(a.ProcessTable); steps++ {
		if cur == NoParent {
			break
		}
		q, ok := a.ProcessTable[cur]
		if !ok {
			return nil, fmt.Errorf("ancestor %d of %d is missing: %w", cur, p.PID, rsterr.ENOTRECOVERABLE)
		}
		if q.ChildReaper {
			return q, nil
		}
		cur = q.PPID
	}
	return nil, fmt.Errorf("no reaper for children of %d: %w", p.PID, rsterr.ENOTRECOVERABLE)
}

// reparentChildren moves every child of p to p's nearest reaper.
func (a *Application) reparentChildren(p *Process) error {
	children := a.Children(p.PID)
	if len(children) == 0 {
		return nil
	}
	reaper, err := a.findReaper(p)
	if err != nil {
		return err
	}
	for _, c := range children {
		a.ProcessTable[c].PPID = reaper.PID
	}
	return nil
}

// Exit turns pid into a zombie. Its children are adopted by the nearest child
// reaper above it. Descriptors stay open until the zombie is waited for.
func (a *Application) Exit(pid PID) error {
	p, err := a.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("exit(%d): %w", pid, err)
	}
	if err := a.reparentChildren(p); err != nil {
		return fmt.Errorf("exit(%d): %w", pid, err)
	}
	p.Zombie = true
	return nil
}

// Wait removes child, which must be a child of pid. Files held only by child
// are reclaimed. Children of child, if any, are reparented as on exit.
func (a *Application) Wait(pid, child PID) error {
	c, err := a.FindProcess(child)
	if err != nil {
		return fmt.Errorf("wait(%d, %d): %w", pid, child, err)
	}
	if c.PPID != pid {
		return fmt.Errorf("wait(%d, %d): parent is %d: %w", pid, child, c.PPID, rsterr.ECHILD)
	}
	if err := a.reparentChildren(c); err != nil {
		return fmt.Errorf("wait(%d, %d): %w", pid, child, err)
	}
	delete(a.ProcessTable, child)
	for _, id := range c.FDs {
		a.reclaim(id)
	}
	return nil
}
