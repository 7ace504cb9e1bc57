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

// Open opens a new file at path and installs it at fd in pid. The file
// starts at position 0 and is not shared with any earlier open of the same
// path.
func (a *Application) Open(pid PID, path string, fd FD) error {
	p, err := a.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("open(%d, %q, %d): %w", pid, path, fd, err)
	}
	if _, ok := p.FDs[fd]; ok {
		return fmt.Errorf("open(%d, %q, %d): fd in use: %w", pid, path, fd, rsterr.EEXIST)
	}
	p.FDs[fd] = a.allocFile(&RegularFile{Path: path})
	return nil
}

// Close removes fd from pid. Closing a descriptor that is not open is not an
// error.
func (a *Application) Close(pid PID, fd FD) error {
	p, err := a.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("close(%d, %d): %w", pid, fd, err)
	}
	id, ok := p.FDs[fd]
	if !ok {
		return nil
	}
	delete(p.FDs, fd)
	a.reclaim(id)
	return nil
}

// Dup2 makes newFD refer to the same file as oldFD. A file previously
// installed at newFD is released.
func (a *Application) Dup2(pid PID, oldFD, newFD FD) error {
	p, err := a.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("dup2(%d, %d, %d): %w", pid, oldFD, newFD, err)
	}
	id, ok := p.FDs[oldFD]
	if !ok {
		return fmt.Errorf("dup2(%d, %d, %d): %w", pid, oldFD, newFD, rsterr.EBADF)
	}
	if oldFD == newFD {
		return nil
	}
	a.install(p, newFD, id)
	return nil
}

// Lseek sets the position of the file at fd. The position is shared with
// every other holder of the file.
func (a *Application) Lseek(pid PID, fd FD, pos uint64) error {
	_, f, err := a.FileAt(pid, fd)
	if err != nil {
		return fmt.Errorf("lseek(%d, %d, %d): %w", pid, fd, pos, err)
	}
	f.Pos = pos
	return nil
}

// TransferFD installs the file at fd in from as targetFD in to, as if it was
// passed over a unix socket. The source descriptor stays open.
func (a *Application) TransferFD(from, to PID, fd, targetFD FD) error {
	id, _, err := a.FileAt(from, fd)
	if err != nil {
		return fmt.Errorf("transfer_fd(%d, %d, %d, %d): %w", from, to, fd, targetFD, err)
	}
	target, err := a.FindProcess(to)
	if err != nil {
		return fmt.Errorf("transfer_fd(%d, %d, %d, %d): %w", from, to, fd, targetFD, err)
	}
	a.install(target, targetFD, id)
	return nil
}
