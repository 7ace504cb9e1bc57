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
	"math"

	"gvisor.dev/restorer/pkg/errors/rsterr"
)

// anonSharedPrefix is the path shared anonymous memory appears under in
// /proc/[pid]/maps.
const anonSharedPrefix = "/dev/zero (deleted)"

// rangeOf returns the end of [addr, addr+length), or an error if the range is
// empty or wraps around the address space.
func rangeOf(addr Addr, length uint64) (Addr, error) {
	if length == 0 {
		return 0, fmt.Errorf("empty mapping: %w", rsterr.EINVAL)
	}
	if uint64(addr) > math.MaxUint64-length {
		return 0, fmt.Errorf("mapping at %v of length %#x overflows: %w", addr, length, rsterr.EINVAL)
	}
	return addr + Addr(length), nil
}

func (a *Application) mapAt(p *Process, v Vma) error {
	if !p.vmas.insert(v) {
		return fmt.Errorf("mapping at %v: %w", v.Start, rsterr.EEXIST)
	}
	return nil
}

// MMap maps length bytes of the file at fd, starting at offset, at addr.
func (a *Application) MMap(pid PID, addr Addr, length uint64, fd FD, offset uint64, shared bool) error {
	p, err := a.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("mmap(%d, %v): %w", pid, addr, err)
	}
	id, ok := p.FDs[fd]
	if !ok {
		return fmt.Errorf("mmap(%d, %v): fd %d: %w", pid, addr, fd, rsterr.EBADF)
	}
	end, err := rangeOf(addr, length)
	if err != nil {
		return fmt.Errorf("mmap(%d, %v): %w", pid, addr, err)
	}
	v := Vma{
		Start:  addr,
		End:    end,
		Path:   a.FileTable[id].Path,
		PgOff:  offset,
		Shared: shared,
	}
	if err := a.mapAt(p, v); err != nil {
		return fmt.Errorf("mmap(%d, %v): %w", pid, addr, err)
	}
	return nil
}

// MMapAnon maps length bytes of anonymous memory at addr. Shared anonymous
// memory is backed by an unlinked file, which gets a unique synthetic path.
func (a *Application) MMapAnon(pid PID, addr Addr, length uint64, shared bool) error {
	p, err := a.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("mmap_anon(%d, %v): %w", pid, addr, err)
	}
	end, err := rangeOf(addr, length)
	if err != nil {
		return fmt.Errorf("mmap_anon(%d, %v): %w", pid, addr, err)
	}
	v := Vma{Start: addr, End: end, Shared: shared}
	if shared {
		v.Path = fmt.Sprintf("%s:%d", anonSharedPrefix, a.anonShared)
	}
	if err := a.mapAt(p, v); err != nil {
		return fmt.Errorf("mmap_anon(%d, %v): %w", pid, addr, err)
	}
	if shared {
		a.anonShared++
	}
	return nil
}

// MRemap moves the mapping that starts at addr to newAddr, keeping its
// length.
func (a *Application) MRemap(pid PID, addr, newAddr Addr) error {
	p, err := a.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("mremap(%d, %v, %v): %w", pid, addr, newAddr, err)
	}
	v, ok := p.vmas.find(addr)
	if !ok {
		return fmt.Errorf("mremap(%d, %v, %v): %w", pid, addr, newAddr, rsterr.ENOENT)
	}
	if addr == newAddr {
		return nil
	}
	if _, ok := p.vmas.find(newAddr); ok {
		return fmt.Errorf("mremap(%d, %v, %v): %w", pid, addr, newAddr, rsterr.EEXIST)
	}
	end, err := rangeOf(newAddr, v.Len())
	if err != nil {
		return fmt.Errorf("mremap(%d, %v, %v): %w", pid, addr, newAddr, err)
	}
	p.vmas.remove(addr)
	v.Start, v.End = newAddr, end
	p.vmas.insert(v)
	return nil
}

// MUnmap removes the mapping that starts at addr.
func (a *Application) MUnmap(pid PID, addr Addr) error {
	p, err := a.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("munmap(%d, %v): %w", pid, addr, err)
	}
	if _, ok := p.vmas.remove(addr); !ok {
		return fmt.Errorf("munmap(%d, %v): %w", pid, addr, rsterr.ENOENT)
	}
	return nil
}
