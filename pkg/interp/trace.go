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

package interp

import (
	"gvisor.dev/restorer/pkg/log"
	"gvisor.dev/restorer/pkg/model"
)

// tracer is a Capability that logs every call before forwarding it.
type tracer struct {
	next   Capability
	logger log.Logger
}

// Trace returns a Capability that logs each operation at debug level to the
// global logger and then forwards it to next.
func Trace(next Capability) Capability {
	return TraceTo(next, log.Log())
}

// TraceTo is like Trace, but logs to logger.
func TraceTo(next Capability, logger log.Logger) Capability {
	return &tracer{next: next, logger: logger}
}

func (t *tracer) done(err error, format string, v ...any) error {
	if !t.logger.IsLogging(log.Debug) {
		return err
	}
	if err != nil {
		t.logger.Debugf(format+" = %v", append(v, err)...)
	} else {
		t.logger.Debugf(format, v...)
	}
	return err
}

// Fork implements Capability.Fork.
func (t *tracer) Fork(pid, child model.PID) error {
	return t.done(t.next.Fork(pid, child), "fork(%d, %d)", pid, child)
}

// Clone implements Capability.Clone.
func (t *tracer) Clone(pid, child model.PID) error {
	return t.done(t.next.Clone(pid, child), "clone(%d, %d)", pid, child)
}

// SetChildReaper implements Capability.SetChildReaper.
func (t *tracer) SetChildReaper(pid model.PID, value bool) error {
	return t.done(t.next.SetChildReaper(pid, value), "set_child_reaper(%d, %t)", pid, value)
}

// SetSID implements Capability.SetSID.
func (t *tracer) SetSID(pid model.PID) error {
	return t.done(t.next.SetSID(pid), "setsid(%d)", pid)
}

// Exit implements Capability.Exit.
func (t *tracer) Exit(pid model.PID) error {
	return t.done(t.next.Exit(pid), "exit(%d)", pid)
}

// Wait implements Capability.Wait.
func (t *tracer) Wait(pid, child model.PID) error {
	return t.done(t.next.Wait(pid, child), "wait(%d, %d)", pid, child)
}

// Open implements Capability.Open.
func (t *tracer) Open(pid model.PID, path string, fd model.FD) error {
	return t.done(t.next.Open(pid, path, fd), "open(%d, %q, %d)", pid, path, fd)
}

// Close implements Capability.Close.
func (t *tracer) Close(pid model.PID, fd model.FD) error {
	return t.done(t.next.Close(pid, fd), "close(%d, %d)", pid, fd)
}

// Dup2 implements Capability.Dup2.
func (t *tracer) Dup2(pid model.PID, oldFD, newFD model.FD) error {
	return t.done(t.next.Dup2(pid, oldFD, newFD), "dup2(%d, %d, %d)", pid, oldFD, newFD)
}

// Lseek implements Capability.Lseek.
func (t *tracer) Lseek(pid model.PID, fd model.FD, pos uint64) error {
	return t.done(t.next.Lseek(pid, fd, pos), "lseek(%d, %d, %d)", pid, fd, pos)
}

// TransferFD implements Capability.TransferFD.
func (t *tracer) TransferFD(from, to model.PID, fd, targetFD model.FD) error {
	return t.done(t.next.TransferFD(from, to, fd, targetFD), "transfer_fd(%d, %d, %d, %d)", from, to, fd, targetFD)
}

// MMap implements Capability.MMap.
func (t *tracer) MMap(pid model.PID, addr model.Addr, length uint64, fd model.FD, offset uint64, shared bool) error {
	return t.done(t.next.MMap(pid, addr, length, fd, offset, shared), "mmap(%d, %v, %#x, %d, %#x, %t)", pid, addr, length, fd, offset, shared)
}

// MMapAnon implements Capability.MMapAnon.
func (t *tracer) MMapAnon(pid model.PID, addr model.Addr, length uint64, shared bool) error {
	return t.done(t.next.MMapAnon(pid, addr, length, shared), "mmap_anon(%d, %v, %#x, %t)", pid, addr, length, shared)
}

// MRemap implements Capability.MRemap.
func (t *tracer) MRemap(pid model.PID, addr, newAddr model.Addr) error {
	return t.done(t.next.MRemap(pid, addr, newAddr), "mremap(%d, %v, %v)", pid, addr, newAddr)
}

// MUnmap implements Capability.MUnmap.
func (t *tracer) MUnmap(pid model.PID, addr model.Addr) error {
	return t.done(t.next.MUnmap(pid, addr), "munmap(%d, %v)", pid, addr)
}
