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

package command

import (
	"encoding/json"
	"math"
	"strconv"

	"gvisor.dev/restorer/pkg/model"
)

// args reads the typed arguments of one statement. Failures are recorded
// rather than returned so that every bad field of a statement is reported.
//
// Presence is the schema's business: it is checked before decoding, and an
// argument the schema does not require reads as its zero value when absent.
type args struct {
	st Statement

	// invalid are the fields that could not be read, in the order they were
	// requested.
	invalid []string
}

func (a *args) get(field string) (any, bool) {
	v, ok := a.st[field]
	return v, ok
}

// integer returns the value of field as an integer in [lo, hi].
func (a *args) integer(field string, lo, hi int64) int64 {
	v, ok := a.get(field)
	if !ok {
		return 0
	}
	n, ok := toInt64(v)
	if !ok || n < lo || n > hi {
		a.invalid = append(a.invalid, field)
		return 0
	}
	return n
}

// unsigned returns the value of field as a non-negative integer.
func (a *args) unsigned(field string) uint64 {
	v, ok := a.get(field)
	if !ok {
		return 0
	}
	n, ok := toUint64(v)
	if !ok {
		a.invalid = append(a.invalid, field)
		return 0
	}
	return n
}

func (a *args) pid(field string) model.PID {
	return model.PID(a.integer(field, 0, math.MaxInt32))
}

func (a *args) fd(field string) model.FD {
	return model.FD(a.integer(field, 0, math.MaxInt32))
}

func (a *args) addr(field string) model.Addr {
	return model.Addr(a.unsigned(field))
}

// boolean accepts a JSON boolean, or 0 and 1.
func (a *args) boolean(field string) bool {
	v, ok := a.get(field)
	if !ok {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	switch n, ok := toInt64(v); {
	case ok && n == 0:
		return false
	case ok && n == 1:
		return true
	}
	a.invalid = append(a.invalid, field)
	return false
}

func (a *args) str(field string) string {
	v, ok := a.get(field)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		a.invalid = append(a.invalid, field)
	}
	return s
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case json.Number:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		return u, err == nil
	case float64:
		if n != math.Trunc(n) || n < 0 || n >= math.MaxUint64 {
			return 0, false
		}
		return uint64(n), true
	case uint64:
		return n, true
	}
	i, ok := toInt64(v)
	if !ok || i < 0 {
		return 0, false
	}
	return uint64(i), true
}

// decoders builds the typed variant of each command. A command listed in a
// schema without an entry here is reported as unimplemented.
var decoders = map[string]func(a *args) Command{
	"FORK": func(a *args) Command {
		return Fork{PID: a.pid("pid"), Child: a.pid("child_pid")}
	},
	"CLONE": func(a *args) Command {
		return Clone{PID: a.pid("pid"), Child: a.pid("child_pid")}
	},
	"SET_CHILD_REAPER": func(a *args) Command {
		return SetChildReaper{PID: a.pid("pid"), Value: a.boolean("value")}
	},
	"SET_SID": func(a *args) Command {
		return SetSID{PID: a.pid("pid")}
	},
	"EXIT": func(a *args) Command {
		return Exit{PID: a.pid("pid")}
	},
	"WAIT": func(a *args) Command {
		return Wait{PID: a.pid("pid"), Child: a.pid("child_pid")}
	},
	"OPEN": func(a *args) Command {
		return Open{PID: a.pid("pid"), Path: a.str("path"), FD: a.fd("fd")}
	},
	"CLOSE": func(a *args) Command {
		return Close{PID: a.pid("pid"), FD: a.fd("fd")}
	},
	"DUP2": func(a *args) Command {
		return Dup2{PID: a.pid("pid"), OldFD: a.fd("old_fd"), NewFD: a.fd("new_fd")}
	},
	"LSEEK": func(a *args) Command {
		return Lseek{PID: a.pid("pid"), FD: a.fd("fd"), Pos: a.unsigned("pos")}
	},
	"TRANSFER_FD": func(a *args) Command {
		return TransferFD{
			From:     a.pid("from_pid"),
			To:       a.pid("to_pid"),
			FD:       a.fd("fd"),
			TargetFD: a.fd("target_fd"),
		}
	},
	"MMAP": func(a *args) Command {
		return MMap{
			PID:    a.pid("pid"),
			Addr:   a.addr("addr"),
			Length: a.unsigned("length"),
			FD:     a.fd("fd"),
			Offset: a.unsigned("offset"),
			Shared: a.boolean("is_shared"),
		}
	},
	"MMAP_ANON": func(a *args) Command {
		return MMapAnon{
			PID:    a.pid("pid"),
			Addr:   a.addr("addr"),
			Length: a.unsigned("length"),
			Shared: a.boolean("is_shared"),
		}
	},
	"MREMAP": func(a *args) Command {
		return MRemap{PID: a.pid("pid"), Addr: a.addr("addr"), NewAddr: a.addr("new_addr")}
	},
	"MUNMAP": func(a *args) Command {
		return MUnmap{PID: a.pid("pid"), Addr: a.addr("addr")}
	},
}
