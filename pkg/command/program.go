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
	"fmt"
	"io"
	"os"
)

// ReadStatements decodes a program: a JSON array of statement objects.
// Numbers are kept as json.Number so that large values are not rounded.
func ReadStatements(r io.Reader) ([]Statement, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var statements []Statement
	if err := dec.Decode(&statements); err != nil {
		return nil, fmt.Errorf("decoding program: %w", err)
	}
	return statements, nil
}

// ReadStatementsFile decodes the program stored at path.
func ReadStatementsFile(path string) ([]Statement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	statements, err := ReadStatements(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return statements, nil
}

// ToStatement returns the untyped form of c, as it would appear in a
// program. Validating the result yields c again.
func ToStatement(c Command) Statement {
	st := Statement{"command": c.Name()}
	put := func(field string, v int64) { st[field] = v }
	switch c := c.(type) {
	case Fork:
		put("pid", int64(c.PID))
		put("child_pid", int64(c.Child))
	case Clone:
		put("pid", int64(c.PID))
		put("child_pid", int64(c.Child))
	case SetChildReaper:
		put("pid", int64(c.PID))
		st["value"] = c.Value
	case SetSID:
		put("pid", int64(c.PID))
	case Exit:
		put("pid", int64(c.PID))
	case Wait:
		put("pid", int64(c.PID))
		put("child_pid", int64(c.Child))
	case Open:
		put("pid", int64(c.PID))
		st["path"] = c.Path
		put("fd", int64(c.FD))
	case Close:
		put("pid", int64(c.PID))
		put("fd", int64(c.FD))
	case Dup2:
		put("pid", int64(c.PID))
		put("old_fd", int64(c.OldFD))
		put("new_fd", int64(c.NewFD))
	case Lseek:
		put("pid", int64(c.PID))
		put("fd", int64(c.FD))
		st["pos"] = c.Pos
	case TransferFD:
		put("from_pid", int64(c.From))
		put("to_pid", int64(c.To))
		put("fd", int64(c.FD))
		put("target_fd", int64(c.TargetFD))
	case MMap:
		put("pid", int64(c.PID))
		st["addr"] = uint64(c.Addr)
		st["length"] = c.Length
		put("fd", int64(c.FD))
		st["offset"] = c.Offset
		st["is_shared"] = c.Shared
	case MMapAnon:
		put("pid", int64(c.PID))
		st["addr"] = uint64(c.Addr)
		st["length"] = c.Length
		st["is_shared"] = c.Shared
	case MRemap:
		put("pid", int64(c.PID))
		st["addr"] = uint64(c.Addr)
		st["new_addr"] = uint64(c.NewAddr)
	case MUnmap:
		put("pid", int64(c.PID))
		st["addr"] = uint64(c.Addr)
	}
	return st
}
