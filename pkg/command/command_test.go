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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/restorer/pkg/model"
)

func mustRead(t *testing.T, program string) []Statement {
	t.Helper()
	sts, err := ReadStatements(strings.NewReader(program))
	if err != nil {
		t.Fatalf("ReadStatements(%q): %v", program, err)
	}
	return sts
}

func TestDefaultSchemaCoversVariants(t *testing.T) {
	s := DefaultSchema()
	for _, spec := range s.Specs() {
		if _, ok := decoders[spec.Name]; !ok {
			t.Errorf("schema command %q has no variant", spec.Name)
		}
	}
	for name := range decoders {
		if _, ok := s.Lookup(name); !ok {
			t.Errorf("variant %q missing from built-in schema", name)
		}
	}
}

func TestParseSchema(t *testing.T) {
	s, err := ParseSchema([]byte(`[{"name": "EXIT", "args": ["pid"]}]`))
	if err != nil {
		t.Fatalf("ParseSchema(json): %v", err)
	}
	if diff := cmp.Diff([]Spec{{Name: "EXIT", Args: []string{"pid"}}}, s.Specs()); diff != "" {
		t.Errorf("specs mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{
		"- name: EXIT\n- name: EXIT\n",
		"- args: [pid]\n",
		"name: EXIT\n",
	} {
		if _, err := ParseSchema([]byte(bad)); err == nil {
			t.Errorf("ParseSchema(%q) succeeded, want error", bad)
		}
	}
}

func TestValidate(t *testing.T) {
	sts := mustRead(t, `[
		{"command": "OPEN", "pid": 1, "path": "/a", "fd": 3, "comment": "ignored"},
		{"command": "FORK", "pid": 1, "child_pid": 2},
		{"command": "CLONE", "pid": 2, "child_pid": 3},
		{"command": "SET_CHILD_REAPER", "pid": 2, "value": true},
		{"command": "SET_SID", "pid": 2},
		{"command": "DUP2", "pid": 1, "old_fd": 3, "new_fd": 4},
		{"command": "LSEEK", "pid": 1, "fd": 4, "pos": 18446744073709551615},
		{"command": "TRANSFER_FD", "from_pid": 1, "to_pid": 2, "fd": 3, "target_fd": 9},
		{"command": "CLOSE", "pid": 1, "fd": 3},
		{"command": "MMAP", "pid": 1, "addr": 4096, "length": 8192, "fd": 4, "offset": 0, "is_shared": 1},
		{"command": "MMAP_ANON", "pid": 1, "addr": 65536, "length": 4096, "is_shared": false},
		{"command": "MREMAP", "pid": 1, "addr": 65536, "new_addr": 131072},
		{"command": "MUNMAP", "pid": 1, "addr": 131072},
		{"command": "EXIT", "pid": 3},
		{"command": "WAIT", "pid": 1, "child_pid": 3}
	]`)
	prog, err := NewValidator(nil).Validate(sts)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := Program{
		Open{PID: 1, Path: "/a", FD: 3},
		Fork{PID: 1, Child: 2},
		Clone{PID: 2, Child: 3},
		SetChildReaper{PID: 2, Value: true},
		SetSID{PID: 2},
		Dup2{PID: 1, OldFD: 3, NewFD: 4},
		Lseek{PID: 1, FD: 4, Pos: 1<<64 - 1},
		TransferFD{From: 1, To: 2, FD: 3, TargetFD: 9},
		Close{PID: 1, FD: 3},
		MMap{PID: 1, Addr: 0x1000, Length: 0x2000, FD: 4, Shared: true},
		MMapAnon{PID: 1, Addr: 0x10000, Length: 0x1000},
		MRemap{PID: 1, Addr: 0x10000, NewAddr: 0x20000},
		MUnmap{PID: 1, Addr: 0x20000},
		Exit{PID: 3},
		Wait{PID: 1, Child: 3},
	}
	if diff := cmp.Diff(want, prog); diff != "" {
		t.Errorf("program mismatch (-want +got):\n%s", diff)
	}

	for i, c := range prog {
		again, err := NewValidator(nil).Validate([]Statement{ToStatement(c)})
		if err != nil {
			t.Errorf("statement %d: validating %v: %v", i, ToStatement(c), err)
			continue
		}
		if diff := cmp.Diff(Program{c}, again); diff != "" {
			t.Errorf("statement %d: round trip mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	sts := mustRead(t, `[
		{"pid": 1},
		{"command": "SPAWN", "pid": 1},
		{"command": 7},
		{"command": "DUP2", "pid": 1},
		{"command": "OPEN", "pid": -1, "path": 5, "fd": "3"},
		{"command": "LSEEK", "pid": 1, "fd": 2.5, "pos": -1},
		{"command": "SET_CHILD_REAPER", "pid": 1, "value": "yes"},
		{"command": "FORK", "pid": 1, "child_pid": 4294967296},
		{"command": "EXIT", "pid": 1}
	]`)
	prog, err := NewValidator(nil).Validate(sts)
	if prog != nil {
		t.Errorf("got program %v for invalid statements", prog)
	}
	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("Validate returned %T (%v), want ValidationErrors", err, err)
	}
	want := ValidationErrors{
		{Index: 0, Kind: UnknownCommand},
		{Index: 1, Kind: UnknownCommand, Command: "SPAWN"},
		{Index: 2, Kind: UnknownCommand, Command: "7"},
		{Index: 3, Kind: MissingArgument, Command: "DUP2", Field: "old_fd"},
		{Index: 3, Kind: MissingArgument, Command: "DUP2", Field: "new_fd"},
		{Index: 4, Kind: InvalidArgument, Command: "OPEN", Field: "pid"},
		{Index: 4, Kind: InvalidArgument, Command: "OPEN", Field: "path"},
		{Index: 4, Kind: InvalidArgument, Command: "OPEN", Field: "fd"},
		{Index: 5, Kind: InvalidArgument, Command: "LSEEK", Field: "fd"},
		{Index: 5, Kind: InvalidArgument, Command: "LSEEK", Field: "pos"},
		{Index: 6, Kind: InvalidArgument, Command: "SET_CHILD_REAPER", Field: "value"},
		{Index: 7, Kind: InvalidArgument, Command: "FORK", Field: "child_pid"},
	}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
	if msg := errs.Error(); !strings.Contains(msg, `statement 3: DUP2: missing argument "old_fd"`) {
		t.Errorf("error message %q does not name the missing field", msg)
	}
}

func TestUnimplementedCommand(t *testing.T) {
	s, err := ParseSchema([]byte("- name: EXIT\n  args: [pid]\n- name: KILL\n  args: [pid, signal]\n"))
	if err != nil {
		t.Fatalf("ParseSchema: %v", err)
	}
	sts := mustRead(t, `[{"command": "KILL", "pid": 1, "signal": 9}, {"command": "EXIT", "pid": 1}]`)
	_, err = NewValidator(s).Validate(sts)
	want := ValidationErrors{{Index: 0, Kind: UnimplementedCommand, Command: "KILL"}}
	if diff := cmp.Diff(want, err); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemaDrivesRequiredArgs(t *testing.T) {
	// An argument the schema does not require takes its zero value when
	// absent, but is still type checked when present.
	s, err := ParseSchema([]byte("- name: MMAP_ANON\n  args: [pid, addr, length]\n"))
	if err != nil {
		t.Fatalf("ParseSchema: %v", err)
	}
	v := NewValidator(s)
	prog, err := v.Validate(mustRead(t, `[{"command": "MMAP_ANON", "pid": 1, "addr": 4096, "length": 4096}]`))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := Program{MMapAnon{PID: 1, Addr: 0x1000, Length: 0x1000}}
	if diff := cmp.Diff(want, prog); diff != "" {
		t.Errorf("program mismatch (-want +got):\n%s", diff)
	}

	_, err = v.Validate(mustRead(t, `[{"command": "MMAP_ANON", "pid": 1, "addr": 4096, "length": 4096, "is_shared": "yes"}]`))
	wantErrs := ValidationErrors{{Index: 0, Kind: InvalidArgument, Command: "MMAP_ANON", Field: "is_shared"}}
	if diff := cmp.Diff(wantErrs, err); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestReadStatementsErrors(t *testing.T) {
	for _, bad := range []string{`{"command": "EXIT"}`, `[{"command": "EXIT"`, `[1, 2]`} {
		if _, err := ReadStatements(strings.NewReader(bad)); err == nil {
			t.Errorf("ReadStatements(%q) succeeded, want error", bad)
		}
	}
}

func TestName(t *testing.T) {
	var c Command = MMapAnon{PID: model.PID(1)}
	if got := c.Name(); got != "MMAP_ANON" {
		t.Errorf("Name() = %q, want MMAP_ANON", got)
	}
}
