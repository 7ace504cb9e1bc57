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
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/restorer/pkg/command"
	"gvisor.dev/restorer/pkg/errors/rsterr"
	"gvisor.dev/restorer/pkg/log"
	"gvisor.dev/restorer/pkg/model"
)

func statements(t *testing.T, program string) []command.Statement {
	t.Helper()
	sts, err := command.ReadStatements(strings.NewReader(program))
	if err != nil {
		t.Fatalf("ReadStatements: %v", err)
	}
	return sts
}

func TestRun(t *testing.T) {
	app := model.NewApplication(1)
	err := New(nil).Run(statements(t, `[
		{"command": "OPEN", "pid": 1, "path": "/a", "fd": 3},
		{"command": "FORK", "pid": 1, "child_pid": 2},
		{"command": "CLOSE", "pid": 1, "fd": 3}
	]`), app)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := app.ProcessTable[1].Descriptors(); len(got) != 0 {
		t.Errorf("pid 1 descriptors = %v, want none", got)
	}
	id, f, err := app.FileAt(2, 3)
	if err != nil {
		t.Fatalf("FileAt(2, 3): %v", err)
	}
	if f.Path != "/a" || f.Pos != 0 {
		t.Errorf("pid 2 fd 3 = %v, want /a at 0", f)
	}
	if diff := cmp.Diff([]model.Holder{{PID: 2, FD: 3}}, app.Holders(id)); diff != "" {
		t.Errorf("holders mismatch (-want +got):\n%s", diff)
	}
}

func TestRunInvalidProgram(t *testing.T) {
	app := model.NewApplication(1)
	before := app.String()
	err := New(nil).Run(statements(t, `[
		{"command": "OPEN", "pid": 1, "path": "/a", "fd": 3},
		{"command": "FORK", "pid": 1}
	]`), app)
	var verrs command.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Run = %v, want validation errors", err)
	}
	if after := app.String(); after != before {
		t.Errorf("invalid program changed the target:\n%s", after)
	}
}

func TestExecuteStopsAtFirstFailure(t *testing.T) {
	app := model.NewApplication(1)
	prog := command.Program{
		command.Open{PID: 1, Path: "/a", FD: 3},
		command.Wait{PID: 1, Child: 2},
		command.Open{PID: 1, Path: "/b", FD: 4},
	}
	err := New(nil).Execute(prog, app)
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("Execute = %v, want *ExecError", err)
	}
	if execErr.Index != 1 || execErr.Command != prog[1] {
		t.Errorf("failed at %d (%v), want 1 (%v)", execErr.Index, execErr.Command, prog[1])
	}
	if !rsterr.IsNotFound(err) {
		t.Errorf("Execute = %v, want not found", err)
	}
	if diff := cmp.Diff([]model.FD{3}, app.ProcessTable[1].Descriptors()); diff != "" {
		t.Errorf("state after failure mismatch (-want +got):\n%s", diff)
	}
}

func TestPreflight(t *testing.T) {
	base := model.NewApplication(1)
	if err := base.Open(1, "/a", 3); err != nil {
		t.Fatalf("Open: %v", err)
	}
	before := base.String()
	prog := command.Program{
		command.Fork{PID: 1, Child: 2},
		command.Lseek{PID: 2, FD: 3, Pos: 10},
		command.Close{PID: 1, FD: 3},
	}
	got, err := New(nil).Preflight(prog, base)
	if err != nil {
		t.Fatalf("Preflight: %v", err)
	}
	if after := base.String(); after != before {
		t.Errorf("preflight changed its base:\nbefore:\n%s\nafter:\n%s", before, after)
	}
	if _, f, err := got.FileAt(2, 3); err != nil || f.Pos != 10 {
		t.Errorf("preflight result fd 2:3 = %v, %v; want pos 10", f, err)
	}
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := &log.BasicLogger{Level: log.Debug, Emitter: &log.Writer{Next: &buf}}
	app := model.NewApplication(1)
	target := TraceTo(app, logger)

	prog := command.Program{
		command.Open{PID: 1, Path: "/a", FD: 3},
		command.Dup2{PID: 1, OldFD: 4, NewFD: 5},
	}
	if err := New(nil).Execute(prog, target); err == nil {
		t.Fatalf("Execute succeeded, want EBADF from dup2")
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d trace lines, want 2:\n%s", len(lines), buf.String())
	}
	if lines[0] != `open(1, "/a", 3)` {
		t.Errorf("first trace line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "dup2(1, 4, 5) = ") {
		t.Errorf("second trace line = %q", lines[1])
	}

	buf.Reset()
	logger.SetLevel(log.Info)
	if err := target.SetSID(1); err != nil {
		t.Fatalf("SetSID: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("traced at info level: %q", buf.String())
	}
}
