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

// Package interp executes validated restore programs against a backend.
package interp

import (
	"fmt"

	"gvisor.dev/restorer/pkg/command"
	"gvisor.dev/restorer/pkg/log"
	"gvisor.dev/restorer/pkg/model"
)

// Capability is the set of operations a restore backend provides. The model
// implements it, see *model.Application.
type Capability interface {
	Fork(pid, child model.PID) error
	Clone(pid, child model.PID) error
	SetChildReaper(pid model.PID, value bool) error
	SetSID(pid model.PID) error
	Exit(pid model.PID) error
	Wait(pid, child model.PID) error
	Open(pid model.PID, path string, fd model.FD) error
	Close(pid model.PID, fd model.FD) error
	Dup2(pid model.PID, oldFD, newFD model.FD) error
	Lseek(pid model.PID, fd model.FD, pos uint64) error
	TransferFD(from, to model.PID, fd, targetFD model.FD) error
	MMap(pid model.PID, addr model.Addr, length uint64, fd model.FD, offset uint64, shared bool) error
	MMapAnon(pid model.PID, addr model.Addr, length uint64, shared bool) error
	MRemap(pid model.PID, addr, newAddr model.Addr) error
	MUnmap(pid model.PID, addr model.Addr) error
}

var _ Capability = (*model.Application)(nil)

// ExecError is returned when a command fails. The backend keeps the state
// produced by the commands before it.
type ExecError struct {
	// Index is the position of the failed command in the program.
	Index int

	// Command is the failed command.
	Command command.Command

	// Err is the error returned by the backend.
	Err error
}

// Error implements error.Error.
func (e *ExecError) Error() string {
	return fmt.Sprintf("command %d (%s): %v", e.Index, e.Command.Name(), e.Err)
}

// Unwrap returns the backend error.
func (e *ExecError) Unwrap() error {
	return e.Err
}

// Interpreter runs programs.
type Interpreter struct {
	validator *command.Validator
}

// New returns an interpreter that validates statements against schema. A nil
// schema selects the built-in one.
func New(schema *command.Schema) *Interpreter {
	return &Interpreter{validator: command.NewValidator(schema)}
}

// Run validates statements and executes the resulting program against
// target. If validation fails, target is not touched and the error is a
// command.ValidationErrors.
func (in *Interpreter) Run(statements []command.Statement, target Capability) error {
	prog, err := in.validator.Validate(statements)
	if err != nil {
		return err
	}
	return in.Execute(prog, target)
}

// Execute applies prog to target in order. It stops at the first failure and
// returns it as an *ExecError. Nothing is rolled back.
func (in *Interpreter) Execute(prog command.Program, target Capability) error {
	for i, c := range prog {
		if err := apply(c, target); err != nil {
			return &ExecError{Index: i, Command: c, Err: err}
		}
	}
	log.Debugf("Executed %d commands", len(prog))
	return nil
}

func apply(c command.Command, t Capability) error {
	switch c := c.(type) {
	case command.Fork:
		return t.Fork(c.PID, c.Child)
	case command.Clone:
		return t.Clone(c.PID, c.Child)
	case command.SetChildReaper:
		return t.SetChildReaper(c.PID, c.Value)
	case command.SetSID:
		return t.SetSID(c.PID)
	case command.Exit:
		return t.Exit(c.PID)
	case command.Wait:
		return t.Wait(c.PID, c.Child)
	case command.Open:
		return t.Open(c.PID, c.Path, c.FD)
	case command.Close:
		return t.Close(c.PID, c.FD)
	case command.Dup2:
		return t.Dup2(c.PID, c.OldFD, c.NewFD)
	case command.Lseek:
		return t.Lseek(c.PID, c.FD, c.Pos)
	case command.TransferFD:
		return t.TransferFD(c.From, c.To, c.FD, c.TargetFD)
	case command.MMap:
		return t.MMap(c.PID, c.Addr, c.Length, c.FD, c.Offset, c.Shared)
	case command.MMapAnon:
		return t.MMapAnon(c.PID, c.Addr, c.Length, c.Shared)
	case command.MRemap:
		return t.MRemap(c.PID, c.Addr, c.NewAddr)
	case command.MUnmap:
		return t.MUnmap(c.PID, c.Addr)
	default:
		panic(fmt.Sprintf("unknown command type %T", c))
	}
}

// Preflight executes prog against a copy of base and returns the copy. base
// is never modified. On failure the partially restored copy is returned
// together with the error.
func (in *Interpreter) Preflight(prog command.Program, base *model.Application) (*model.Application, error) {
	app := base.DeepCopy()
	err := in.Execute(prog, app)
	return app, err
}
