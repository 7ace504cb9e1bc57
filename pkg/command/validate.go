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
	"fmt"
	"strings"
)

// Statement is an undecoded program statement: a "command" field naming the
// command plus its arguments.
type Statement map[string]any

// ErrorKind classifies validation errors.
type ErrorKind int

const (
	// UnknownCommand means the statement has no "command" field, or names a
	// command that is not a string or is not in the schema.
	UnknownCommand ErrorKind = iota + 1

	// MissingArgument means a required argument is absent.
	MissingArgument

	// InvalidArgument means an argument has the wrong type or is out of
	// range.
	InvalidArgument

	// UnimplementedCommand means the schema names a command that has no
	// typed variant.
	UnimplementedCommand
)

// String implements fmt.Stringer.String.
func (k ErrorKind) String() string {
	switch k {
	case UnknownCommand:
		return "unknown command"
	case MissingArgument:
		return "missing argument"
	case InvalidArgument:
		return "invalid argument"
	case UnimplementedCommand:
		return "unimplemented command"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ValidationError describes one problem with one statement.
type ValidationError struct {
	// Index is the position of the statement in the program.
	Index int

	Kind ErrorKind

	// Command is the command name, if the statement has one.
	Command string

	// Field is the offending argument for MissingArgument and
	// InvalidArgument.
	Field string
}

// Error implements error.Error.
func (e *ValidationError) Error() string {
	switch e.Kind {
	case MissingArgument, InvalidArgument:
		return fmt.Sprintf("statement %d: %s: %v %q", e.Index, e.Command, e.Kind, e.Field)
	default:
		return fmt.Sprintf("statement %d: %v %q", e.Index, e.Kind, e.Command)
	}
}

// ValidationErrors is every problem found in a rejected program.
type ValidationErrors []*ValidationError

// Error implements error.Error.
func (errs ValidationErrors) Error() string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return fmt.Sprintf("invalid program: %d error(s):\n\t%s", len(errs), strings.Join(msgs, "\n\t"))
}

// Validator checks statements against a schema.
type Validator struct {
	schema *Schema
}

// NewValidator returns a validator for s. A nil schema selects the built-in
// one.
func NewValidator(s *Schema) *Validator {
	if s == nil {
		s = DefaultSchema()
	}
	return &Validator{schema: s}
}

// Validate turns statements into a program. If any statement is invalid, the
// whole program is rejected and the returned error is a ValidationErrors
// listing every problem in program order.
func (v *Validator) Validate(statements []Statement) (Program, error) {
	var (
		prog = make(Program, 0, len(statements))
		errs ValidationErrors
	)
	for i, st := range statements {
		cmd, stErrs := v.statement(i, st)
		if len(stErrs) > 0 {
			errs = append(errs, stErrs...)
			continue
		}
		prog = append(prog, cmd)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return prog, nil
}

func (v *Validator) statement(i int, st Statement) (Command, ValidationErrors) {
	raw, ok := st["command"]
	if !ok {
		return nil, ValidationErrors{{Index: i, Kind: UnknownCommand}}
	}
	name, ok := raw.(string)
	if !ok {
		return nil, ValidationErrors{{Index: i, Kind: UnknownCommand, Command: fmt.Sprint(raw)}}
	}
	spec, ok := v.schema.Lookup(name)
	if !ok {
		return nil, ValidationErrors{{Index: i, Kind: UnknownCommand, Command: name}}
	}

	var errs ValidationErrors
	for _, field := range spec.Args {
		if _, ok := st[field]; !ok {
			errs = append(errs, &ValidationError{Index: i, Kind: MissingArgument, Command: name, Field: field})
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	decode, ok := decoders[name]
	if !ok {
		return nil, ValidationErrors{{Index: i, Kind: UnimplementedCommand, Command: name}}
	}
	a := &args{st: st}
	cmd := decode(a)
	for _, field := range a.invalid {
		errs = append(errs, &ValidationError{Index: i, Kind: InvalidArgument, Command: name, Field: field})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return cmd, nil
}
