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

package cmd

import (
	"context"
	"encoding/json"
	"flag"

	"github.com/google/subcommands"
	"gvisor.dev/restorer/pkg/command"
	"gvisor.dev/restorer/pkg/interp"
	"gvisor.dev/restorer/pkg/model"
	"gvisor.dev/restorer/pkg/snapshot"
	"gvisor.dev/restorer/restorer/cmd/util"
	"gvisor.dev/restorer/restorer/config"
)

// Validate implements subcommands.Command for the "validate" command.
type Validate struct {
	execute bool
	base    string
	print   bool
}

// Name implements subcommands.Command.Name.
func (*Validate) Name() string {
	return "validate"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Validate) Synopsis() string {
	return "check a restore program against the command schema"
}

// Usage implements subcommands.Command.Usage.
func (*Validate) Usage() string {
	return `validate [flags] <program> - validate a restore program.

Every statement is checked and all problems are reported. With -execute the
program is also run against a copy of an empty model, or of the snapshot
given with -base, which catches runtime failures such as operations on
processes that do not exist. The snapshot itself is never modified.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (v *Validate) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&v.execute, "execute", false, "also execute the program against an empty model")
	f.StringVar(&v.base, "base", "", "snapshot directory to execute against instead of an empty model")
	f.BoolVar(&v.print, "print", false, "print the normalized program as JSON")
}

// Execute implements subcommands.Command.Execute.
func (v *Validate) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	prog, err := readProgram(conf, f.Arg(0))
	if printValidationErrors(err) {
		return subcommands.ExitFailure
	}
	if err != nil {
		return util.Errorf("validate: %v", err)
	}
	if v.execute {
		if _, err := preflight(conf, v.base, prog); err != nil {
			return util.Errorf("validate: %v", err)
		}
	}
	if v.print {
		statements := make([]command.Statement, 0, len(prog))
		for _, c := range prog {
			statements = append(statements, command.ToStatement(c))
		}
		enc := json.NewEncoder(&util.Writer{})
		enc.SetIndent("", "  ")
		if err := enc.Encode(statements); err != nil {
			return util.Errorf("validate: %v", err)
		}
		return subcommands.ExitSuccess
	}
	util.Infof("%s: %d commands OK", f.Arg(0), len(prog))
	return subcommands.ExitSuccess
}

// preflight executes prog against a copy of the snapshot in base, or of an
// empty model rooted at the configured pid when base is empty. It returns
// the copy.
func preflight(conf *config.Config, base string, prog command.Program) (*model.Application, error) {
	app := model.NewApplication(conf.Root())
	if base != "" {
		var err error
		if app, _, err = snapshot.LoadDir(base, conf.Root()); err != nil {
			return nil, err
		}
	}
	return interp.New(nil).Preflight(prog, app)
}
