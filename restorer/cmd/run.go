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
	"flag"
	"os"

	"github.com/google/subcommands"
	"gvisor.dev/restorer/restorer/cmd/util"
	"gvisor.dev/restorer/restorer/config"
)

// Run implements subcommands.Command for the "run" command.
type Run struct {
	format string
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "execute a restore program and print the resulting state"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags] <program> - execute a restore program against the model.

If a command fails, the state reached before it is printed and the command
exits with an error.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.format, "format", "text", "output format: text or json")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
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
		return util.Errorf("run: %v", err)
	}
	app, runErr := restore(conf, prog)
	if err := printState(os.Stdout, app, r.format); err != nil {
		return util.Errorf("run: %v", err)
	}
	if runErr != nil {
		return util.Errorf("run: %v", runErr)
	}
	return subcommands.ExitSuccess
}
