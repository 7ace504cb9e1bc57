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
	"gvisor.dev/restorer/pkg/snapshot"
	"gvisor.dev/restorer/restorer/cmd/util"
	"gvisor.dev/restorer/restorer/config"
)

// Show implements subcommands.Command for the "show" command.
type Show struct {
	format string
}

// Name implements subcommands.Command.Name.
func (*Show) Name() string {
	return "show"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Show) Synopsis() string {
	return "print the state recorded in a checkpoint"
}

// Usage implements subcommands.Command.Usage.
func (*Show) Usage() string {
	return `show [flags] <images dir> - print the state recorded in checkpoint images.

The directory must hold images decoded to JSON by crit.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Show) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.format, "format", "text", "output format: text or json")
}

// Execute implements subcommands.Command.Execute.
func (s *Show) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	app, _, err := snapshot.LoadDir(f.Arg(0), conf.Root())
	if err != nil {
		return util.Errorf("show: %v", err)
	}
	if err := printState(os.Stdout, app, s.format); err != nil {
		return util.Errorf("show: %v", err)
	}
	return subcommands.ExitSuccess
}
