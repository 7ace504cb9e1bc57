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
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"
	"gvisor.dev/restorer/pkg/checker"
	"gvisor.dev/restorer/pkg/log"
	"gvisor.dev/restorer/pkg/snapshot"
	"gvisor.dev/restorer/restorer/cmd/util"
	"gvisor.dev/restorer/restorer/config"
)

// Layout of a verification case directory.
const (
	caseDumpDir = "dump"
	caseProgram = "program.json"
)

// Verify implements subcommands.Command for the "verify" command.
type Verify struct {
	quiet bool
}

// Name implements subcommands.Command.Name.
func (*Verify) Name() string {
	return "verify"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Verify) Synopsis() string {
	return "check that restore programs reproduce checkpointed state"
}

// Usage implements subcommands.Command.Usage.
func (*Verify) Usage() string {
	return `verify [flags] <case dir>... - verify restore programs against checkpoints.

Each case directory holds the checkpoint images in "dump/" and the restore
program in "program.json". The program is executed and the resulting state is
compared with the checkpoint. Cases run concurrently, see --parallel.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (v *Verify) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&v.quiet, "quiet", false, "do not print reports of failed cases")
}

// caseResult is the outcome of one verification case.
type caseResult struct {
	dir     string
	verdict checker.Verdict
	report  string
	err     error
}

// Execute implements subcommands.Command.Execute.
func (v *Verify) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	results := make([]caseResult, f.NArg())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(conf.Parallel)
	for i, dir := range f.Args() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = verifyCase(conf, dir)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return util.Errorf("verify: %v", err)
	}

	failed := 0
	for _, r := range results {
		switch {
		case r.err != nil:
			failed++
			fmt.Fprintf(os.Stdout, "ERROR %s: %v\n", r.dir, r.err)
		case !r.verdict.Equal:
			failed++
			fmt.Fprintf(os.Stdout, "FAIL  %s\n", r.dir)
			if !v.quiet {
				fmt.Fprintf(os.Stdout, "%s\n", r.report)
			}
		default:
			fmt.Fprintf(os.Stdout, "OK    %s\n", r.dir)
		}
	}
	log.Infof("Verified %d cases, %d failed", len(results), failed)
	if failed > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// verifyCase runs the case in dir. It owns every Application it creates, so
// cases can run concurrently.
func verifyCase(conf *config.Config, dir string) caseResult {
	res := caseResult{dir: dir}
	dumped, warnings, err := snapshot.LoadDir(filepath.Join(dir, caseDumpDir), conf.Root())
	if err != nil {
		res.err = err
		return res
	}
	for _, w := range warnings {
		log.Debugf("%s: %s", dir, w)
	}
	prog, err := readProgram(conf, filepath.Join(dir, caseProgram))
	if err != nil {
		res.err = err
		return res
	}
	restored, err := restore(conf, prog)
	if err != nil {
		res.err = err
		return res
	}
	opts := checker.Options{CompareMappings: conf.CompareMappings}
	res.verdict = checker.Compare(dumped, restored, opts)
	if !res.verdict.Equal {
		res.report = checker.Report(dumped, restored, opts)
	}
	return res
}
