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

// Package cmd holds implementations of the restorer commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gvisor.dev/restorer/pkg/checker"
	"gvisor.dev/restorer/pkg/command"
	"gvisor.dev/restorer/pkg/interp"
	"gvisor.dev/restorer/pkg/log"
	"gvisor.dev/restorer/pkg/model"
	"gvisor.dev/restorer/restorer/config"
)

// readProgram reads and validates the program at path. "-" reads standard
// input.
func readProgram(conf *config.Config, path string) (command.Program, error) {
	var (
		statements []command.Statement
		err        error
	)
	if path == "-" {
		statements, err = command.ReadStatements(os.Stdin)
	} else {
		statements, err = command.ReadStatementsFile(path)
	}
	if err != nil {
		return nil, err
	}
	schema, err := command.LoadSchema(conf.Schema)
	if err != nil {
		return nil, err
	}
	return command.NewValidator(schema).Validate(statements)
}

// restore executes prog on a fresh Application rooted at the configured root
// pid. With --debug every operation is traced.
func restore(conf *config.Config, prog command.Program) (*model.Application, error) {
	app := model.NewApplication(conf.Root())
	var target interp.Capability = app
	if conf.Debug {
		target = interp.Trace(app)
	}
	if err := interp.New(nil).Execute(prog, target); err != nil {
		return app, err
	}
	return app, nil
}

// printState writes app to w in the given format.
func printState(w io.Writer, app *model.Application, format string) error {
	switch format {
	case "text":
		_, err := io.WriteString(w, checker.Dump(app))
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(checker.View(app))
	default:
		return fmt.Errorf("invalid format %q, must be 'text' or 'json'", format)
	}
}

// printValidationErrors writes one line per validation error to stderr and
// to the log.
func printValidationErrors(err error) bool {
	errs, ok := err.(command.ValidationErrors)
	if !ok {
		return false
	}
	for _, e := range errs {
		log.Warningf("%v", e)
		fmt.Fprintln(os.Stderr, e)
	}
	return true
}
