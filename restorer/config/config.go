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

// Package config provides basic infrastructure to set configuration settings
// for restorer. Each setting is registered as a command line flag and a field
// of Config, linked by the field's "flag" tag. Flags can also be set from a
// TOML file.
package config

import (
	"fmt"

	"gvisor.dev/restorer/pkg/log"
	"gvisor.dev/restorer/pkg/model"
)

// Config holds configuration that is not part of a program or snapshot.
//
// Follow these steps to add a new flag:
//  1. Create a new field in Config.
//  2. Add a field tag with the flag name.
//  3. Register a new flag in flags.go, with the same name and add a description.
//  4. Add any necessary validation into validate().
type Config struct {
	// RootPID is the pid of the synthetic root process that every restore
	// starts from and that snapshot roots are attached to.
	RootPID int `flag:"root-pid"`

	// Schema is the path of a command schema. Empty selects the built-in
	// schema.
	Schema string `flag:"schema"`

	// LogFilename is the filename to log to, if not empty.
	LogFilename string `flag:"log"`

	// LogFormat is the log format.
	LogFormat string `flag:"log-format"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// AlsoLogToStderr allows to send log messages to stderr.
	AlsoLogToStderr bool `flag:"alsologtostderr"`

	// CompareMappings makes verification compare memory mappings too.
	CompareMappings bool `flag:"compare-mappings"`

	// Parallel is the number of verification cases run concurrently.
	Parallel int `flag:"parallel"`

	// ConfigFile is a TOML file with flag values. Flags given on the command
	// line take precedence.
	ConfigFile string `flag:"config"`
}

func (c *Config) validate() error {
	if c.RootPID < 0 || c.RootPID > 1<<31-1 {
		return fmt.Errorf("root-pid must be a valid pid, got: %d", c.RootPID)
	}
	switch c.LogFormat {
	case "text", "json", "json-k8s":
	default:
		return fmt.Errorf("invalid log format %q, must be 'text', 'json', or 'json-k8s'", c.LogFormat)
	}
	if c.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1, got: %d", c.Parallel)
	}
	return nil
}

// Root returns the root pid as a model.PID.
func (c *Config) Root() model.PID {
	return model.PID(c.RootPID)
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config:")
	for _, f := range c.ToFlags() {
		log.Infof("\t%s", f)
	}
}
