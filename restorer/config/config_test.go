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

package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newFlagSet(t *testing.T, args ...string) *flag.FlagSet {
	t.Helper()
	flagSet := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(flagSet)
	if err := flagSet.Parse(args); err != nil {
		t.Fatalf("Parse(%v): %v", args, err)
	}
	return flagSet
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "restorer.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	c, err := NewFromFlags(newFlagSet(t))
	if err != nil {
		t.Fatal(err)
	}
	// "--parallel" defaults to GOMAXPROCS, which is not a fixed value.
	c.Parallel = 1
	want := &Config{
		LogFormat: "text",
		Parallel:  1,
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("default config mismatch (-want +got):\n%s", diff)
	}
}

func TestFromFlags(t *testing.T) {
	c, err := NewFromFlags(newFlagSet(t, "--root-pid=1", "--debug", "--log-format=json", "--parallel=3", "--compare-mappings"))
	if err != nil {
		t.Fatal(err)
	}
	if c.RootPID != 1 || !c.Debug || c.LogFormat != "json" || c.Parallel != 3 || !c.CompareMappings {
		t.Errorf("unexpected config: %+v", c)
	}
	if got := c.Root(); got != 1 {
		t.Errorf("Root() = %d, want 1", got)
	}
}

func TestToFlags(t *testing.T) {
	c, err := NewFromFlags(newFlagSet(t))
	if err != nil {
		t.Fatal(err)
	}
	c.RootPID = 1
	c.Debug = true
	c.LogFilename = "/some/file"
	c.Parallel = 1

	got := c.ToFlags()
	want := []string{"--root-pid=1", "--log=/some/file", "--debug=true"}
	if def := newFlagSet(t).Lookup("parallel").DefValue; def != "1" {
		want = append(want, "--parallel=1")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ToFlags mismatch (-want +got):\n%s", diff)
	}
}

func TestOverride(t *testing.T) {
	flagSet := newFlagSet(t)
	c, err := NewFromFlags(flagSet)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Override(flagSet, "root-pid", "7"); err != nil {
		t.Fatalf("Override(root-pid): %v", err)
	}
	if c.RootPID != 7 {
		t.Errorf("RootPID = %d, want 7", c.RootPID)
	}
}

func TestOverrideErrors(t *testing.T) {
	for _, tc := range []struct {
		name, value, want string
	}{
		{"root-pid", "seven", "error setting flag"},
		{"root-pid", "-1", "root-pid must be a valid pid"},
		{"log-format", "xml", "invalid log format"},
		{"parallel", "0", "parallel must be at least 1"},
		{"no-such-flag", "1", "not found"},
	} {
		t.Run(tc.name+"="+tc.value, func(t *testing.T) {
			flagSet := newFlagSet(t)
			c, err := NewFromFlags(flagSet)
			if err != nil {
				t.Fatal(err)
			}
			err = c.Override(flagSet, tc.name, tc.value)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Override(%q, %q) = %v, want error containing %q", tc.name, tc.value, err, tc.want)
			}
		})
	}
}

func TestConfigFile(t *testing.T) {
	path := writeFile(t, `
[flags]
root-pid = 1
debug = true
log-format = "json-k8s"
parallel = 2
`)
	c, err := NewFromFlags(newFlagSet(t, "--config="+path, "--parallel=5"))
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		RootPID:    1,
		Debug:      true,
		LogFormat:  "json-k8s",
		Parallel:   5,
		ConfigFile: path,
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigFileErrors(t *testing.T) {
	for _, tc := range []struct {
		name, content, want string
	}{
		{"syntax", "[flags\n", "reading config file"},
		{"unknown flag", "[flags]\nverbose = true\n", "not found"},
		{"bad value", "[flags]\nparallel = \"many\"\n", "error setting flag"},
		{"recursive", "[flags]\nconfig = \"other.toml\"\n", "can not be set from a config file"},
		{"unknown table", "[other]\nx = 1\n", "unknown keys"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, tc.content)
			_, err := NewFromFlags(newFlagSet(t, "--config="+path))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("NewFromFlags = %v, want error containing %q", err, tc.want)
			}
		})
	}
}
