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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gvisor.dev/restorer/pkg/model"
	"gvisor.dev/restorer/restorer/config"
)

var images = map[string]string{
	"pstree.json":    `{"entries": [{"pid": 1, "ppid": 0, "pgid": 1, "sid": 1}]}`,
	"core-1.json":    `{"entries": [{"tc": {"task_state": 1}}]}`,
	"ids-1.json":     `{"entries": [{"files_id": 1}]}`,
	"fdinfo-1.json":  `{"entries": [{"id": 1, "type": "REG", "fd": 3}]}`,
	"reg-files.json": `{"entries": [{"id": 1, "name": "/a", "pos": 0}]}`,
}

func testConfig() *config.Config {
	return &config.Config{LogFormat: "text", Parallel: 1}
}

// writeCase creates a verification case with the images above and program.
func writeCase(t *testing.T, program string) string {
	t.Helper()
	dir := t.TempDir()
	dump := filepath.Join(dir, caseDumpDir)
	if err := os.Mkdir(dump, 0755); err != nil {
		t.Fatal(err)
	}
	for name, data := range images {
		if err := os.WriteFile(filepath.Join(dump, name), []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, caseProgram), []byte(program), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestVerifyCase(t *testing.T) {
	for _, tc := range []struct {
		name    string
		program string
		equal   bool
		err     string
	}{
		{
			name: "equal",
			program: `[
				{"command": "FORK", "pid": 0, "child_pid": 1},
				{"command": "SET_SID", "pid": 1},
				{"command": "OPEN", "pid": 1, "path": "/a", "fd": 3}
			]`,
			equal: true,
		},
		{
			name: "different session",
			program: `[
				{"command": "FORK", "pid": 0, "child_pid": 1},
				{"command": "OPEN", "pid": 1, "path": "/a", "fd": 3}
			]`,
		},
		{
			name:    "invalid program",
			program: `[{"command": "FORK", "pid": 0}]`,
			err:     "missing argument",
		},
		{
			name:    "runtime failure",
			program: `[{"command": "OPEN", "pid": 1, "path": "/a", "fd": 3}]`,
			err:     "no such process",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res := verifyCase(testConfig(), writeCase(t, tc.program))
			if tc.err != "" {
				if res.err == nil || !strings.Contains(res.err.Error(), tc.err) {
					t.Fatalf("verifyCase error = %v, want %q", res.err, tc.err)
				}
				return
			}
			if res.err != nil {
				t.Fatalf("verifyCase: %v", res.err)
			}
			if res.verdict.Equal != tc.equal {
				t.Errorf("verdict = %+v, want equal %t\n%s", res.verdict, tc.equal, res.report)
			}
			if !tc.equal && !strings.Contains(res.report, "process tree") {
				t.Errorf("report does not describe the tree difference:\n%s", res.report)
			}
		})
	}
}

func TestPreflight(t *testing.T) {
	conf := testConfig()
	dir := writeCase(t, `[
		{"command": "FORK", "pid": 1, "child_pid": 2},
		{"command": "LSEEK", "pid": 2, "fd": 3, "pos": 10}
	]`)
	base := filepath.Join(dir, caseDumpDir)
	prog, err := readProgram(conf, filepath.Join(dir, caseProgram))
	if err != nil {
		t.Fatalf("readProgram: %v", err)
	}

	app, err := preflight(conf, base, prog)
	if err != nil {
		t.Fatalf("preflight against %s: %v", base, err)
	}
	if _, f, err := app.FileAt(1, 3); err != nil || f.Pos != 10 {
		t.Errorf("FileAt(1, 3) = %v, %v, want pos 10 shared with the fork", f, err)
	}

	// An empty model has no process 1.
	if _, err := preflight(conf, "", prog); err == nil || !strings.Contains(err.Error(), "no such process") {
		t.Errorf("preflight against empty model = %v, want no such process", err)
	}
	if _, err := preflight(conf, filepath.Join(dir, "missing"), prog); err == nil {
		t.Errorf("preflight against missing snapshot succeeded")
	}
}

func TestPrintState(t *testing.T) {
	app := model.NewApplication(1)
	if err := app.Open(1, "/a", 3); err != nil {
		t.Fatal(err)
	}

	var text bytes.Buffer
	if err := printState(&text, app, "text"); err != nil {
		t.Fatalf("printState(text): %v", err)
	}
	if !strings.Contains(text.String(), "fd 3: /a @ 0") {
		t.Errorf("text output missing fd 3:\n%s", text.String())
	}

	var js bytes.Buffer
	if err := printState(&js, app, "json"); err != nil {
		t.Fatalf("printState(json): %v", err)
	}
	var v map[string]any
	if err := json.Unmarshal(js.Bytes(), &v); err != nil {
		t.Errorf("json output does not decode: %v\n%s", err, js.String())
	}

	if err := printState(&js, app, "yaml"); err == nil {
		t.Errorf("printState(yaml) succeeded, want error")
	}
}
