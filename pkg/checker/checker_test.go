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

package checker

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/restorer/pkg/model"
)

func mustDo(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// reference builds the recorded state of the basic scenario: pid 2 alone
// holds /a at fd 3.
func reference(t *testing.T) *model.Application {
	t.Helper()
	a := model.NewApplication(1)
	mustDo(t, a.Fork(1, 2))
	mustDo(t, a.Open(2, "/a", 3))
	return a
}

func TestOpenForkClose(t *testing.T) {
	restored := model.NewApplication(1)
	mustDo(t, restored.Open(1, "/a", 3))
	mustDo(t, restored.Fork(1, 2))
	mustDo(t, restored.Close(1, 3))

	want := Verdict{Equal: true, FilesEqual: true, TreeEqual: true}
	if diff := cmp.Diff(want, Compare(reference(t), restored, Options{})); diff != "" {
		t.Errorf("verdict mismatch (-want +got):\n%s", diff)
	}
}

func TestIgnoresFileIDs(t *testing.T) {
	a := model.NewApplication(1)
	mustDo(t, a.Open(1, "/x", 3))
	mustDo(t, a.Open(1, "/y", 4))
	mustDo(t, a.Fork(1, 2))
	mustDo(t, a.Lseek(2, 4, 9))

	// Same state, built in another order so that every file gets a
	// different id, with different reaper flags and descriptor tables that
	// only differ in ways holder groups ignore.
	b := model.NewApplication(1)
	mustDo(t, b.Open(1, "/unused", 0))
	mustDo(t, b.Open(1, "/y", 4))
	mustDo(t, b.Close(1, 0))
	mustDo(t, b.Open(1, "/x", 3))
	mustDo(t, b.Lseek(1, 4, 9))
	mustDo(t, b.Fork(1, 2))
	mustDo(t, b.SetChildReaper(2, true))

	if xa, xb := a.File(1), b.File(1); xa == nil || xb != nil {
		t.Fatalf("file ids not shuffled: a[1]=%v b[1]=%v", xa, xb)
	}
	if !Equivalent(a, b, Options{}) {
		t.Errorf("equivalent applications compare different:\n%s", Report(a, b, Options{}))
	}
}

func TestSharingMatters(t *testing.T) {
	// In a, 1:3 and 2:3 share one file. In b they have distinct files with
	// the same path and position.
	a := model.NewApplication(1)
	mustDo(t, a.Open(1, "/a", 3))
	mustDo(t, a.Fork(1, 2))

	b := model.NewApplication(1)
	mustDo(t, b.Fork(1, 2))
	mustDo(t, b.Open(1, "/a", 3))
	mustDo(t, b.Open(2, "/a", 3))

	want := Verdict{Equal: false, FilesEqual: false, TreeEqual: true}
	if diff := cmp.Diff(want, Compare(a, b, Options{})); diff != "" {
		t.Errorf("verdict mismatch (-want +got):\n%s", diff)
	}
	report := Report(a, b, Options{})
	for _, s := range []string{"shared files that differ", "/a @ 0", "{1:3,2:3}", "json patch"} {
		if !strings.Contains(report, s) {
			t.Errorf("report does not contain %q:\n%s", s, report)
		}
	}
}

func TestPositionMatters(t *testing.T) {
	a := reference(t)
	b := reference(t)
	mustDo(t, b.Lseek(2, 3, 1))
	if v := Compare(a, b, Options{}); v.FilesEqual {
		t.Errorf("files with different positions compare equal")
	}
}

func TestTreeDifferences(t *testing.T) {
	base := reference(t)
	for _, tc := range []struct {
		name   string
		mutate func(a *model.Application) error
	}{
		{"zombie", func(a *model.Application) error { return a.Exit(2) }},
		{"sid", func(a *model.Application) error { return a.SetSID(2) }},
		{"extra process", func(a *model.Application) error { return a.Fork(1, 3) }},
		{"ppid", func(a *model.Application) error {
			if err := a.Fork(2, 3); err != nil {
				return err
			}
			return a.Wait(1, 2)
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := base.DeepCopy()
			mustDo(t, tc.mutate(a))
			v := Compare(base, a, Options{})
			if v.TreeEqual || v.Equal {
				t.Errorf("got %+v, want tree difference", v)
			}
			if report := Report(base, a, Options{}); !strings.Contains(report, "process tree (-dumped +restored)") {
				t.Errorf("report has no tree diff:\n%s", report)
			}
		})
	}
}

func TestCompareMappings(t *testing.T) {
	a := reference(t)
	b := reference(t)
	mustDo(t, b.MMapAnon(2, 0x1000, 0x1000, false))

	if !Equivalent(a, b, Options{}) {
		t.Errorf("mappings compared by default")
	}
	if Equivalent(a, b, Options{CompareMappings: true}) {
		t.Errorf("different mappings compare equal with CompareMappings")
	}
}

func TestView(t *testing.T) {
	a := reference(t)
	mustDo(t, a.Dup2(2, 3, 5))
	mustDo(t, a.MMap(2, 0x4000, 0x1000, 5, 0, true))

	data, err := json.Marshal(View(a))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got AppView
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := AppView{
		Processes: []ProcessView{
			{PID: 1, PPID: model.NoParent, SID: 1, ChildReaper: true, FDs: []FDView{}, Mappings: []VmaView{}},
			{
				PID:  2,
				PPID: 1,
				SID:  1,
				FDs: []FDView{
					{FD: 3, Path: "/a"},
					{FD: 5, Path: "/a"},
				},
				Mappings: []VmaView{{Start: 0x4000, End: 0x5000, Path: "/a", Shared: true}},
			},
		},
		Files: []FileView{{Path: "/a", Holders: []string{"2:3", "2:5"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("view mismatch (-want +got):\n%s", diff)
	}

	dump := Dump(a)
	for _, s := range []string{"pid 1 ppid -1 sid 1 child_reaper", "    fd 5: /a @ 0", "vma 0x4000-0x5000 shared /a"} {
		if !strings.Contains(dump, s) {
			t.Errorf("dump does not contain %q:\n%s", s, dump)
		}
	}
}

func TestPatch(t *testing.T) {
	a := reference(t)
	ops, err := Patch(a, a.DeepCopy())
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if len(ops) != 0 {
		t.Errorf("patch between equal states = %v, want empty", ops)
	}

	b := reference(t)
	mustDo(t, b.Lseek(2, 3, 7))
	ops, err = Patch(a, b)
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if len(ops) == 0 {
		t.Errorf("patch between different states is empty")
	}
}
