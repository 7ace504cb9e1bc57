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

// Package checker decides whether a restored Application is equivalent to
// the Application recorded at checkpoint time.
//
// Two applications are equivalent when their process trees match and their
// files are shared the same way. File handles are internal to each
// Application and never compared: a file is identified by its path and
// position, and what must match is which sets of (pid, fd) holders refer to
// files with the same path and position.
package checker

import (
	"slices"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gvisor.dev/restorer/pkg/model"
)

// Options controls what is compared.
type Options struct {
	// CompareMappings includes memory mappings in the process comparison.
	// Snapshots loaded from images carry no mappings, so this is off by
	// default.
	CompareMappings bool
}

// Verdict is the result of a comparison.
type Verdict struct {
	// Equal is true if both FilesEqual and TreeEqual are.
	Equal bool

	// FilesEqual is true if files are shared the same way.
	FilesEqual bool

	// TreeEqual is true if the process lists match.
	TreeEqual bool
}

// fileKey identifies a file across applications.
type fileKey struct {
	Path string
	Pos  uint64
}

// holderGroups maps each (path, pos) to the set of holder sets of files with
// that path and position. A holder set is encoded as its sorted list of
// holders.
type holderGroups map[fileKey]map[string]bool

func holderSetKey(hs []model.Holder) string {
	parts := make([]string, 0, len(hs))
	for _, h := range hs {
		parts = append(parts, h.String())
	}
	return strings.Join(parts, ",")
}

func groupHolders(app *model.Application) holderGroups {
	groups := make(holderGroups)
	for _, id := range app.FileIDs() {
		f := app.File(id)
		k := fileKey{Path: f.Path, Pos: f.Pos}
		if groups[k] == nil {
			groups[k] = make(map[string]bool)
		}
		groups[k][holderSetKey(app.Holders(id))] = true
	}
	return groups
}

// process is the part of a model.Process that takes part in the comparison.
// Descriptor tables are covered by holder groups and the child reaper flag
// is not recorded in checkpoint images.
type process struct {
	PID      model.PID
	PPID     model.PID
	SID      model.PID
	Zombie   bool
	Mappings []model.Vma
}

func processes(app *model.Application, opts Options) []process {
	var ps []process
	for _, p := range app.Processes() {
		v := process{PID: p.PID, PPID: p.PPID, SID: p.SID, Zombie: p.Zombie}
		if opts.CompareMappings {
			v.Mappings = p.Mappings()
		}
		ps = append(ps, v)
	}
	return ps
}

var cmpOpts = []cmp.Option{cmpopts.EquateEmpty()}

// Compare compares dumped, the recorded state, with restored. It never fails:
// any difference is reported through the verdict.
func Compare(dumped, restored *model.Application, opts Options) Verdict {
	v := Verdict{
		FilesEqual: cmp.Equal(groupHolders(dumped), groupHolders(restored), cmpOpts...),
		TreeEqual:  cmp.Equal(processes(dumped, opts), processes(restored, opts), cmpOpts...),
	}
	v.Equal = v.FilesEqual && v.TreeEqual
	return v
}

// Equivalent returns true if restored is equivalent to dumped.
func Equivalent(dumped, restored *model.Application, opts Options) bool {
	return Compare(dumped, restored, opts).Equal
}

// groupDiff returns the (path, pos) keys whose holder sets differ, sorted.
func groupDiff(a, b holderGroups) []fileKey {
	var keys []fileKey
	for k, sets := range a {
		if !cmp.Equal(sets, b[k], cmpOpts...) {
			keys = append(keys, k)
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(x, y fileKey) int {
		if c := strings.Compare(x.Path, y.Path); c != 0 {
			return c
		}
		switch {
		case x.Pos < y.Pos:
			return -1
		case x.Pos > y.Pos:
			return 1
		}
		return 0
	})
	return keys
}
