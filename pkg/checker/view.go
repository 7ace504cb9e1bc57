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
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/mattbaird/jsonpatch"
	"gvisor.dev/restorer/pkg/model"
)

// AppView is a canonical rendering of an Application. It does not depend on
// internal file handles, so equal states give equal views.
type AppView struct {
	Processes []ProcessView `json:"processes"`
	Files     []FileView    `json:"files"`
}

// ProcessView is a canonical rendering of a Process.
type ProcessView struct {
	PID         model.PID `json:"pid"`
	PPID        model.PID `json:"ppid"`
	SID         model.PID `json:"sid"`
	Zombie      bool      `json:"zombie"`
	ChildReaper bool      `json:"child_reaper"`
	FDs         []FDView  `json:"fds"`
	Mappings    []VmaView `json:"mappings"`
}

// FDView is a descriptor with the file it refers to resolved.
type FDView struct {
	FD   model.FD `json:"fd"`
	Path string   `json:"path"`
	Pos  uint64   `json:"pos"`
}

// VmaView is a canonical rendering of a Vma.
type VmaView struct {
	Start  uint64 `json:"start"`
	End    uint64 `json:"end"`
	Path   string `json:"path,omitempty"`
	PgOff  uint64 `json:"pgoff"`
	Shared bool   `json:"shared"`
}

// FileView is a file with the holders that share it.
type FileView struct {
	Path    string   `json:"path"`
	Pos     uint64   `json:"pos"`
	Holders []string `json:"holders"`
}

// View returns the canonical view of app.
func View(app *model.Application) AppView {
	v := AppView{
		Processes: []ProcessView{},
		Files:     []FileView{},
	}
	for _, p := range app.Processes() {
		pv := ProcessView{
			PID:         p.PID,
			PPID:        p.PPID,
			SID:         p.SID,
			Zombie:      p.Zombie,
			ChildReaper: p.ChildReaper,
			FDs:         []FDView{},
			Mappings:    []VmaView{},
		}
		for _, fd := range p.Descriptors() {
			f := app.File(p.FDs[fd])
			pv.FDs = append(pv.FDs, FDView{FD: fd, Path: f.Path, Pos: f.Pos})
		}
		for _, m := range p.Mappings() {
			pv.Mappings = append(pv.Mappings, VmaView{
				Start:  uint64(m.Start),
				End:    uint64(m.End),
				Path:   m.Path,
				PgOff:  m.PgOff,
				Shared: m.Shared,
			})
		}
		v.Processes = append(v.Processes, pv)
	}
	for _, id := range app.FileIDs() {
		f := app.File(id)
		var holders []string
		for _, h := range app.Holders(id) {
			holders = append(holders, h.String())
		}
		v.Files = append(v.Files, FileView{Path: f.Path, Pos: f.Pos, Holders: holders})
	}
	slices.SortFunc(v.Files, func(x, y FileView) int {
		return cmp.Or(
			cmp.Compare(x.Path, y.Path),
			cmp.Compare(x.Pos, y.Pos),
			slices.Compare(x.Holders, y.Holders),
		)
	})
	return v
}

// Dump renders app as indented text.
func Dump(app *model.Application) string {
	var b strings.Builder
	for _, p := range View(app).Processes {
		fmt.Fprintf(&b, "pid %d ppid %d sid %d", p.PID, p.PPID, p.SID)
		if p.Zombie {
			b.WriteString(" zombie")
		}
		if p.ChildReaper {
			b.WriteString(" child_reaper")
		}
		b.WriteString("\n")
		for _, fd := range p.FDs {
			fmt.Fprintf(&b, "    fd %d: %s @ %d\n", fd.FD, fd.Path, fd.Pos)
		}
		for _, m := range p.Mappings {
			kind := "private"
			if m.Shared {
				kind = "shared"
			}
			fmt.Fprintf(&b, "    vma %#x-%#x %s %s @ %#x\n", m.Start, m.End, kind, m.Path, m.PgOff)
		}
	}
	return b.String()
}

// Patch returns the JSON patch that turns the view of dumped into the view
// of restored.
func Patch(dumped, restored *model.Application) ([]jsonpatch.JsonPatchOperation, error) {
	a, err := json.Marshal(View(dumped))
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(View(restored))
	if err != nil {
		return nil, err
	}
	return jsonpatch.CreatePatch(a, b)
}

// Report describes how restored differs from dumped. It is meant for humans
// and includes both states in full.
func Report(dumped, restored *model.Application, opts Options) string {
	var b strings.Builder
	v := Compare(dumped, restored, opts)
	fmt.Fprintf(&b, "equal: %t (files: %t, process tree: %t)\n", v.Equal, v.FilesEqual, v.TreeEqual)
	fmt.Fprintf(&b, "\ndumped:\n%s", Dump(dumped))
	fmt.Fprintf(&b, "\nrestored:\n%s", Dump(restored))

	if !v.TreeEqual {
		diff := gocmp.Diff(processes(dumped, opts), processes(restored, opts), cmpOpts...)
		fmt.Fprintf(&b, "\nprocess tree (-dumped +restored):\n%s", diff)
	}
	if !v.FilesEqual {
		gd, gr := groupHolders(dumped), groupHolders(restored)
		b.WriteString("\nshared files that differ:\n")
		for _, k := range groupDiff(gd, gr) {
			fmt.Fprintf(&b, "    %s @ %d: dumped %v, restored %v\n", k.Path, k.Pos, holderSets(gd[k]), holderSets(gr[k]))
		}
	}
	if !v.Equal {
		ops, err := Patch(dumped, restored)
		if err != nil {
			fmt.Fprintf(&b, "\njson patch: %v\n", err)
			return b.String()
		}
		b.WriteString("\njson patch (dumped -> restored):\n")
		for _, op := range ops {
			val, _ := json.Marshal(op.Value)
			fmt.Fprintf(&b, "    %s %s %s\n", op.Operation, op.Path, val)
		}
	}
	return b.String()
}

func holderSets(sets map[string]bool) []string {
	keys := make([]string, 0, len(sets))
	for k := range sets {
		keys = append(keys, "{"+k+"}")
	}
	slices.Sort(keys)
	return keys
}
