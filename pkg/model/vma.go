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

package model

import (
	"fmt"

	"github.com/google/btree"
)

// Vma is a mapping of the address range [Start, End).
type Vma struct {
	Start Addr
	End   Addr

	// Path is the backing file. It is empty for private anonymous memory.
	Path string

	// PgOff is the offset into the backing file.
	PgOff uint64

	// Shared is true for MAP_SHARED mappings.
	Shared bool
}

// Len returns the length of the mapping in bytes.
func (v Vma) Len() uint64 {
	return uint64(v.End - v.Start)
}

// String implements fmt.Stringer.String.
func (v Vma) String() string {
	kind := "private"
	if v.Shared {
		kind = "shared"
	}
	if v.Path == "" {
		return fmt.Sprintf("Vma(%v-%v, %s, anonymous)", v.Start, v.End, kind)
	}
	return fmt.Sprintf("Vma(%v-%v, %s, %s@%#x)", v.Start, v.End, kind, v.Path, v.PgOff)
}

// vmaDegree is the btree degree used for mapping sets. Processes rarely
// carry more than a few hundred mappings.
const vmaDegree = 8

// vmaSet is the set of mappings of one process, ordered and keyed by start
// address.
type vmaSet struct {
	tree *btree.BTreeG[Vma]
}

func vmaLess(a, b Vma) bool {
	return a.Start < b.Start
}

func newVmaSet() *vmaSet {
	return &vmaSet{tree: btree.NewG(vmaDegree, vmaLess)}
}

// find returns the mapping that starts at addr.
func (s *vmaSet) find(addr Addr) (Vma, bool) {
	return s.tree.Get(Vma{Start: addr})
}

// insert adds v. It returns false, leaving the set unchanged, if another
// mapping already starts at v.Start.
func (s *vmaSet) insert(v Vma) bool {
	if s.tree.Has(v) {
		return false
	}
	s.tree.ReplaceOrInsert(v)
	return true
}

// remove deletes the mapping that starts at addr.
func (s *vmaSet) remove(addr Addr) (Vma, bool) {
	return s.tree.Delete(Vma{Start: addr})
}

// all returns every mapping in address order.
func (s *vmaSet) all() []Vma {
	vmas := make([]Vma, 0, s.tree.Len())
	s.tree.Ascend(func(v Vma) bool {
		vmas = append(vmas, v)
		return true
	})
	return vmas
}

// len returns the number of mappings.
func (s *vmaSet) len() int {
	return s.tree.Len()
}

// clone returns an independent copy of s. Vma values are stored by value, so
// the copy-on-write clone of the tree shares nothing mutable with s.
func (s *vmaSet) clone() *vmaSet {
	return &vmaSet{tree: s.tree.Clone()}
}
