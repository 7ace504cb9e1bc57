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

package command

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed commands.yaml
var defaultSchema []byte

// Spec describes one command: its name and required arguments.
type Spec struct {
	Name string   `yaml:"name" json:"name"`
	Args []string `yaml:"args" json:"args"`
}

// Schema is an ordered list of command specs.
type Schema struct {
	specs  []Spec
	byName map[string]int
}

// NewSchema returns a schema for specs. Names must be unique and non-empty.
func NewSchema(specs []Spec) (*Schema, error) {
	s := &Schema{
		specs:  specs,
		byName: make(map[string]int, len(specs)),
	}
	for i, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("command %d has no name", i)
		}
		if _, ok := s.byName[spec.Name]; ok {
			return nil, fmt.Errorf("command %q defined twice", spec.Name)
		}
		s.byName[spec.Name] = i
	}
	return s, nil
}

// ParseSchema parses a schema from YAML. JSON is accepted as well since it is
// a subset of YAML.
func ParseSchema(data []byte) (*Schema, error) {
	var specs []Spec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parsing command schema: %w", err)
	}
	return NewSchema(specs)
}

// ReadSchema parses a schema from r.
func ReadSchema(r io.Reader) (*Schema, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading command schema: %w", err)
	}
	return ParseSchema(data)
}

// LoadSchema returns the schema stored at path, or the built-in schema if
// path is empty.
func LoadSchema(path string) (*Schema, error) {
	if path == "" {
		return DefaultSchema(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading command schema: %w", err)
	}
	s, err := ParseSchema(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// DefaultSchema returns the built-in schema, which covers every command
// variant.
func DefaultSchema() *Schema {
	s, err := ParseSchema(defaultSchema)
	if err != nil {
		panic(fmt.Sprintf("built-in command schema: %v", err))
	}
	return s
}

// Lookup returns the spec of the named command.
func (s *Schema) Lookup(name string) (Spec, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Spec{}, false
	}
	return s.specs[i], true
}

// Specs returns all specs in definition order.
func (s *Schema) Specs() []Spec {
	return append([]Spec(nil), s.specs...)
}
