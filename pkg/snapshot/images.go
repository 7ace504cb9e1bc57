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

package snapshot

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Image kinds, named after their schema files.
const (
	kindPstree   = "pstree"
	kindCore     = "core"
	kindIDs      = "ids"
	kindFdinfo   = "fdinfo"
	kindRegFiles = "reg-files"
	kindFiles    = "files"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[string]*gojsonschema.Schema
	schemasErr  error
)

func compileSchemas() {
	schemas = make(map[string]*gojsonschema.Schema)
	for _, kind := range []string{kindPstree, kindCore, kindIDs, kindFdinfo, kindRegFiles, kindFiles} {
		data, err := schemaFS.ReadFile("schemas/" + kind + ".json")
		if err != nil {
			schemasErr = err
			return
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			schemasErr = fmt.Errorf("compiling %s schema: %w", kind, err)
			return
		}
		schemas[kind] = s
	}
}

// schemaFor returns the compiled schema of an image kind.
func schemaFor(kind string) (*gojsonschema.Schema, error) {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return nil, schemasErr
	}
	s, ok := schemas[kind]
	if !ok {
		return nil, fmt.Errorf("no schema for %s images", kind)
	}
	return s, nil
}

// readImage reads name from fsys, validates it against the schema of kind and
// decodes it into v.
func readImage(fsys fs.FS, name, kind string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	s, err := schemaFor(kind)
	if err != nil {
		return err
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%s: invalid %s image: %s", name, kind, strings.Join(msgs, "; "))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// The types below mirror the parts of crit's JSON output that are used.

type pstreeImage struct {
	Entries []struct {
		PID  int32 `json:"pid"`
		PPID int32 `json:"ppid"`
		SID  int32 `json:"sid"`
	} `json:"entries"`
}

type coreImage struct {
	Entries []struct {
		TC struct {
			TaskState int `json:"task_state"`
		} `json:"tc"`
	} `json:"entries"`
}

type idsImage struct {
	Entries []struct {
		FilesID uint32 `json:"files_id"`
	} `json:"entries"`
}

// fileType is a file type, which crit prints either by name or by value.
type fileType string

// UnmarshalJSON implements json.Unmarshaler.UnmarshalJSON.
func (t *fileType) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*t = fileType(name)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("file type %s is neither a name nor a number", b)
	}
	// Values of the fd_types enum.
	switch n {
	case 1:
		*t = typeReg
	default:
		*t = fileType(fmt.Sprintf("%d", n))
	}
	return nil
}

const typeReg fileType = "REG"

type fdinfoImage struct {
	Entries []struct {
		ID   uint32   `json:"id"`
		FD   int32    `json:"fd"`
		Type fileType `json:"type"`
	} `json:"entries"`
}

type regFileEntry struct {
	ID   uint32  `json:"id"`
	Name string  `json:"name"`
	Pos  uint64  `json:"pos"`
	Size *uint64 `json:"size"`
}

type regFilesImage struct {
	Entries []regFileEntry `json:"entries"`
}

type filesImage struct {
	Entries []struct {
		ID   uint32        `json:"id"`
		Type fileType      `json:"type"`
		Reg  *regFileEntry `json:"reg"`
	} `json:"entries"`
}
