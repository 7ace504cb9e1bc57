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

// Package snapshot loads the state recorded in a checkpoint into a
// model.Application.
//
// Images are read in the JSON form produced by "crit decode --pretty" (or
// "crit show"). Only the images that describe the process tree and regular
// files are used: pstree.json, core-<pid>.json, ids-<pid>.json,
// fdinfo-<files_id>.json and reg-files.json, or files.json for images written
// by newer versions of CRIU. Directories holding only the binary images
// written by "criu dump" are rejected with ErrBinaryImages.
package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gvisor.dev/restorer/pkg/log"
	"gvisor.dev/restorer/pkg/model"
)

// Task states, as recorded in core images.
const (
	taskAlive   = 1
	taskDead    = 2
	taskStopped = 3
	taskHelper  = 4
)

// ErrBinaryImages is returned when a directory holds binary images but no
// decoded ones.
var ErrBinaryImages = errors.New(`binary images must be converted with "crit decode" first`)

// skipLogInterval bounds how often skipped descriptors are logged. Images of
// large applications can carry thousands of sockets and pipes.
const skipLogInterval = time.Second

// Loader builds an Application from a directory of images.
type Loader struct {
	fsys fs.FS
	root model.PID

	// skipLog logs skipped descriptors.
	skipLog log.Logger

	warnings []string

	// regFiles maps image file ids to regular file entries.
	regFiles map[uint32]regFileEntry

	// fileIDs maps image file ids to model handles.
	fileIDs map[uint32]model.FileID
}

// NewLoader returns a loader that reads images from fsys. Processes recorded
// without a parent are attached to a synthetic root with the given pid.
func NewLoader(fsys fs.FS, root model.PID) *Loader {
	return &Loader{
		fsys:    fsys,
		root:    root,
		skipLog: log.BasicRateLimitedLogger(skipLogInterval),
	}
}

// LoadDir loads the images in dir. It returns the warnings collected while
// loading along with the Application.
func LoadDir(dir string, root model.PID) (*model.Application, []string, error) {
	l := NewLoader(os.DirFS(dir), root)
	app, err := l.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s: %w", dir, err)
	}
	return app, l.Warnings(), nil
}

// Warnings returns the warnings collected by the last Load.
func (l *Loader) Warnings() []string {
	return l.warnings
}

func (l *Loader) warnf(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	l.warnings = append(l.warnings, msg)
	log.Warningf("%s", msg)
}

// Load reads every image and returns the recorded state.
func (l *Loader) Load() (*model.Application, error) {
	l.warnings = nil
	l.fileIDs = make(map[uint32]model.FileID)
	if _, err := fs.Stat(l.fsys, "pstree.json"); errors.Is(err, fs.ErrNotExist) {
		if _, err := fs.Stat(l.fsys, "pstree.img"); err == nil {
			return nil, fmt.Errorf("pstree.img: %w", ErrBinaryImages)
		}
	}
	if err := l.loadRegFiles(); err != nil {
		return nil, err
	}

	var pstree pstreeImage
	if err := readImage(l.fsys, "pstree.json", kindPstree, &pstree); err != nil {
		return nil, err
	}

	app := model.NewApplication(l.root)
	for _, e := range pstree.Entries {
		pid, ppid, sid := model.PID(e.PID), model.PID(e.PPID), model.PID(e.SID)
		if ppid == 0 {
			ppid = l.root
		}
		zombie, err := l.loadTaskState(pid)
		if err != nil {
			return nil, err
		}
		if _, err := app.AddProcess(pid, ppid, sid, zombie); err != nil {
			return nil, fmt.Errorf("pstree.json: %w", err)
		}
		if err := l.loadFDs(app, pid); err != nil {
			return nil, err
		}
	}
	if err := app.Validate(); err != nil {
		return nil, fmt.Errorf("inconsistent images: %w", err)
	}
	log.Infof("Loaded %d processes and %d files", len(app.ProcessTable), len(app.FileTable))
	return app, nil
}

// loadRegFiles reads regular file entries from reg-files.json, falling back
// to the reg entries of files.json.
func (l *Loader) loadRegFiles() error {
	l.regFiles = make(map[uint32]regFileEntry)

	var regs regFilesImage
	err := readImage(l.fsys, "reg-files.json", kindRegFiles, &regs)
	switch {
	case err == nil:
		for _, e := range regs.Entries {
			l.regFiles[e.ID] = e
		}
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	var files filesImage
	if err := readImage(l.fsys, "files.json", kindFiles, &files); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("neither reg-files.json nor files.json found: %w", err)
		}
		return err
	}
	for _, e := range files.Entries {
		if e.Type != typeReg || e.Reg == nil {
			continue
		}
		reg := *e.Reg
		reg.ID = e.ID
		l.regFiles[e.ID] = reg
	}
	return nil
}

// loadTaskState returns whether pid is a zombie.
func (l *Loader) loadTaskState(pid model.PID) (bool, error) {
	var core coreImage
	name := fmt.Sprintf("core-%d.json", pid)
	if err := readImage(l.fsys, name, kindCore, &core); err != nil {
		return false, err
	}
	switch state := core.Entries[0].TC.TaskState; state {
	case taskAlive:
		return false, nil
	case taskDead:
		return true, nil
	case taskStopped:
		l.warnf("process %d: stopped tasks are not supported, loading as alive", pid)
	case taskHelper:
		l.warnf("process %d: helper tasks are not supported, loading as alive", pid)
	default:
		l.warnf("process %d: unknown task state %d, loading as alive", pid, state)
	}
	return false, nil
}

// loadFDs installs the regular files of pid.
func (l *Loader) loadFDs(app *model.Application, pid model.PID) error {
	var ids idsImage
	if err := readImage(l.fsys, fmt.Sprintf("ids-%d.json", pid), kindIDs, &ids); err != nil {
		return err
	}
	name := fmt.Sprintf("fdinfo-%d.json", ids.Entries[0].FilesID)
	var fdinfo fdinfoImage
	if err := readImage(l.fsys, name, kindFdinfo, &fdinfo); err != nil {
		return err
	}
	for _, e := range fdinfo.Entries {
		if e.Type != typeReg {
			l.warnings = append(l.warnings, fmt.Sprintf("process %d: skipping fd %d of type %s", pid, e.FD, e.Type))
			l.skipLog.Warningf("Process %d: skipping fd %d of type %s", pid, e.FD, e.Type)
			continue
		}
		id, err := l.file(app, e.ID)
		if err != nil {
			return fmt.Errorf("%s: fd %d: %w", name, e.FD, err)
		}
		if err := app.Install(pid, model.FD(e.FD), id); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// file returns the model handle of the image file id, adding the file on
// first use. Files that no descriptor refers to are never added.
func (l *Loader) file(app *model.Application, imageID uint32) (model.FileID, error) {
	if id, ok := l.fileIDs[imageID]; ok {
		return id, nil
	}
	reg, ok := l.regFiles[imageID]
	if !ok {
		return 0, fmt.Errorf("no regular file with id %d", imageID)
	}
	id := app.AddFile(&model.RegularFile{Path: reg.Name, Pos: reg.Pos, Size: reg.Size})
	l.fileIDs[imageID] = id
	return id, nil
}
