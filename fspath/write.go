package fspath

import (
	"encoding/json"
	"io/fs"
	"os"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/core"
)

// WriteFile writes data to the file p, creating or truncating it.
// The parent directory must exist.
func (p Path) WriteFile(data []byte, perm fs.FileMode) error {
	return wrapError(p.fsys.WriteFile(p.name, data, perm), "writing", p.name)
}

// Create creates or truncates the file p and opens it for writing.
// The parent directory must exist.
func (p Path) Create() (core.File, error) {
	f, err := p.fsys.Create(p.name)
	if err != nil {
		return nil, wrapError(err, "creating", p.name)
	}
	return f, nil
}

// WriteString writes s to the file p with [DefaultFileMode].
func (p Path) WriteString(s string) error {
	return p.WriteFile([]byte(s), DefaultFileMode)
}

// AppendFile appends data to the file p, creating it if necessary.
func (p Path) AppendFile(data []byte) error {
	f, err := p.fsys.OpenFile(p.name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, DefaultFileMode)
	if err != nil {
		return wrapError(err, "appending to", p.name)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return wrapError(err, "appending to", p.name)
	}
	return wrapError(f.Close(), "appending to", p.name)
}

// OutputFile writes data to the file p, creating missing parent directories.
func (p Path) OutputFile(data []byte) error {
	if err := p.Parent().EnsureDir(); err != nil {
		return err
	}
	return p.WriteFile(data, DefaultFileMode)
}

// WriteJSON writes v to the file p as indented JSON.
// The parent directory must exist.
func (p Path) WriteJSON(v any) error {
	data, err := marshalJSON(v, p.name)
	if err != nil {
		return err
	}
	return p.WriteFile(data, DefaultFileMode)
}

// OutputJSON writes v to the file p as indented JSON, creating missing parent
// directories.
func (p Path) OutputJSON(v any) error {
	data, err := marshalJSON(v, p.name)
	if err != nil {
		return err
	}
	return p.OutputFile(data)
}

func marshalJSON(v any, name string) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, platformerrors.Wrapf(err, platformerrors.CodeInvalidInput, "encoding %s", name)
	}
	return append(data, '\n'), nil
}

// Mkdir creates the directory p.
// It fails if p exists or its parent does not.
func (p Path) Mkdir() error {
	return wrapError(p.fsys.Mkdir(p.name, DefaultDirMode), "creating directory", p.name)
}

// EnsureDir creates the directory p along with any missing parents.
// An existing directory is not an error.
func (p Path) EnsureDir() error {
	return wrapError(p.fsys.MkdirAll(p.name, DefaultDirMode), "creating directory", p.name)
}

// EnsureFile creates an empty file at p, along with any missing parents,
// unless a file already exists there. Existing contents are kept.
func (p Path) EnsureFile() error {
	info, err := p.stat()
	switch {
	case err != nil:
		return err
	case info != nil && info.IsDir():
		return platformerrors.Newf(platformerrors.CodeConflict, "%s is a directory", p.name)
	case info != nil:
		return nil
	}
	if err := p.Parent().EnsureDir(); err != nil {
		return err
	}
	return p.WriteFile(nil, DefaultFileMode)
}
