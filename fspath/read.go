package fspath

import (
	"encoding/json"
	"errors"
	"io/fs"
	"slices"
	"strings"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/core"
)

// Exists reports whether p names an existing file or directory.
func (p Path) Exists() (bool, error) {
	ok, err := p.fsys.Exists(p.name)
	if err != nil {
		return false, wrapError(err, "checking", p.name)
	}
	return ok, nil
}

// Stat returns the file info of p, following symbolic links.
func (p Path) Stat() (fs.FileInfo, error) {
	info, err := p.fsys.Stat(p.name)
	if err != nil {
		return nil, wrapError(err, "stat", p.name)
	}
	return info, nil
}

// Lstat returns the file info of p without following a final symbolic link.
func (p Path) Lstat() (fs.FileInfo, error) {
	var (
		info fs.FileInfo
		err  error
	)
	switch fsys := p.fsys.(type) {
	case core.MetadataFS:
		info, err = fsys.Lstat(p.name)
	case unwrapper:
		info, err = fsys.Unwrap().Lstat(p.name)
	default:
		err = core.ErrUnsupported
	}
	if err != nil {
		return nil, wrapError(err, "lstat", p.name)
	}
	return info, nil
}

// IsDir reports whether p is an existing directory.
// A missing path is not an error.
func (p Path) IsDir() (bool, error) {
	info, err := p.stat()
	if err != nil || info == nil {
		return false, err
	}
	return info.IsDir(), nil
}

// IsFile reports whether p is an existing regular file.
// A missing path is not an error.
func (p Path) IsFile() (bool, error) {
	info, err := p.stat()
	if err != nil || info == nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// stat returns nil info and no error for a missing path.
func (p Path) stat() (fs.FileInfo, error) {
	info, err := p.fsys.Stat(p.name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, wrapError(err, "stat", p.name)
	}
	return info, nil
}

// Open opens the file p for reading.
func (p Path) Open() (fs.File, error) {
	f, err := p.fsys.Open(p.name)
	if err != nil {
		return nil, wrapError(err, "opening", p.name)
	}
	return f, nil
}

// ReadFile returns the contents of the file p.
func (p Path) ReadFile() ([]byte, error) {
	data, err := p.fsys.ReadFile(p.name)
	if err != nil {
		return nil, wrapError(err, "reading", p.name)
	}
	return data, nil
}

// ReadString returns the contents of the file p as a string.
func (p Path) ReadString() (string, error) {
	data, err := p.ReadFile()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadJSON decodes the JSON contents of the file p into v.
func (p Path) ReadJSON(v any) error {
	data, err := p.ReadFile()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return platformerrors.Wrapf(err, platformerrors.CodeInvalidInput, "decoding %s", p.name)
	}
	return nil
}

// ReadDir returns the entries of the directory p, sorted by name.
func (p Path) ReadDir() ([]Path, error) {
	entries, err := p.fsys.ReadDir(p.name)
	if err != nil {
		return nil, wrapError(err, "listing", p.name)
	}
	paths := make([]Path, len(entries))
	for i, e := range entries {
		paths[i] = p.Join(e.Name())
	}
	slices.SortFunc(paths, func(a, b Path) int {
		return strings.Compare(a.name, b.name)
	})
	return paths, nil
}

// Walk walks the tree rooted at p, calling fn for each file or directory,
// including p itself.
// The semantics follow [fs.WalkDir].
func (p Path) Walk(fn func(p Path, d fs.DirEntry, err error) error) error {
	return p.fsys.Walk(p.name, func(name string, d fs.DirEntry, err error) error {
		return fn(p.with(name), d, err)
	})
}
