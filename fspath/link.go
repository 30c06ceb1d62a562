package fspath

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	platformerrors "github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/core"
)

// unwrapper is implemented by filesystems backed by go-billy.
type unwrapper interface {
	Unwrap() billy.Filesystem
}

// Chmod changes the permission bits of p.
func (p Path) Chmod(mode fs.FileMode) error {
	var err error
	if m, ok := p.fsys.(core.MetadataFS); ok {
		err = m.Chmod(p.name, mode)
	} else if c, ok := changer(p.fsys); ok {
		err = c.Chmod(p.name, mode)
	} else if name := p.osName(); name != "" {
		err = os.Chmod(name, mode)
	} else {
		err = core.ErrUnsupported
	}
	return wrapError(err, "chmod", p.name)
}

// Chtimes changes the access and modification times of p.
func (p Path) Chtimes(atime, mtime time.Time) error {
	var err error
	if m, ok := p.fsys.(core.MetadataFS); ok {
		err = m.Chtimes(p.name, atime, mtime)
	} else if c, ok := changer(p.fsys); ok {
		err = c.Chtimes(p.name, atime, mtime)
	} else if name := p.osName(); name != "" {
		err = os.Chtimes(name, atime, mtime)
	} else {
		err = core.ErrUnsupported
	}
	return wrapError(err, "chtimes", p.name)
}

func changer(fsys core.FS) (billy.Change, bool) {
	u, ok := fsys.(unwrapper)
	if !ok {
		return nil, false
	}
	c, ok := u.Unwrap().(billy.Change)
	return c, ok
}

// osName returns the operating system name of an absolute local path,
// or "" if p is not one.
func (p Path) osName() string {
	if p.fsys.Type() != core.FSTypeLocal || !p.IsAbs() {
		return ""
	}
	root := "/"
	if u, ok := p.fsys.(unwrapper); ok {
		root = u.Unwrap().Root()
	}
	return filepath.Join(root, filepath.FromSlash(p.name))
}

// Symlink creates p as a symbolic link to target.
// The target is stored as given and is not required to exist.
func (p Path) Symlink(target string) error {
	var err error
	switch fsys := p.fsys.(type) {
	case core.SymlinkFS:
		err = fsys.Symlink(target, p.name)
	case unwrapper:
		err = fsys.Unwrap().Symlink(target, p.name)
	default:
		err = core.ErrUnsupported
	}
	return wrapError(err, "linking", p.name)
}

// Readlink returns the target of the symbolic link p.
func (p Path) Readlink() (string, error) {
	var (
		target string
		err    error
	)
	switch fsys := p.fsys.(type) {
	case core.SymlinkFS:
		target, err = fsys.Readlink(p.name)
	case unwrapper:
		target, err = fsys.Unwrap().Readlink(p.name)
	default:
		err = core.ErrUnsupported
	}
	if err != nil {
		return "", wrapError(err, "reading link", p.name)
	}
	return target, nil
}

// EnsureSymlink makes p a symbolic link to target, creating parent
// directories as needed.
// An existing link to the same target is left in place; any other existing
// file is an error.
func (p Path) EnsureSymlink(target string) error {
	info, err := p.Lstat()
	switch {
	case err == nil && info.Mode()&fs.ModeSymlink != 0:
		current, err := p.Readlink()
		if err != nil {
			return err
		}
		if current == target {
			return nil
		}
		return platformerrors.Newf(platformerrors.CodeConflict, "%s links to %s, not %s", p.name, current, target)
	case err == nil:
		return wrapError(fs.ErrExist, "linking", p.name)
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}
	if err := p.Parent().EnsureDir(); err != nil {
		return err
	}
	return p.Symlink(target)
}
