package fspath

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/core"
)

// Remove removes p and everything below it.
// A missing path is not an error.
func (p Path) Remove() error {
	return wrapError(p.fsys.RemoveAll(p.name), "removing", p.name)
}

// EmptyDir removes the contents of the directory p, creating the directory
// if it does not exist.
func (p Path) EmptyDir() error {
	info, err := p.stat()
	switch {
	case err != nil:
		return err
	case info == nil:
		return p.EnsureDir()
	case !info.IsDir():
		return platformerrors.Newf(platformerrors.CodeConflict, "%s is not a directory", p.name)
	}
	children, err := p.ReadDir()
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := c.Remove(); err != nil {
			return err
		}
	}
	return nil
}

// Rename renames p to dest.
// Both paths must be on the same filesystem.
func (p Path) Rename(dest Path) error {
	if !p.sameFS(dest) {
		return platformerrors.Newf(platformerrors.CodeInvalidInput, "renaming %s: %s is on another filesystem", p.name, dest.name)
	}
	return wrapError(p.fsys.Rename(p.name, dest.name), "renaming", p.name)
}

// Move moves p to dest, creating missing parent directories of dest.
// An existing dest is replaced only when overwrite is set.
// Moves across filesystems copy the tree and then remove p.
func (p Path) Move(dest Path, overwrite bool) error {
	if p.sameFS(dest) && p.name == dest.name {
		return nil
	}
	exists, err := dest.Exists()
	if err != nil {
		return err
	}
	if exists {
		if !overwrite {
			return wrapError(fs.ErrExist, "moving to", dest.name)
		}
		if err := dest.Remove(); err != nil {
			return err
		}
	}
	if err := dest.Parent().EnsureDir(); err != nil {
		return err
	}
	if p.sameFS(dest) {
		if err := p.fsys.Rename(p.name, dest.name); err == nil {
			return nil
		}
	}
	if err := p.Copy(dest); err != nil {
		return err
	}
	return p.Remove()
}

// Copy copies the file or directory tree p to dest, creating missing parent
// directories of dest. Symbolic links are followed.
// The destination may be on another filesystem, but not inside p.
func (p Path) Copy(dest Path) error {
	if p.contains(dest) {
		return platformerrors.Newf(platformerrors.CodeInvalidInput, "copying %s into itself", p.name)
	}
	info, err := p.Stat()
	if err != nil {
		return err
	}
	if err := dest.Parent().EnsureDir(); err != nil {
		return err
	}
	if !info.IsDir() {
		return p.copyFile(dest, info.Mode().Perm())
	}
	return p.Walk(func(src Path, d fs.DirEntry, err error) error {
		if err != nil {
			return wrapError(err, "copying", src.name)
		}
		rel, err := p.Rel(src.name)
		if err != nil {
			return err
		}
		target := dest.Join(rel)
		info, err := d.Info()
		if err != nil {
			return wrapError(err, "copying", src.name)
		}
		if d.IsDir() {
			return wrapError(dest.fsys.MkdirAll(target.name, info.Mode().Perm()), "creating directory", target.name)
		}
		return src.copyFile(target, info.Mode().Perm())
	})
}

// CopyFile copies the regular file p to dest, creating missing parent
// directories of dest.
func (p Path) CopyFile(dest Path) error {
	info, err := p.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return platformerrors.Newf(platformerrors.CodeConflict, "%s is a directory", p.name)
	}
	if err := dest.Parent().EnsureDir(); err != nil {
		return err
	}
	return p.copyFile(dest, info.Mode().Perm())
}

func (p Path) copyFile(dest Path, perm fs.FileMode) error {
	src, err := p.fsys.Open(p.name)
	if err != nil {
		return wrapError(err, "copying", p.name)
	}
	defer func() { _ = src.Close() }()

	dst, err := dest.fsys.OpenFile(dest.name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return wrapError(err, "copying to", dest.name)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return wrapError(err, "copying to", dest.name)
	}
	return wrapError(dst.Close(), "copying to", dest.name)
}

// CopyFrom copies the files below root in src into the directory p.
// It is typically used to materialize an [embed.FS].
//
// [embed.FS]: https://pkg.go.dev/embed#FS
func (p Path) CopyFrom(src fs.FS, root string) error {
	if err := p.EnsureDir(); err != nil {
		return err
	}
	dst, err := p.Root()
	if err != nil {
		return err
	}
	return wrapError(core.CopyFromEmbedFS(src, dst.fsys, root), "copying into", p.name)
}

// Truncate changes the size of the file p.
func (p Path) Truncate(size int64) error {
	f, err := p.fsys.OpenFile(p.name, os.O_WRONLY, 0)
	if err != nil {
		return wrapError(err, "truncating", p.name)
	}
	t, ok := f.(core.Truncater)
	if !ok {
		_ = f.Close()
		return wrapError(core.ErrUnsupported, "truncating", p.name)
	}
	if err := t.Truncate(size); err != nil {
		_ = f.Close()
		return wrapError(err, "truncating", p.name)
	}
	return wrapError(f.Close(), "truncating", p.name)
}

// sameFS reports whether p and q name files in one namespace.
// Local filesystems are the same when they share a root, whichever value
// produced them.
func (p Path) sameFS(q Path) bool {
	if p.fsys == q.fsys {
		return true
	}
	if p.fsys.Type() != core.FSTypeLocal || q.fsys.Type() != core.FSTypeLocal {
		return false
	}
	pr, pok := fsRoot(p.fsys)
	qr, qok := fsRoot(q.fsys)
	return pok && qok && pr == qr
}

// fsRoot returns the host directory a go-billy backed filesystem is rooted at.
func fsRoot(fsys core.FS) (string, bool) {
	u, ok := fsys.(unwrapper)
	if !ok {
		return "", false
	}
	return filepath.Clean(u.Unwrap().Root()), true
}

// contains reports whether q is p or lies below it.
// Local paths are compared by their host names, so a path on a filesystem
// scoped to a subdirectory is still recognized.
func (p Path) contains(q Path) bool {
	pn, qn := p.name, q.name
	if a, b := p.osName(), q.osName(); a != "" && b != "" {
		pn, qn = filepath.ToSlash(a), filepath.ToSlash(b)
	} else if !p.sameFS(q) {
		return false
	}
	rel, err := filepath.Rel(filepath.FromSlash(pn), filepath.FromSlash(qn))
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel != ".." && !strings.HasPrefix(rel, "../")
}
