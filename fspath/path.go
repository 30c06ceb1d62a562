package fspath

import (
	"encoding/json"
	"path"
	"path/filepath"
	"strings"

	platformerrors "github.com/jmgilman/go/errors"
	fsbilly "github.com/jmgilman/go/fs/billy"
	"github.com/jmgilman/go/fs/core"
)

// Default permission bits used by operations that create files or directories
// without an explicit mode.
const (
	DefaultFileMode = 0o644
	DefaultDirMode  = 0o755
)

// Path is an immutable location on a filesystem.
// Path names always use forward slashes and are kept in cleaned form.
// Every method that returns a Path returns a new value bound to the same
// filesystem.
//
// The zero value is not usable: construct paths with [New], [Local] or
// [Memory].
type Path struct {
	fsys core.FS
	name string
}

// New returns a path on fsys built by joining elems.
// The result is cleaned; an empty result is ".".
func New(fsys core.FS, elems ...string) Path {
	return Path{fsys: fsys, name: clean(elems...)}
}

// localFS is shared by every path made with [Local].
var localFS core.FS = fsbilly.NewLocal()

// Local returns a path on the local filesystem.
// Relative results are resolved against the current working directory.
// All local paths share one filesystem value.
func Local(elems ...string) Path {
	name := filepath.Join(elems...)
	if abs, err := filepath.Abs(name); err == nil {
		name = abs
	}
	return New(localFS, filepath.ToSlash(name))
}

// Memory returns the root of a new, empty in-memory filesystem.
func Memory() Path {
	return New(fsbilly.NewMemory(), "/")
}

func clean(elems ...string) string {
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = filepath.ToSlash(e)
	}
	name := path.Join(parts...)
	if name == "" {
		return "."
	}
	return name
}

func (p Path) with(name string) Path {
	return Path{fsys: p.fsys, name: path.Clean(name)}
}

// FS returns the filesystem the path belongs to.
func (p Path) FS() core.FS {
	return p.fsys
}

// String returns the path name.
func (p Path) String() string {
	return p.name
}

// Join returns p with elems appended.
func (p Path) Join(elems ...string) Path {
	return New(p.fsys, append([]string{p.name}, elems...)...)
}

// Parent returns the directory containing p.
func (p Path) Parent() Path {
	return p.with(path.Dir(p.name))
}

// Dir returns the name of the directory containing p.
func (p Path) Dir() string {
	return path.Dir(p.name)
}

// Base returns the last element of p.
func (p Path) Base() string {
	return path.Base(p.name)
}

// Ext returns the file name extension of p, including the dot.
func (p Path) Ext() string {
	return path.Ext(p.name)
}

// BaseWithoutExt returns the last element of p without its extension.
func (p Path) BaseWithoutExt() string {
	return strings.TrimSuffix(p.Base(), p.Ext())
}

// WithExt returns p with its extension replaced by ext.
// A missing leading dot is added; an empty ext removes the extension.
func (p Path) WithExt(ext string) Path {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return p.with(strings.TrimSuffix(p.name, p.Ext()) + ext)
}

// IsAbs reports whether p is absolute.
func (p Path) IsAbs() bool {
	return path.IsAbs(p.name)
}

// Rel returns the name of target relative to p.
func (p Path) Rel(target string) (string, error) {
	rel, err := filepath.Rel(filepath.FromSlash(p.name), filepath.FromSlash(clean(target)))
	if err != nil {
		return "", platformerrors.Wrapf(err, platformerrors.CodeInvalidInput, "relating %s to %s", target, p.name)
	}
	return filepath.ToSlash(rel), nil
}

// Abs returns an absolute form of p.
// Relative paths can only be resolved on the local filesystem.
func (p Path) Abs() (Path, error) {
	if p.IsAbs() {
		return p, nil
	}
	if p.fsys.Type() != core.FSTypeLocal {
		return Path{}, wrapError(core.ErrUnsupported, "resolving", p.name)
	}
	abs, err := filepath.Abs(filepath.FromSlash(p.name))
	if err != nil {
		return Path{}, wrapError(err, "resolving", p.name)
	}
	return p.with(filepath.ToSlash(abs)), nil
}

// Root returns the root of a filesystem scoped to p.
func (p Path) Root() (Path, error) {
	sub, err := p.fsys.Chroot(p.name)
	if err != nil {
		return Path{}, wrapError(err, "scoping", p.name)
	}
	return New(sub, "/"), nil
}

// MarshalJSON implements the [json.Marshaler] interface.
// The path is encoded as its name.
//
// [json.Marshaler]: https://pkg.go.dev/encoding/json#Marshaler
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.name)
}
