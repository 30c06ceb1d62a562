// Package fspath provides an immutable, chainable path type bound to a
// filesystem.
//
// A [Path] pairs a cleaned, slash-separated name with a [core.FS]. Path algebra
// (Join, Parent, Base, Ext, WithExt, Rel) never touches the filesystem. Every
// other method performs one filesystem operation and reports failures as coded
// errors from [platformerrors], so callers can branch on the error code:
//
//	data, err := fspath.Local("config.json").ReadFile()
//	if platformerrors.GetCode(err) == platformerrors.CodeNotFound {
//	    // use defaults
//	}
//
// # Filesystems
//
// [Local] paths live on the operating system filesystem and are resolved to
// absolute names. [Memory] returns the root of a fresh in-memory filesystem,
// which is convenient in tests. [New] binds a path to any [core.FS].
//
// Symbolic links and metadata changes use [core.SymlinkFS] and
// [core.MetadataFS] when the filesystem implements them, and otherwise the
// go-billy filesystem behind it. Operations the filesystem cannot perform
// fail with [platformerrors.CodeNotImplemented].
//
// [core.FS]: https://pkg.go.dev/github.com/jmgilman/go/fs/core#FS
// [core.SymlinkFS]: https://pkg.go.dev/github.com/jmgilman/go/fs/core#SymlinkFS
// [core.MetadataFS]: https://pkg.go.dev/github.com/jmgilman/go/fs/core#MetadataFS
// [platformerrors]: https://pkg.go.dev/github.com/jmgilman/go/errors
// [platformerrors.CodeNotImplemented]: https://pkg.go.dev/github.com/jmgilman/go/errors#CodeNotImplemented
package fspath
