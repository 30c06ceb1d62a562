package fspath

import (
	"errors"
	"fmt"
	"io/fs"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/core"
)

// wrapError classifies err and annotates it with the operation and path.
// It preserves the original error chain for errors.Is/errors.As compatibility.
// If err is nil, returns nil.
func wrapError(err error, op, name string) error {
	if err == nil {
		return nil
	}
	return platformerrors.Wrap(err, classifyError(err), fmt.Sprintf("%s %s", op, name))
}

// classifyError maps filesystem errors to platform error codes.
// Errors that already carry a code keep it.
func classifyError(err error) platformerrors.ErrorCode {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return platformerrors.CodeNotFound
	case errors.Is(err, fs.ErrExist):
		return platformerrors.CodeAlreadyExists
	case errors.Is(err, fs.ErrPermission):
		return platformerrors.CodeForbidden
	case errors.Is(err, core.ErrUnsupported):
		return platformerrors.CodeNotImplemented
	case errors.Is(err, fs.ErrInvalid):
		return platformerrors.CodeInvalidInput
	}
	if code := platformerrors.GetCode(err); code != platformerrors.CodeUnknown {
		return code
	}
	return platformerrors.CodeInternal
}
