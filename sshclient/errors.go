package sshclient

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"

	platformerrors "github.com/jmgilman/go/errors"
)

var (
	// ErrNotConnected is returned by operations that need an open connection.
	ErrNotConnected = platformerrors.New(platformerrors.CodeUnavailable, "not connected")

	// ErrHostKeyRejected is returned when the host key callback rejects the server.
	ErrHostKeyRejected = errors.New("host key rejected")
)

// wrapError classifies err and annotates it with context.
// If err is nil, returns nil.
func wrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return platformerrors.Wrap(err, classifyError(err), context)
}

// classifyError maps connection, session and SFTP failures to platform
// error codes. Errors that already carry a code keep it.
func classifyError(err error) platformerrors.ErrorCode {
	if code := platformerrors.GetCode(err); code != platformerrors.CodeUnknown {
		return code
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return platformerrors.CodeTimeout
	case errors.Is(err, context.Canceled):
		return platformerrors.CodeExecutionFailed
	case errors.Is(err, ErrHostKeyRejected):
		return platformerrors.CodeForbidden
	case strings.Contains(err.Error(), "unable to authenticate"):
		return platformerrors.CodeUnauthorized
	case errors.Is(err, fs.ErrNotExist):
		return platformerrors.CodeNotFound
	case errors.Is(err, fs.ErrExist):
		return platformerrors.CodeAlreadyExists
	case errors.Is(err, fs.ErrPermission):
		return platformerrors.CodeForbidden
	case errors.As(err, &netErr) && netErr.Timeout():
		return platformerrors.CodeTimeout
	case errors.As(err, &netErr):
		return platformerrors.CodeNetwork
	}
	return platformerrors.CodeExecutionFailed
}

// fail logs err at error level and returns it wrapped with context.
func (c *Client) fail(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	c.logger.Error(msg, "err", err)
	return wrapError(err, msg)
}
