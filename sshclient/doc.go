// Package sshclient runs remote commands and transfers files over SSH.
//
// A [Client] wraps a single connection made with golang.org/x/crypto/ssh.
// File transfers go through an SFTP session opened lazily on that
// connection. The local side of a transfer is an [fspath.Path], so files
// can be uploaded from or downloaded to any filesystem that package
// supports, including in-memory ones.
//
//	c := sshclient.New("build.example.com", "deploy", password,
//		sshclient.WithHostKeyCallback(callback))
//	if err := c.Connect(ctx); err != nil {
//		return err
//	}
//	defer c.Disconnect()
//
//	res, err := c.Exec(ctx, "uname -a")
//
// # Errors
//
// Every failing operation logs the failure at error level and returns an
// error carrying a github.com/jmgilman/go/errors code: authentication
// failures are CodeUnauthorized, rejected host keys CodeForbidden, dial
// failures CodeNetwork, and operations on a closed client CodeUnavailable.
// A remote command that exits non-zero is not an error; see [Result].
//
// Without [WithHostKeyCallback] the client accepts any host key.
package sshclient
