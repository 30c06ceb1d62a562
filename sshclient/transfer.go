package sshclient

import (
	"context"
	"io/fs"
	"path"

	"github.com/pkg/sftp"

	"github.com/valkit/kit/fspath"
)

// Transfer pairs a local file with its remote location.
type Transfer struct {
	Local  fspath.Path
	Remote string
}

func (c *Client) sftpClient() (*sftp.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	if c.sftp == nil {
		sc, err := sftp.NewClient(c.conn)
		if err != nil {
			return nil, err
		}
		c.sftp = sc
	}
	return c.sftp, nil
}

// Mkdir creates the remote directory dir along with any missing parents.
func (c *Client) Mkdir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return c.fail(err, "creating remote directory %s", dir)
	}
	sc, err := c.sftpClient()
	if err != nil {
		return c.fail(err, "creating remote directory %s", dir)
	}
	if err := sc.MkdirAll(dir); err != nil {
		return c.fail(err, "creating remote directory %s", dir)
	}
	return nil
}

// PutFile uploads local to remote, creating missing remote directories.
func (c *Client) PutFile(ctx context.Context, local fspath.Path, remote string) error {
	if err := ctx.Err(); err != nil {
		return c.fail(err, "uploading %s to %s", local, remote)
	}
	sc, err := c.sftpClient()
	if err != nil {
		return c.fail(err, "uploading %s to %s", local, remote)
	}
	if err := putFile(sc, local, remote); err != nil {
		return c.fail(err, "uploading %s to %s", local, remote)
	}
	return nil
}

// PutFiles uploads each transfer in order, stopping at the first failure.
func (c *Client) PutFiles(ctx context.Context, files []Transfer) error {
	sc, err := c.sftpClient()
	if err != nil {
		return c.fail(err, "uploading %d files", len(files))
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return c.fail(err, "uploading %s to %s", f.Local, f.Remote)
		}
		if err := putFile(sc, f.Local, f.Remote); err != nil {
			return c.fail(err, "uploading %s to %s", f.Local, f.Remote)
		}
	}
	return nil
}

// GetFile downloads remote to local, creating missing local directories.
func (c *Client) GetFile(ctx context.Context, local fspath.Path, remote string) error {
	if err := ctx.Err(); err != nil {
		return c.fail(err, "downloading %s to %s", remote, local)
	}
	sc, err := c.sftpClient()
	if err != nil {
		return c.fail(err, "downloading %s to %s", remote, local)
	}
	if err := getFile(sc, local, remote); err != nil {
		return c.fail(err, "downloading %s to %s", remote, local)
	}
	return nil
}

// PutDirectory uploads the tree below local into remote.
func (c *Client) PutDirectory(ctx context.Context, local fspath.Path, remote string) error {
	sc, err := c.sftpClient()
	if err != nil {
		return c.fail(err, "uploading %s to %s", local, remote)
	}
	err = local.Walk(func(p fspath.Path, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := local.Rel(p.String())
		if err != nil {
			return err
		}
		target := path.Join(remote, rel)
		if d.IsDir() {
			return sc.MkdirAll(target)
		}
		return putFile(sc, p, target)
	})
	if err != nil {
		return c.fail(err, "uploading %s to %s", local, remote)
	}
	return nil
}

// GetDirectory downloads the tree below remote into local.
// Entries other than directories and regular files are skipped.
func (c *Client) GetDirectory(ctx context.Context, local fspath.Path, remote string) error {
	sc, err := c.sftpClient()
	if err != nil {
		return c.fail(err, "downloading %s to %s", remote, local)
	}
	if err := getDirectory(ctx, sc, local, remote); err != nil {
		return c.fail(err, "downloading %s to %s", remote, local)
	}
	return nil
}

func getDirectory(ctx context.Context, sc *sftp.Client, local fspath.Path, remote string) error {
	if err := local.EnsureDir(); err != nil {
		return err
	}
	infos, err := sc.ReadDir(remote)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, dst := path.Join(remote, info.Name()), local.Join(info.Name())
		switch {
		case info.IsDir():
			err = getDirectory(ctx, sc, dst, src)
		case info.Mode().IsRegular():
			err = getFile(sc, dst, src)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func putFile(sc *sftp.Client, local fspath.Path, remote string) error {
	src, err := local.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	if dir := path.Dir(remote); dir != "." && dir != "/" {
		if err := sc.MkdirAll(dir); err != nil {
			return err
		}
	}
	dst, err := sc.Create(remote)
	if err != nil {
		return err
	}
	if _, err := dst.ReadFrom(src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

func getFile(sc *sftp.Client, local fspath.Path, remote string) error {
	src, err := sc.Open(remote)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	if err := local.Parent().EnsureDir(); err != nil {
		return err
	}
	dst, err := local.Create()
	if err != nil {
		return err
	}
	if _, err := src.WriteTo(dst); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}
