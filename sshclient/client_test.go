package sshclient

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	platformerrors "github.com/jmgilman/go/errors"
	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"

	"github.com/valkit/kit/fspath"
)

const (
	testUser     = "kit"
	testPassword = "secret"
)

type testServer struct {
	host   string
	port   int
	signer gossh.Signer
}

// newTestServer starts an SSH server on a loopback port.
// It accepts testPassword and the returned signer, runs the commands
// "echo", "fail N" and "sleep", and serves SFTP on the local filesystem.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := gossh.NewSignerFromKey(priv)
	require.NoError(t, err)

	srv, err := wish.NewServer(
		wish.WithPasswordAuth(func(_ ssh.Context, password string) bool {
			return password == testPassword
		}),
		wish.WithPublicKeyAuth(func(_ ssh.Context, key ssh.PublicKey) bool {
			return ssh.KeysEqual(key, signer.PublicKey())
		}),
		wish.WithMiddleware(commandMiddleware),
	)
	require.NoError(t, err)
	srv.SubsystemHandlers = map[string]ssh.SubsystemHandler{
		"sftp": func(s ssh.Session) {
			server, err := sftp.NewServer(s)
			if err != nil {
				return
			}
			_ = server.Serve()
		},
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })

	addr := ln.Addr().(*net.TCPAddr)
	return &testServer{host: "127.0.0.1", port: addr.Port, signer: signer}
}

func commandMiddleware(_ ssh.Handler) ssh.Handler {
	return func(s ssh.Session) {
		args := s.Command()
		cwd := "/"
		if len(args) > 3 && args[0] == "cd" && args[2] == "&&" {
			cwd, args = args[1], args[3:]
		}
		if len(args) == 0 {
			_ = s.Exit(1)
			return
		}
		switch args[0] {
		case "pwd":
			_, _ = io.WriteString(s, cwd+"\n")
			_ = s.Exit(0)
		case "cat":
			_, _ = io.Copy(s, s)
			_ = s.Exit(0)
		case "echo":
			_, _ = io.WriteString(s, strings.Join(args[1:], " ")+"\n")
			_ = s.Exit(0)
		case "fail":
			code := 1
			if len(args) > 1 {
				code, _ = strconv.Atoi(args[1])
			}
			_, _ = fmt.Fprintln(s.Stderr(), "failed")
			_ = s.Exit(code)
		case "sleep":
			// Blocks until the client closes the session.
			_, _ = io.Copy(io.Discard, s)
		default:
			_, _ = fmt.Fprintf(s.Stderr(), "%s: command not found\n", args[0])
			_ = s.Exit(127)
		}
	}
}

func (ts *testServer) client(t *testing.T, password string, opts ...Option) (*Client, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	opts = append([]Option{
		WithPort(ts.port),
		WithTimeout(5 * time.Second),
		WithLogger(log.New(&buf)),
	}, opts...)
	c := New(ts.host, testUser, password, opts...)
	t.Cleanup(func() { _ = c.Disconnect() })
	return c, &buf
}

func (ts *testServer) connect(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, _ := ts.client(t, testPassword, opts...)
	require.NoError(t, c.Connect(context.Background()))
	return c
}

func TestNew(t *testing.T) {
	c := New("example.com", "deploy", "pw")
	assert.Equal(t, "example.com:22", c.Addr())
	assert.False(t, c.IsConnected())
	assert.NotNil(t, c.Logger())

	c = New("::1", "deploy", "pw", WithPort(2222), WithTimeout(-1))
	assert.Equal(t, "[::1]:2222", c.Addr())
	assert.Equal(t, DefaultTimeout, c.cfg.timeout)
}

func TestNew_ProductionLogger(t *testing.T) {
	t.Setenv(EnvMode, "production")
	c := New("example.com", "deploy", "pw")
	assert.Equal(t, log.ErrorLevel, c.Logger().GetLevel())
}

func TestClient_SetLoggerLevel(t *testing.T) {
	tests := []struct {
		level string
		want  log.Level
	}{
		{"trace", log.DebugLevel},
		{"verbose", log.DebugLevel},
		{"debug", log.DebugLevel},
		{"info", log.InfoLevel},
		{"normal", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"ERROR", log.ErrorLevel},
		{"fatal", log.FatalLevel},
		{" silent ", silentLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			c := New("example.com", "deploy", "pw", WithLogger(log.New(io.Discard)))
			require.NoError(t, c.SetLoggerLevel(tt.level))
			assert.Equal(t, tt.want, c.Logger().GetLevel())
		})
	}

	c := New("example.com", "deploy", "pw", WithLogger(log.New(io.Discard)))
	err := c.SetLoggerLevel("loud")
	require.Error(t, err)
	assert.Equal(t, platformerrors.CodeInvalidInput, platformerrors.GetCode(err))
}

func TestClient_SetLoggerLevel_Silent(t *testing.T) {
	var buf bytes.Buffer
	c := New("127.0.0.1", "deploy", "pw", WithLogger(log.New(&buf)))
	require.NoError(t, c.SetLoggerLevel("silent"))

	_, err := c.Exec(context.Background(), "echo hi")
	require.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestClient_NotConnected(t *testing.T) {
	var buf bytes.Buffer
	c := New("127.0.0.1", "deploy", "pw", WithLogger(log.New(&buf)))
	ctx := context.Background()

	_, err := c.Exec(ctx, "echo hi")
	require.Error(t, err)
	assert.Equal(t, platformerrors.CodeUnavailable, platformerrors.GetCode(err))
	assert.Contains(t, buf.String(), `running "echo hi"`)

	err = c.PutFile(ctx, fspath.Memory().Join("a"), "/tmp/a")
	assert.Equal(t, platformerrors.CodeUnavailable, platformerrors.GetCode(err))

	err = c.Mkdir(ctx, "/tmp/a")
	assert.Equal(t, platformerrors.CodeUnavailable, platformerrors.GetCode(err))

	assert.NoError(t, c.Disconnect())
}

func TestClient_Connect(t *testing.T) {
	ts := newTestServer(t)
	c, _ := ts.client(t, testPassword)
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx))
	assert.True(t, c.IsConnected())

	// Connecting twice keeps the open connection.
	require.NoError(t, c.Connect(ctx))
	assert.True(t, c.IsConnected())

	require.NoError(t, c.Disconnect())
	assert.False(t, c.IsConnected())
	require.NoError(t, c.Disconnect())

	require.NoError(t, c.Connect(ctx))
	assert.True(t, c.IsConnected())
}

func TestClient_Connect_PublicKey(t *testing.T) {
	ts := newTestServer(t)
	c, _ := ts.client(t, "", WithPublicKey(ts.signer))

	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.IsConnected())
}

func TestClient_Connect_Errors(t *testing.T) {
	ts := newTestServer(t)

	t.Run("wrong password", func(t *testing.T) {
		c, buf := ts.client(t, "wrong")
		err := c.Connect(context.Background())
		require.Error(t, err)
		assert.Equal(t, platformerrors.CodeUnauthorized, platformerrors.GetCode(err))
		assert.False(t, c.IsConnected())
		assert.Contains(t, buf.String(), "connecting to 127.0.0.1:")
	})

	t.Run("host key rejected", func(t *testing.T) {
		reject := func(string, net.Addr, gossh.PublicKey) error {
			return errors.New("unknown host")
		}
		c, _ := ts.client(t, testPassword, WithHostKeyCallback(reject))
		err := c.Connect(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrHostKeyRejected)
		assert.Equal(t, platformerrors.CodeForbidden, platformerrors.GetCode(err))
	})

	t.Run("connection refused", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		port := ln.Addr().(*net.TCPAddr).Port
		require.NoError(t, ln.Close())

		c := New("127.0.0.1", testUser, testPassword, WithPort(port), WithLogger(log.New(io.Discard)))
		err = c.Connect(context.Background())
		require.Error(t, err)
		assert.Equal(t, platformerrors.CodeNetwork, platformerrors.GetCode(err))
	})

	t.Run("canceled", func(t *testing.T) {
		c, _ := ts.client(t, testPassword)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := c.Connect(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClient_Connect_HostKeyCallback(t *testing.T) {
	ts := newTestServer(t)

	var seen gossh.PublicKey
	record := func(_ string, _ net.Addr, key gossh.PublicKey) error {
		seen = key
		return nil
	}
	c := ts.connect(t, WithHostKeyCallback(record))
	require.NotNil(t, seen)
	require.NoError(t, c.Disconnect())

	// The recorded key pins the server.
	c = ts.connect(t, WithHostKeyCallback(gossh.FixedHostKey(seen)))
	assert.True(t, c.IsConnected())
}

func TestClient_Exec(t *testing.T) {
	ts := newTestServer(t)
	c := ts.connect(t)
	ctx := context.Background()

	res, err := c.Exec(ctx, "echo hello world")
	require.NoError(t, err)
	assert.Equal(t, &Result{Stdout: "hello world\n", ExitCode: 0}, res)

	res, err = c.Exec(ctx, "fail 3")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "failed\n", res.Stderr)
	assert.Empty(t, res.Stdout)

	res, err = c.Exec(ctx, "nope")
	require.NoError(t, err)
	assert.Equal(t, 127, res.ExitCode)
}

func TestClient_Exec_Options(t *testing.T) {
	ts := newTestServer(t)
	c := ts.connect(t)
	ctx := context.Background()

	t.Run("cwd", func(t *testing.T) {
		res, err := c.Exec(ctx, "pwd", WithCwd("/srv/build dir"))
		require.NoError(t, err)
		assert.Equal(t, "/srv/build dir\n", res.Stdout)

		res, err = c.Exec(ctx, "pwd")
		require.NoError(t, err)
		assert.Equal(t, "/\n", res.Stdout)
	})

	t.Run("stdin", func(t *testing.T) {
		res, err := c.Exec(ctx, "cat", WithStdin(strings.NewReader("line one\nline two\n")))
		require.NoError(t, err)
		assert.Equal(t, "line one\nline two\n", res.Stdout)
		assert.Equal(t, 0, res.ExitCode)
	})

	t.Run("stdin and cwd with io", func(t *testing.T) {
		var out bytes.Buffer
		c := ts.connect(t, WithStdout(&out))
		res, err := c.ExecWithIO(ctx, "cat", WithCwd("/tmp"), WithStdin(strings.NewReader("piped")))
		require.NoError(t, err)
		assert.Equal(t, "piped", res.Stdout)
		assert.Equal(t, "piped", out.String())
	})
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/tmp", "'/tmp'"},
		{"a b", "'a b'"},
		{"it's", `'it'\''s'`},
		{"", "''"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shellQuote(tt.in), tt.in)
	}
}

func TestClient_ExecWithIO(t *testing.T) {
	ts := newTestServer(t)
	var stdout, stderr bytes.Buffer
	c := ts.connect(t, WithStdout(&stdout), WithStderr(&stderr))
	ctx := context.Background()

	res, err := c.ExecWithIO(ctx, "echo streamed")
	require.NoError(t, err)
	assert.Equal(t, "streamed\n", res.Stdout)
	assert.Equal(t, "streamed\n", stdout.String())

	res, err = c.ExecWithIO(ctx, "fail 2")
	require.NoError(t, err)
	assert.Equal(t, 2, res.ExitCode)
	assert.Equal(t, "failed\n", stderr.String())
}

func TestClient_Exec_Deadline(t *testing.T) {
	ts := newTestServer(t)
	c := ts.connect(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res, err := c.Exec(ctx, "sleep")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, platformerrors.CodeTimeout, platformerrors.GetCode(err))

	// The connection survives a killed command.
	res, err = c.Exec(context.Background(), "echo still here")
	require.NoError(t, err)
	assert.Equal(t, "still here\n", res.Stdout)
}

func TestClient_Transfer(t *testing.T) {
	ts := newTestServer(t)
	c := ts.connect(t)
	ctx := context.Background()
	remote := t.TempDir()

	local := fspath.Memory()
	require.NoError(t, local.Join("src", "a.txt").OutputFile([]byte("alpha")))
	require.NoError(t, local.Join("src", "sub", "b.txt").OutputFile([]byte("beta")))

	t.Run("mkdir", func(t *testing.T) {
		dir := filepath.Join(remote, "made", "deep")
		require.NoError(t, c.Mkdir(ctx, dir))
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		require.NoError(t, c.Mkdir(ctx, dir))
	})

	t.Run("put file", func(t *testing.T) {
		dst := filepath.Join(remote, "put", "nested", "a.txt")
		require.NoError(t, c.PutFile(ctx, local.Join("src", "a.txt"), dst))
		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "alpha", string(data))
	})

	t.Run("put missing file", func(t *testing.T) {
		err := c.PutFile(ctx, local.Join("missing.txt"), filepath.Join(remote, "x"))
		require.Error(t, err)
		assert.Equal(t, platformerrors.CodeNotFound, platformerrors.GetCode(err))
	})

	t.Run("put files", func(t *testing.T) {
		files := []Transfer{
			{Local: local.Join("src", "a.txt"), Remote: filepath.Join(remote, "many", "1.txt")},
			{Local: local.Join("src", "sub", "b.txt"), Remote: filepath.Join(remote, "many", "2.txt")},
		}
		require.NoError(t, c.PutFiles(ctx, files))
		for i, want := range []string{"alpha", "beta"} {
			data, err := os.ReadFile(files[i].Remote)
			require.NoError(t, err)
			assert.Equal(t, want, string(data))
		}
	})

	t.Run("put directory", func(t *testing.T) {
		dst := filepath.Join(remote, "tree")
		require.NoError(t, c.PutDirectory(ctx, local.Join("src"), dst))
		data, err := os.ReadFile(filepath.Join(dst, "sub", "b.txt"))
		require.NoError(t, err)
		assert.Equal(t, "beta", string(data))
	})

	t.Run("get file", func(t *testing.T) {
		src := filepath.Join(remote, "get.txt")
		require.NoError(t, os.WriteFile(src, []byte("gamma"), 0o644))

		dst := local.Join("downloads", "get.txt")
		require.NoError(t, c.GetFile(ctx, dst, src))
		got, err := dst.ReadString()
		require.NoError(t, err)
		assert.Equal(t, "gamma", got)
	})

	t.Run("get missing file", func(t *testing.T) {
		err := c.GetFile(ctx, local.Join("nope.txt"), filepath.Join(remote, "nope.txt"))
		require.Error(t, err)
		assert.Equal(t, platformerrors.CodeNotFound, platformerrors.GetCode(err))
	})

	t.Run("get directory", func(t *testing.T) {
		src := filepath.Join(remote, "remote-tree")
		require.NoError(t, os.MkdirAll(filepath.Join(src, "x", "y"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(src, "top.txt"), []byte("top"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(src, "x", "y", "leaf.txt"), []byte("leaf"), 0o644))

		dst := fspath.Memory().Join("copy")
		require.NoError(t, c.GetDirectory(ctx, dst, src))

		got, err := dst.Join("top.txt").ReadString()
		require.NoError(t, err)
		assert.Equal(t, "top", got)
		got, err = dst.Join("x", "y", "leaf.txt").ReadString()
		require.NoError(t, err)
		assert.Equal(t, "leaf", got)
	})

	t.Run("canceled", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		err := c.PutDirectory(canceled, local.Join("src"), filepath.Join(remote, "never"))
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NoDirExists(t, filepath.Join(remote, "never"))
	})
}

func TestClient_Transfer_Local(t *testing.T) {
	ts := newTestServer(t)
	c := ts.connect(t)
	ctx := context.Background()

	local := fspath.Local(t.TempDir())
	remote := t.TempDir()
	require.NoError(t, local.Join("in.txt").WriteString("round trip"))

	require.NoError(t, c.PutFile(ctx, local.Join("in.txt"), filepath.Join(remote, "in.txt")))
	require.NoError(t, c.GetFile(ctx, local.Join("out.txt"), filepath.Join(remote, "in.txt")))

	got, err := local.Join("out.txt").ReadString()
	require.NoError(t, err)
	assert.Equal(t, "round trip", got)
}
