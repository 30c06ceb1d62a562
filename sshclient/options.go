package sshclient

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	gossh "golang.org/x/crypto/ssh"
)

const (
	// DefaultPort is the port used when none is configured.
	DefaultPort = 22

	// DefaultTimeout bounds dialing and the SSH handshake.
	DefaultTimeout = 30 * time.Second
)

type (
	// Option configures a [Client].
	Option func(*config)

	// ExecOption configures a single remote command.
	ExecOption func(*execConfig)

	execConfig struct {
		cwd   string
		stdin io.Reader
	}

	config struct {
		host            string
		user            string
		password        string
		port            int
		timeout         time.Duration
		hostKeyCallback gossh.HostKeyCallback
		signers         []gossh.Signer
		logger          *log.Logger
		stdout          io.Writer
		stderr          io.Writer
	}
)

func defaultConfig(host, user, password string) config {
	return config{
		host:     host,
		user:     user,
		password: password,
		port:     DefaultPort,
		timeout:  DefaultTimeout,
		// Host keys are accepted unless a callback is configured.
		hostKeyCallback: gossh.InsecureIgnoreHostKey(), //nolint:gosec
		stdout:          os.Stdout,
		stderr:          os.Stderr,
	}
}

// WithPort sets the server port.
func WithPort(port int) Option {
	return func(c *config) {
		c.port = port
	}
}

// WithTimeout bounds dialing and the SSH handshake.
// Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHostKeyCallback sets the function used to verify the server host key,
// for example one built with golang.org/x/crypto/ssh/knownhosts.
func WithHostKeyCallback(cb gossh.HostKeyCallback) Option {
	return func(c *config) {
		if cb != nil {
			c.hostKeyCallback = cb
		}
	}
}

// WithPublicKey adds a key for public key authentication.
// Keys are offered before the password.
func WithPublicKey(signer gossh.Signer) Option {
	return func(c *config) {
		c.signers = append(c.signers, signer)
	}
}

// WithLogger replaces the client logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithStdout sets the writer that [Client.ExecWithIO] streams standard output to.
func WithStdout(w io.Writer) Option {
	return func(c *config) {
		c.stdout = w
	}
}

// WithStderr sets the writer that [Client.ExecWithIO] streams standard error to.
func WithStderr(w io.Writer) Option {
	return func(c *config) {
		c.stderr = w
	}
}

// WithCwd runs the command in the remote directory dir.
func WithCwd(dir string) ExecOption {
	return func(c *execConfig) {
		c.cwd = dir
	}
}

// WithStdin feeds r to the command as its standard input.
// The input is closed once r is drained.
func WithStdin(r io.Reader) ExecOption {
	return func(c *execConfig) {
		c.stdin = r
	}
}

func newExecConfig(opts []ExecOption) execConfig {
	var c execConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// command returns cmd prefixed with a change to the configured directory.
func (c execConfig) command(cmd string) string {
	if c.cwd == "" {
		return cmd
	}
	return "cd " + shellQuote(c.cwd) + " && " + cmd
}

// shellQuote quotes s for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
