package sshclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	platformerrors "github.com/jmgilman/go/errors"
	"github.com/pkg/sftp"
	gossh "golang.org/x/crypto/ssh"
)

// EnvMode names the environment variable that selects the runtime mode.
// In "production" mode the default logger only reports errors.
const EnvMode = "KIT_ENV"

// silentLevel is above every level the logger emits.
const silentLevel = log.Level(math.MaxInt32)

var levels = map[string]log.Level{
	"trace":   log.DebugLevel,
	"verbose": log.DebugLevel,
	"debug":   log.DebugLevel,
	"info":    log.InfoLevel,
	"normal":  log.InfoLevel,
	"warn":    log.WarnLevel,
	"error":   log.ErrorLevel,
	"fatal":   log.FatalLevel,
	"silent":  silentLevel,
}

type (
	// Client runs commands and transfers files over a single SSH connection.
	//
	// Every failing operation logs the failure at error level and returns it
	// as a coded error. A Client is safe for concurrent use.
	Client struct {
		cfg    config
		logger *log.Logger

		mu   sync.Mutex
		conn *gossh.Client
		sftp *sftp.Client
	}

	// Result is the outcome of a remote command.
	// A non-zero ExitCode is a result, not an error.
	Result struct {
		Stdout   string
		Stderr   string
		ExitCode int
	}
)

// New returns a client for user@host authenticating with password.
// It does not connect; call [Client.Connect].
func New(host, user, password string, opts ...Option) *Client {
	cfg := defaultConfig(host, user, password)
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "ssh-client"})
		if os.Getenv(EnvMode) == "production" {
			logger.SetLevel(log.ErrorLevel)
		}
	}

	return &Client{cfg: cfg, logger: logger}
}

// Logger returns the client logger.
func (c *Client) Logger() *log.Logger {
	return c.logger
}

// SetLoggerLevel sets the minimum level the client logs at.
// Accepted levels are trace, verbose, debug, info, normal, warn, error,
// fatal and silent.
func (c *Client) SetLoggerLevel(level string) error {
	l, ok := levels[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		return platformerrors.Newf(platformerrors.CodeInvalidInput, "unknown log level %q", level)
	}
	c.logger.SetLevel(l)
	return nil
}

// Addr returns the host:port the client connects to.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.cfg.host, strconv.Itoa(c.cfg.port))
}

// Connect dials the server and authenticates.
// Connecting an already connected client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	addr := c.Addr()
	if err := ctx.Err(); err != nil {
		return c.fail(err, "connecting to %s", addr)
	}
	dialer := net.Dialer{Timeout: c.cfg.timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return c.fail(err, "connecting to %s", addr)
	}

	deadline := time.Now().Add(c.cfg.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = netConn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		_ = netConn.SetDeadline(time.Unix(1, 0))
	})
	sshConn, chans, reqs, err := gossh.NewClientConn(netConn, addr, c.clientConfig())
	stop()
	if err != nil {
		_ = netConn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return c.fail(err, "connecting to %s", addr)
	}
	_ = netConn.SetDeadline(time.Time{})

	conn := gossh.NewClient(sshConn, chans, reqs)
	c.conn = conn
	go c.watch(conn)

	c.logger.Debug("connected", "addr", addr, "user", c.cfg.user)
	return nil
}

// watch forgets conn once the server closes it.
func (c *Client) watch(conn *gossh.Client) {
	_ = conn.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
		c.sftp = nil
		c.logger.Debug("connection closed", "addr", c.Addr())
	}
}

func (c *Client) clientConfig() *gossh.ClientConfig {
	var auth []gossh.AuthMethod
	if len(c.cfg.signers) > 0 {
		auth = append(auth, gossh.PublicKeys(c.cfg.signers...))
	}
	if c.cfg.password != "" {
		auth = append(auth, gossh.Password(c.cfg.password))
	}
	return &gossh.ClientConfig{
		User:            c.cfg.user,
		Auth:            auth,
		HostKeyCallback: c.verifyHostKey,
		Timeout:         c.cfg.timeout,
	}
}

func (c *Client) verifyHostKey(hostname string, remote net.Addr, key gossh.PublicKey) error {
	if err := c.cfg.hostKeyCallback(hostname, remote, key); err != nil {
		return fmt.Errorf("%w: %w", ErrHostKeyRejected, err)
	}
	return nil
}

// Disconnect closes the connection.
// Disconnecting a client that is not connected is a no-op.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	var errs []error
	if c.sftp != nil {
		errs = append(errs, c.sftp.Close())
		c.sftp = nil
	}
	errs = append(errs, c.conn.Close())
	c.conn = nil

	for _, err := range errs {
		if err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.EOF) {
			return c.fail(err, "disconnecting from %s", c.Addr())
		}
	}
	c.logger.Debug("disconnected", "addr", c.Addr())
	return nil
}

// IsConnected reports whether the client holds an open connection.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) client() (*gossh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

// Exec runs cmd and collects its output.
func (c *Client) Exec(ctx context.Context, cmd string, opts ...ExecOption) (*Result, error) {
	ec := newExecConfig(opts)
	var stdout, stderr bytes.Buffer
	code, err := c.run(ctx, ec.command(cmd), ec.stdin, &stdout, &stderr)
	if err != nil {
		return nil, c.fail(err, "running %q", cmd)
	}
	return &Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: code}, nil
}

// ExecWithIO runs cmd like [Client.Exec] and also streams its output to the
// configured stdout and stderr writers as it arrives.
func (c *Client) ExecWithIO(ctx context.Context, cmd string, opts ...ExecOption) (*Result, error) {
	ec := newExecConfig(opts)
	var stdout, stderr bytes.Buffer
	code, err := c.run(ctx, ec.command(cmd), ec.stdin,
		io.MultiWriter(&stdout, c.cfg.stdout),
		io.MultiWriter(&stderr, c.cfg.stderr),
	)
	if err != nil {
		return nil, c.fail(err, "running %q", cmd)
	}
	return &Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: code}, nil
}

// run executes cmd in a new session and returns its exit status.
// The remote process is killed when ctx is done.
func (c *Client) run(ctx context.Context, cmd string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	conn, err := c.client()
	if err != nil {
		return 0, err
	}
	session, err := conn.NewSession()
	if err != nil {
		return 0, err
	}
	defer func() { _ = session.Close() }()

	session.Stdin = stdin
	session.Stdout = stdout
	session.Stderr = stderr

	c.logger.Debug("running command", "cmd", cmd)
	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(gossh.SIGKILL)
		_ = session.Close()
		<-done
		return 0, ctx.Err()
	case err := <-done:
		var exitErr *gossh.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitStatus(), nil
		}
		return 0, err
	}
}
