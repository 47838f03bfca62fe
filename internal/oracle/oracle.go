// Package oracle runs the external command that accepts or rejects a
// derived key.
//
// The protocol is: the command is started with a pipe on stdin, the key is
// written hex encoded with nothing after it, stdin is closed and the exit
// status is the answer. Exit code 0 accepts the key, anything else rejects
// it. Failing to start the command or to write the key also counts as a
// rejection, so one broken invocation never stops a search.
package oracle

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"wskdf/internal/kdf"
)

type Command struct {
	path    string
	args    []string
	stderr  io.Writer
	log     *zap.Logger
	limiter *rate.Limiter
}

type Option func(*Command)

func WithArgs(args ...string) Option {
	return func(c *Command) { c.args = append([]string(nil), args...) }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Command) {
		if log != nil {
			c.log = log
		}
	}
}

// WithRateLimit caps how many verifier processes are started per second
// across all workers. A non-positive perSecond leaves spawning unthrottled.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Command) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithOutput sets where the verifier's stdout and stderr go. Defaults to
// os.Stderr so our own stdout stays free for results. Concurrent verifiers
// share w, so writes to it are serialized.
func WithOutput(w io.Writer) Option {
	return func(c *Command) {
		if f, ok := w.(*os.File); ok {
			c.stderr = f
			return
		}
		c.stderr = zapcore.Lock(zapcore.AddSync(w))
	}
}

func New(path string, opts ...Option) *Command {
	c := &Command{path: path, stderr: os.Stderr, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verify reports whether the command accepted key. It is safe for
// concurrent use; each call starts its own process. ctx only bounds the
// wait for the spawn rate limiter, a started process is always waited for.
func (c *Command) Verify(ctx context.Context, key kdf.Key) bool {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return false
		}
	}
	ok, err := c.Run(key)
	if err != nil {
		c.log.Warn("verifier failed, treating as rejected", zap.String("command", c.path), zap.Error(err))
		return false
	}
	return ok
}

// Run executes one verification. A non-zero exit is (false, nil); the error
// is reserved for spawn, write and wait failures.
func (c *Command) Run(key kdf.Key) (bool, error) {
	cmd := exec.Command(c.path, c.args...)
	cmd.Stdout = c.stderr
	cmd.Stderr = c.stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return false, errors.Wrap(err, "failed to get stdin")
	}
	if err := cmd.Start(); err != nil {
		return false, errors.Wrapf(err, "failed to spawn %s", c.path)
	}

	_, werr := io.WriteString(stdin, key.String())
	cerr := stdin.Close()
	err = cmd.Wait()

	if werr != nil {
		return false, errors.Wrap(werr, "failed to write stdin")
	}
	if cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		return false, errors.Wrap(cerr, "failed to close stdin")
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "failed to wait for %s", c.path)
	}
	return true, nil
}
