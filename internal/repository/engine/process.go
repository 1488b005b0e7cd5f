package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	errs "sgf_review/internal/errors"
)

// Conn is a running engine: a command sink plus two line streams.
type Conn interface {
	Write(line string) error
	Stdout() *LineReader
	Stderr() *LineReader
	Stop()
}

// Launcher starts a fresh engine.
type Launcher func(ctx context.Context) (Conn, error)

type StreamConfig struct {
	BufferSize  int
	Backoff     time.Duration
	GracePeriod time.Duration
}

// pipeConn talks to anything that looks like an engine over three pipes.
type pipeConn struct {
	mu     sync.Mutex
	stdin  io.WriteCloser
	writer *bufio.Writer
	stdout *LineReader
	stderr *LineReader
	closed bool
}

func NewPipeConn(stdin io.WriteCloser, stdout, stderr io.Reader, cfg StreamConfig, log *zap.SugaredLogger) Conn {
	return newPipeConn(stdin, stdout, stderr, cfg, log)
}

func newPipeConn(stdin io.WriteCloser, stdout, stderr io.Reader, cfg StreamConfig, log *zap.SugaredLogger) *pipeConn {
	return &pipeConn{
		stdin:  stdin,
		writer: bufio.NewWriter(stdin),
		stdout: NewLineReader("stdout", stdout, cfg.BufferSize, cfg.Backoff, log),
		stderr: NewLineReader("stderr", stderr, cfg.BufferSize, cfg.Backoff, log),
	}
}

func (c *pipeConn) Write(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errs.ErrEngineNotRunning
	}
	if _, err := c.writer.WriteString(line + "\n"); err != nil {
		return err
	}
	return c.writer.Flush()
}

func (c *pipeConn) Stdout() *LineReader { return c.stdout }
func (c *pipeConn) Stderr() *LineReader { return c.stderr }

func (c *pipeConn) Stop() {
	c.stdout.Stop()
	c.stderr.Stop()
	_ = c.Write("quit")

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		_ = c.stdin.Close()
	}
}

// Process is an engine child process.
type Process struct {
	*pipeConn
	cmd    *exec.Cmd
	exited chan struct{}
	grace  time.Duration
	once   sync.Once
	log    *zap.SugaredLogger
}

// StartProcess launches the engine. The child outlives ctx, which only
// guards the launch itself; Stop ends it.
func StartProcess(ctx context.Context, path string, args []string, cfg StreamConfig, log *zap.SugaredLogger) (*Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd := exec.Command(path, args...)

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrLaunchFailed, err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrLaunchFailed, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrLaunchFailed, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrLaunchFailed, path, err)
	}
	log.Infow("engine started", "path", path, "args", args, "pid", cmd.Process.Pid)

	p := &Process{
		pipeConn: newPipeConn(stdinPipe, stdoutPipe, stderrPipe, cfg, log),
		cmd:      cmd,
		exited:   make(chan struct{}),
		grace:    cfg.GracePeriod,
		log:      log,
	}
	go func() {
		// Wait closes the pipes, so let the readers reach EOF first and keep
		// whatever the child printed on its way out.
		<-p.stdout.Exited()
		<-p.stderr.Exited()
		err := cmd.Wait()
		log.Debugw("engine exited", "pid", cmd.Process.Pid, "error", err)
		close(p.exited)
	}()
	return p, nil
}

// Stop is safe to call repeatedly and after the child already died.
func (p *Process) Stop() {
	p.once.Do(func() {
		p.pipeConn.Stop()

		select {
		case <-p.exited:
			return
		case <-time.After(p.grace):
		}
		if err := p.cmd.Process.Kill(); err != nil {
			p.log.Debugw("engine kill failed", "error", err)
		}
		<-p.exited
	})
}

// ProcessLauncher builds a Launcher for the configured engine binary.
func ProcessLauncher(path string, args []string, cfg StreamConfig, log *zap.SugaredLogger) Launcher {
	return func(ctx context.Context) (Conn, error) {
		return StartProcess(ctx, path, args, cfg, log)
	}
}
