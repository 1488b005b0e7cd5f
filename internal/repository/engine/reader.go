package engine

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LineReader pulls lines off one engine stream in the background so the
// engine never blocks on a full pipe while we are busy elsewhere.
type LineReader struct {
	name    string
	lines   chan string
	done    chan struct{}
	exited  chan struct{}
	once    sync.Once
	backoff time.Duration
	log     *zap.SugaredLogger
}

func NewLineReader(name string, r io.Reader, bufSize int, backoff time.Duration, log *zap.SugaredLogger) *LineReader {
	if bufSize <= 0 {
		bufSize = 1 << 16
	}
	lr := &LineReader{
		name:    name,
		lines:   make(chan string, bufSize),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
		backoff: backoff,
		log:     log,
	}
	go lr.run(bufio.NewReader(r))
	return lr
}

func (lr *LineReader) run(r *bufio.Reader) {
	defer close(lr.exited)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			select {
			case lr.lines <- strings.TrimRight(line, "\r\n"):
			case <-lr.done:
				return
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
			return
		}
		lr.log.Debugw("engine stream read failed, retrying", "stream", lr.name, "error", err)
		select {
		case <-lr.done:
			return
		case <-time.After(lr.backoff):
		}
	}
}

// ReadLine returns the next queued line without blocking.
func (lr *LineReader) ReadLine() (string, bool) {
	select {
	case line := <-lr.lines:
		return line, true
	default:
		return "", false
	}
}

// ReadLineTimeout waits up to d for the next line.
func (lr *LineReader) ReadLineTimeout(d time.Duration) (string, bool) {
	if line, ok := lr.ReadLine(); ok {
		return line, true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case line := <-lr.lines:
		return line, true
	case <-timer.C:
		return "", false
	}
}

// DrainAll returns everything queued right now, possibly nothing.
func (lr *LineReader) DrainAll() []string {
	var out []string
	for {
		line, ok := lr.ReadLine()
		if !ok {
			return out
		}
		out = append(out, line)
	}
}

// Stop asks the reader goroutine to quit. The goroutine itself only exits
// once its blocking read returns, which happens when the pipe is closed.
func (lr *LineReader) Stop() {
	lr.once.Do(func() { close(lr.done) })
}

// Exited is closed once the reader goroutine has returned.
func (lr *LineReader) Exited() <-chan struct{} {
	return lr.exited
}
