package engine

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeEngine answers GTP over in-memory pipes.
type fakeEngine struct {
	mu       sync.Mutex
	received []string
	silent   map[string]bool
	// transcript printed on genmove: stderr lines, then the stdout answer
	stderr []string
	answer string
	// think delays the genmove answer
	think time.Duration

	launches int
}

func (f *fakeEngine) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

func (f *fakeEngine) launchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.launches
}

func (f *fakeEngine) serve(stdin io.Reader, stdout, stderr io.WriteCloser) {
	defer stdout.Close()
	defer stderr.Close()

	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		f.mu.Lock()
		f.received = append(f.received, line)
		silent := f.silent[strings.Fields(line)[0]]
		f.mu.Unlock()

		switch {
		case silent:
		case line == "quit":
			_, _ = io.WriteString(stdout, "= \n\n")
			return
		case strings.HasPrefix(line, "genmove"):
			time.Sleep(f.think)
			for _, l := range f.stderr {
				_, _ = io.WriteString(stderr, l+"\n")
			}
			_, _ = io.WriteString(stdout, f.answer+"\n\n")
		case line == "showboard":
			_, _ = io.WriteString(stdout, "= \n\n")
			_, _ = io.WriteString(stderr, "   a b c\n 3 . . .\n")
		default:
			_, _ = io.WriteString(stdout, "= \n\n")
		}
	}
}

func (f *fakeEngine) launcher(t *testing.T) Launcher {
	return func(ctx context.Context) (Conn, error) {
		stdinR, stdinW := io.Pipe()
		stdoutR, stdoutW := io.Pipe()
		stderrR, stderrW := io.Pipe()
		go f.serve(stdinR, newBufferedPipe(stdoutW), newBufferedPipe(stderrW))

		f.mu.Lock()
		f.launches++
		f.mu.Unlock()

		conn := NewPipeConn(stdinW, stdoutR, stderrR, StreamConfig{BufferSize: 1024, Backoff: time.Millisecond}, zap.NewNop().Sugar())
		t.Cleanup(func() {
			conn.Stop()
			_ = stdoutR.Close()
			_ = stderrR.Close()
		})
		return conn, nil
	}
}

// bufferedPipe lets the fake engine write without a reader, the way an OS
// pipe buffer lets a real engine keep printing after we stop listening.
type bufferedPipe struct {
	chunks chan string
}

func newBufferedPipe(w io.WriteCloser) *bufferedPipe {
	b := &bufferedPipe{chunks: make(chan string, 1024)}
	go func() {
		defer w.Close()
		for chunk := range b.chunks {
			_, _ = io.WriteString(w, chunk)
		}
	}()
	return b
}

func (b *bufferedPipe) Write(p []byte) (int, error) {
	b.chunks <- string(p)
	return len(p), nil
}

func (b *bufferedPipe) Close() error {
	close(b.chunks)
	return nil
}

func testClientConfig() ClientConfig {
	return ClientConfig{
		BoardSize:      19,
		Komi:           7.5,
		SecondsPerMove: 5,
		CommandRetries: 20,
		RetryInterval:  5 * time.Millisecond,
		PollInterval:   10 * time.Millisecond,
	}
}

func newTestClient(t *testing.T, f *fakeEngine, cfg ClientConfig) *Client {
	log := zap.NewNop().Sugar()
	parser := NewParser(ParserConfig{BoardSize: cfg.BoardSize, ReportedColor: "white"}, LeelaPatterns(), log)
	return NewClient(cfg, f.launcher(t), parser, log)
}

var leelaSearch = []string{
	"Nodes: 1000, Win: 47.50% (MC:46.00%/VN:49.00%), PV: Q16 D4",
	"MC winrate=0.46, NN eval=0.49, score=W+2.5",
	"Q16 ->     800 (W: 52.50%) (U: 51.00%) (V: 54.00%:  400) (N: 30.0%) PV: Q16 D4 Q4",
	"D4 ->      200 (W: 48.00%) (U: 47.00%) (V: 49.00%:  100) (N: 20.0%) PV: D4 Q16",
	"C3 ->        0 (W:  0.00%) (U:  0.00%) (V:  0.00%:    0) (N:  1.0%) PV: C3",
	"================",
	"1000 visits, score 52.50% (from 50.00%) PV: Q16 D4 Q4",
	"1000 visits, 900 nodes, 1000 playouts, 500 p/s",
}
