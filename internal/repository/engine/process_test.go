package engine

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	errs "sgf_review/internal/errors"
)

func testStreamConfig() StreamConfig {
	return StreamConfig{BufferSize: 64, Backoff: time.Millisecond, GracePeriod: 50 * time.Millisecond}
}

func requireBinary(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
	return path
}

func stopWithin(t *testing.T, p *Process, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("Stop did not return within %s", d)
	}
}

func TestStartProcessMissingBinary(t *testing.T) {
	t.Parallel()

	log := zap.NewNop().Sugar()
	_, err := StartProcess(context.Background(), "/nonexistent/leela-engine", nil, testStreamConfig(), log)
	require.ErrorIs(t, err, errs.ErrLaunchFailed)

	launch := ProcessLauncher("/nonexistent/leela-engine", []string{"--gtp"}, testStreamConfig(), log)
	_, err = launch(context.Background())
	assert.ErrorIs(t, err, errs.ErrLaunchFailed)
}

func TestStartProcessCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := StartProcess(ctx, requireBinary(t, "cat"), nil, testStreamConfig(), zap.NewNop().Sugar())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessEchoAndStopTwice(t *testing.T) {
	t.Parallel()

	launch := ProcessLauncher(requireBinary(t, "cat"), nil, testStreamConfig(), zap.NewNop().Sugar())
	conn, err := launch(context.Background())
	require.NoError(t, err)
	p := conn.(*Process)

	require.NoError(t, p.Write("boardsize 19"))
	line, ok := p.Stdout().ReadLineTimeout(5 * time.Second)
	require.True(t, ok)
	assert.Equal(t, "boardsize 19", line)

	stopWithin(t, p, 5*time.Second)
	stopWithin(t, p, time.Second)

	assert.ErrorIs(t, p.Write("clear_board"), errs.ErrEngineNotRunning)
	select {
	case <-p.exited:
	default:
		t.Fatal("child still running after Stop")
	}
}

func TestProcessStopAfterExit(t *testing.T) {
	t.Parallel()

	p, err := StartProcess(context.Background(), requireBinary(t, "sh"), []string{"-c", "exit 0"}, testStreamConfig(), zap.NewNop().Sugar())
	require.NoError(t, err)

	select {
	case <-p.exited:
	case <-time.After(5 * time.Second):
		t.Fatal("child did not exit")
	}

	stopWithin(t, p, 5*time.Second)
	stopWithin(t, p, time.Second)
}

func TestProcessKeepsFinalOutput(t *testing.T) {
	t.Parallel()

	p, err := StartProcess(context.Background(), requireBinary(t, "sh"),
		[]string{"-c", "echo '= D4'; echo '1000 visits' >&2"}, testStreamConfig(), zap.NewNop().Sugar())
	require.NoError(t, err)
	defer p.Stop()

	select {
	case <-p.exited:
	case <-time.After(5 * time.Second):
		t.Fatal("child did not exit")
	}

	assert.Equal(t, []string{"= D4"}, p.Stdout().DrainAll())
	assert.Equal(t, []string{"1000 visits"}, p.Stderr().DrainAll())
}

func TestProcessStopKillsStubbornChild(t *testing.T) {
	t.Parallel()

	p, err := StartProcess(context.Background(), requireBinary(t, "sleep"), []string{"30"}, testStreamConfig(), zap.NewNop().Sugar())
	require.NoError(t, err)

	stopWithin(t, p, 5*time.Second)
	select {
	case <-p.exited:
	default:
		t.Fatal("child survived Stop")
	}
}
