package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sgf_review/internal/domain"
	errs "sgf_review/internal/errors"
)

func TestClientStartSendsSetup(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{}
	c := newTestClient(t, f, testClientConfig())
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	assert.Equal(t, []string{"boardsize 19", "komi 7.500000", "time_settings 0 5 1"}, f.commands())
}

func TestClientSendTimeout(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{silent: map[string]bool{"clear_board": true}}
	c := newTestClient(t, f, testClientConfig())
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	err := c.Reset(context.Background())
	require.ErrorIs(t, err, errs.ErrCommandTimeout)

	var timeout *errs.CommandTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "clear_board", timeout.Command)
}

func TestClientNotRunning(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, &fakeEngine{}, testClientConfig())
	_, err := c.Send(context.Background(), "clear_board", 1)
	assert.ErrorIs(t, err, errs.ErrEngineNotRunning)

	c.Stop()
	c.Stop()
}

func TestClientGoToPosition(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{}
	c := newTestClient(t, f, testClientConfig())
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	c.AddMove(domain.Black, "pd")
	c.AddMove(domain.White, "dp")
	c.AddMove(domain.Black, "")
	require.NoError(t, c.GoToPosition(context.Background()))

	got := f.commands()
	assert.Equal(t, []string{"play black q16", "play white d4", "play black pass"}, got[len(got)-3:])
	assert.Equal(t, domain.White, c.WhoseTurn())
}

func TestClientWhoseTurn(t *testing.T) {
	t.Parallel()

	cfg := testClientConfig()
	c := newTestClient(t, &fakeEngine{}, cfg)
	assert.Equal(t, domain.Black, c.WhoseTurn())

	cfg.Handicap = true
	h := newTestClient(t, &fakeEngine{}, cfg)
	assert.Equal(t, domain.White, h.WhoseTurn())

	h.AddMove(domain.White, "dd")
	assert.Equal(t, domain.Black, h.WhoseTurn())
	h.PopMove()
	h.PopMove()
	assert.Empty(t, h.History())
}

func TestClientAnalyze(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{stderr: leelaSearch, answer: "= Q16"}
	c := newTestClient(t, f, testClientConfig())
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	stats, candidates, err := c.Analyze(context.Background(), 5)
	require.NoError(t, err)

	require.NotNil(t, stats.Chosen)
	assert.Equal(t, domain.Move("pd"), *stats.Chosen)
	require.NotNil(t, stats.Best)
	assert.Equal(t, domain.Move("pd"), *stats.Best)
	assert.Equal(t, 1000, stats.VisitCount())
	require.NotNil(t, stats.Winrate)
	assert.InDelta(t, 0.475, *stats.Winrate, 1e-9)

	require.Len(t, candidates, 2)
	assert.Equal(t, domain.Move("pd"), candidates[0].Pos)
	assert.Equal(t, domain.Move("dp"), candidates[1].Pos)

	got := f.commands()
	assert.Contains(t, got, "time_left black 5 1")
	assert.Contains(t, got, "time_left white 5 1")
	assert.Equal(t, "genmove black", got[len(got)-1])
}

func TestClientAnalyzeBookMove(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{stderr: []string{"1 book moves, 200 total positions"}, answer: "= D4"}
	c := newTestClient(t, f, testClientConfig())
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	stats, candidates, err := c.Analyze(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, domain.PositionStats{
		BookMoves: domain.Ptr(1),
		Positions: domain.Ptr(200),
		Chosen:    domain.Ptr(domain.Move("dp")),
	}, stats)
	assert.Equal(t, []domain.CandidateMove{{Pos: "dp", Color: domain.Black, IsBook: true}}, candidates)
}

func TestClientAnalyzeIncomplete(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{stderr: []string{"thinking"}, answer: ""}
	c := newTestClient(t, f, testClientConfig())
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	_, _, err := c.Analyze(context.Background(), 0)
	assert.ErrorIs(t, err, errs.ErrAnalysisIncomplete)
}

func TestClientShowBoard(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{}
	c := newTestClient(t, f, testClientConfig())
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	_, err := c.ShowBoard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "showboard", f.commands()[len(f.commands())-1])
}

func TestClientCancelledGenmoveRelaunchesEngine(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{stderr: leelaSearch, answer: "= Q16", think: 150 * time.Millisecond}
	c := newTestClient(t, f, testClientConfig())
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, _, err := c.Analyze(ctx, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, f.launchCount())

	require.NoError(t, c.Reset(context.Background()))
	assert.Equal(t, 2, f.launchCount())

	// the first engine answers its genmove long after it was given up on
	time.Sleep(200 * time.Millisecond)

	out, err := c.Send(context.Background(), "clear_board", 1)
	require.NoError(t, err)
	assert.NotContains(t, strings.Join(out, "\n"), "Q16")
}

func TestClientCancelledBeforeWrite(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{}
	c := newTestClient(t, f, testClientConfig())
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Send(ctx, "clear_board", 1)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, f.commands(), "clear_board")

	require.NoError(t, c.Reset(context.Background()))
	assert.Equal(t, 1, f.launchCount())
}

func TestClientAnalyzeLeelaZero(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{
		stderr: []string{
			"Playouts: 300, Win: 56.00%, PV: D4 Q16",
			"NN eval=0.552",
			"  D4 ->     380 (V: 56.10%) (LCB: 55.00%) (N: 40.00%) PV: D4 Q16",
			" Q16 ->     120 (V: 54.00%) (LCB: 52.00%) (N: 30.00%) PV: Q16 D4",
			"501 visits, 500 nodes, 501 playouts, 250 n/s",
		},
		answer: "= D4",
	}
	log := zap.NewNop().Sugar()
	cfg := testClientConfig()
	parser := NewParser(ParserConfig{BoardSize: cfg.BoardSize}, LeelaZeroPatterns(), log)
	c := NewClient(cfg, f.launcher(t), parser, log)
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	stats, candidates, err := c.Analyze(context.Background(), 5)
	require.NoError(t, err)

	require.Len(t, candidates, 2)
	assert.Equal(t, domain.Move("dp"), *stats.Best)
	assert.Equal(t, domain.Move("dp"), *stats.Chosen)
	assert.InDelta(t, 0.561, *stats.Winrate, 1e-9)
	assert.Equal(t, 501, stats.VisitCount())
}
