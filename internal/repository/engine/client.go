package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"sgf_review/internal/domain"
	errs "sgf_review/internal/errors"
)

type ClientConfig struct {
	BoardSize      int
	Komi           float64
	Handicap       bool
	SecondsPerMove int
	CommandRetries int
	RetryInterval  time.Duration
	PollInterval   time.Duration
}

// Client drives one engine over GTP and mirrors the position it was told
// about in History. Callers keep History and the engine in step.
type Client struct {
	cfg     ClientConfig
	launch  Launcher
	conn    Conn
	parser  *Parser
	history domain.History
	log     *zap.SugaredLogger

	// set when a cancelled command forced the engine down
	interrupted bool
}

func NewClient(cfg ClientConfig, launch Launcher, parser *Parser, log *zap.SugaredLogger) *Client {
	if cfg.CommandRetries <= 0 {
		cfg.CommandRetries = 200
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 100 * time.Millisecond
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Client{cfg: cfg, launch: launch, parser: parser, log: log}
}

func (c *Client) BoardSize() int {
	return c.cfg.BoardSize
}

func (c *Client) Start(ctx context.Context) error {
	conn, err := c.launch(ctx)
	if err != nil {
		return err
	}
	c.conn = conn
	c.interrupted = false

	c.log.Infof("setting board size %d and komi %.1f", c.cfg.BoardSize, c.cfg.Komi)
	for _, cmd := range []string{
		fmt.Sprintf("boardsize %d", c.cfg.BoardSize),
		fmt.Sprintf("komi %f", c.cfg.Komi),
		fmt.Sprintf("time_settings 0 %d 1", c.cfg.SecondsPerMove),
	} {
		if _, err := c.Send(ctx, cmd, 1); err != nil {
			return err
		}
	}
	return nil
}

// Stop is idempotent; errors from a dying engine are ignored.
func (c *Client) Stop() {
	if c.conn == nil {
		return
	}
	conn := c.conn
	c.conn = nil
	conn.Stop()
	c.log.Debug("engine stopped")
}

func (c *Client) Restart(ctx context.Context) error {
	c.Stop()
	return c.Start(ctx)
}

// Send writes cmd and waits until the engine acknowledged it expectedAcks
// times. The wait budget only counts idle intervals, so a chatty engine is
// never cut off mid-answer. Returns the stdout lines read while waiting.
func (c *Client) Send(ctx context.Context, cmd string, expectedAcks int) ([]string, error) {
	return c.send(ctx, cmd, expectedAcks, true)
}

func (c *Client) send(ctx context.Context, cmd string, expectedAcks int, drain bool) ([]string, error) {
	if c.conn == nil {
		return nil, errs.ErrEngineNotRunning
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	commandsSent.Inc()
	if err := c.conn.Write(cmd); err != nil {
		return nil, fmt.Errorf("write %q: %w", firstLine(cmd), err)
	}

	var (
		out  []string
		acks int
	)
	for idle := 0; idle <= c.cfg.CommandRetries; {
		if err := ctx.Err(); err != nil {
			return out, c.abandon(cmd, err)
		}
		line, ok := c.conn.Stdout().ReadLineTimeout(c.cfg.RetryInterval)
		if !ok {
			idle++
			continue
		}
		out = append(out, line)
		if strings.Contains(line, "=") {
			acks++
			if acks >= expectedAcks {
				if drain {
					so, se := c.Drain()
					out = append(out, so...)
					c.log.Debugw("drained after command", "command", firstLine(cmd), "stderr_lines", len(se))
				}
				return out, nil
			}
		}
	}

	commandTimeouts.Inc()
	return out, &errs.CommandTimeoutError{Command: firstLine(cmd), Expected: expectedAcks, Got: acks}
}

// abandon stops an engine whose answer to cmd will never be read. Its late
// output would otherwise acknowledge whatever command comes next.
func (c *Client) abandon(cmd string, err error) error {
	c.log.Warnw("command abandoned, stopping engine", "command", firstLine(cmd), "error", err)
	c.Stop()
	c.interrupted = true
	return err
}

func (c *Client) Drain() (stdout, stderr []string) {
	if c.conn == nil {
		return nil, nil
	}
	return c.conn.Stdout().DrainAll(), c.conn.Stderr().DrainAll()
}

// Reset clears the board, relaunching the engine first when a cancelled
// command had to stop it.
func (c *Client) Reset(ctx context.Context) error {
	if c.interrupted {
		if err := c.Start(ctx); err != nil {
			return err
		}
	}
	_, err := c.Send(ctx, "clear_board", 1)
	return err
}

// GoToPosition replays History in one write.
func (c *Client) GoToPosition(ctx context.Context) error {
	if len(c.history) == 0 {
		return nil
	}
	cmds, err := c.history.Commands(c.cfg.BoardSize)
	if err != nil {
		return err
	}
	_, err = c.Send(ctx, strings.Join(cmds, "\n"), len(cmds))
	return err
}

// PlayMove tells the engine about one move by the side to move.
func (c *Client) PlayMove(ctx context.Context, m domain.Move) error {
	coord, err := domain.RecordToEngine(c.cfg.BoardSize, m)
	if err != nil {
		return err
	}
	_, err = c.Send(ctx, fmt.Sprintf("play %s %s", c.WhoseTurn(), coord), 1)
	return err
}

func (c *Client) ShowBoard(ctx context.Context) (string, error) {
	if _, err := c.send(ctx, "showboard", 1, false); err != nil {
		return "", err
	}
	_, se := c.Drain()
	return strings.Join(se, "\n"), nil
}

// Analyze lets the engine think for seconds on the current position and
// decodes what it printed.
func (c *Client) Analyze(ctx context.Context, seconds int) (domain.PositionStats, []domain.CandidateMove, error) {
	var stats domain.PositionStats

	toMove := c.WhoseTurn()
	for _, color := range []domain.Color{domain.Black, domain.White} {
		if _, err := c.Send(ctx, fmt.Sprintf("time_left %s %d 1", color, seconds), 1); err != nil {
			return stats, nil, err
		}
	}

	if c.conn == nil {
		return stats, nil, errs.ErrEngineNotRunning
	}
	if err := c.conn.Write("genmove " + string(toMove)); err != nil {
		return stats, nil, fmt.Errorf("write genmove: %w", err)
	}
	timer := prometheusTimer(analysisDuration)
	defer timer()

	var stdout, stderr []string
	done := false
	for idle := 0; idle < 20+seconds*2; idle++ {
		so, se := c.Drain()
		stdout = append(stdout, so...)
		stderr = append(stderr, se...)

		if visits, ok := c.progress(se); ok {
			c.log.Debugw("search progress", "visits", visits)
			idle = 0
		}

		if _, ok := c.parser.patterns.finished(stdout); ok && c.parser.patterns.summarized(stderr) {
			done = true
			break
		}

		select {
		case <-ctx.Done():
			return stats, nil, c.abandon("genmove "+string(toMove), ctx.Err())
		case <-time.After(c.cfg.PollInterval):
		}
	}

	// confirm the generated move
	if err := c.conn.Write(""); err != nil {
		return stats, nil, fmt.Errorf("confirm genmove: %w", err)
	}
	so, se := c.Drain()
	stdout = append(stdout, so...)
	stderr = append(stderr, se...)

	if !done {
		return stats, nil, fmt.Errorf("%w: genmove %s after %d seconds", errs.ErrAnalysisIncomplete, toMove, seconds)
	}

	stats, candidates := c.parser.Parse(stdout, stderr, toMove)
	if stats.Chosen != nil {
		c.log.Debugw("engine chose", "move", *stats.Chosen, "best", stats.Best, "visits", stats.VisitCount())
	}
	return stats, candidates, nil
}

func (c *Client) progress(stderr []string) (int, bool) {
	for i := len(stderr) - 1; i >= 0; i-- {
		if g := match(c.parser.patterns.Update, strings.TrimSpace(stderr[i])); g != nil {
			return atoi(g["visits"]), true
		}
	}
	return 0, false
}

func (c *Client) AddMove(color domain.Color, m domain.Move) {
	c.history = append(c.history, domain.Play{Color: color, Move: m})
}

func (c *Client) PopMove() {
	if len(c.history) > 0 {
		c.history = c.history[:len(c.history)-1]
	}
}

func (c *Client) ClearHistory() {
	c.history = c.history[:0]
}

func (c *Client) History() domain.History {
	return c.history.Clone()
}

// WhoseTurn: white opens handicap games, otherwise colors alternate from
// the last recorded play.
func (c *Client) WhoseTurn() domain.Color {
	if len(c.history) == 0 {
		if c.cfg.Handicap {
			return domain.White
		}
		return domain.Black
	}
	return c.history[len(c.history)-1].Color.Other()
}

func (c *Client) HistoryHash() (string, error) {
	return c.history.Hash(c.cfg.BoardSize)
}

func firstLine(cmd string) string {
	if i := strings.IndexByte(cmd, '\n'); i >= 0 {
		return cmd[:i] + " ..."
	}
	return cmd
}
