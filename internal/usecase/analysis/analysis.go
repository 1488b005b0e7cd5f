package analysis

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"sgf_review/internal/domain"
	errs "sgf_review/internal/errors"
	"sgf_review/internal/repository/checkpoint"
)

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "sgf_review",
	Subsystem: "checkpoint",
	Name:      "lookups_total",
	Help:      "Checkpoint lookups by outcome.",
}, []string{"outcome"})

// Engine is the part of the protocol client the cache drives.
type Engine interface {
	Restart(ctx context.Context) error
	Reset(ctx context.Context) error
	GoToPosition(ctx context.Context) error
	Analyze(ctx context.Context, seconds int) (domain.PositionStats, []domain.CandidateMove, error)
	AddMove(color domain.Color, m domain.Move)
	PopMove()
	WhoseTurn() domain.Color
	HistoryHash() (string, error)
}

type Config struct {
	Restarts        int
	SkipCheckpoints bool
}

// Service answers "what does the engine think of the current position"
// from the checkpoint store when it can and from the engine when it must.
type Service struct {
	cfg    Config
	engine Engine
	store  checkpoint.Store
	log    *zap.SugaredLogger
}

func NewService(cfg Config, engine Engine, store checkpoint.Store, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, engine: engine, store: store, log: log}
}

// Analyze the engine's current history for seconds. A stored result is
// returned without touching the engine. On a miss the engine is reset to
// the history, searched and the result stored. Engine failures restart the
// process and retry up to Restarts times.
func (s *Service) Analyze(ctx context.Context, seconds int) (domain.PositionStats, []domain.CandidateMove, error) {
	hash, err := s.engine.HistoryHash()
	if err != nil {
		return domain.PositionStats{}, nil, err
	}
	key := checkpoint.Key(hash, seconds)

	if !s.cfg.SkipCheckpoints {
		entry, err := s.store.Load(ctx, key)
		switch {
		case err == nil:
			lookups.WithLabelValues("hit").Inc()
			return entry.Stats, entry.Candidates, nil
		case errors.Is(err, errs.ErrCheckpointMiss):
			lookups.WithLabelValues("miss").Inc()
		default:
			lookups.WithLabelValues("error").Inc()
			s.log.Warnw("checkpoint unreadable, searching again", "key", key, "error", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.Restarts; attempt++ {
		if attempt > 0 {
			s.log.Warnw("engine failed, restarting", "attempt", attempt, "error", lastErr)
			if err := s.engine.Restart(ctx); err != nil {
				if errors.Is(err, errs.ErrLaunchFailed) {
					return domain.PositionStats{}, nil, err
				}
				lastErr = err
				continue
			}
		}

		stats, candidates, err := s.search(ctx, seconds)
		if err == nil {
			if err := s.store.Save(ctx, key, checkpoint.Entry{Stats: stats, Candidates: candidates}); err != nil {
				s.log.Warnw("checkpoint not saved", "key", key, "error", err)
			}
			return stats, candidates, nil
		}
		if ctx.Err() != nil {
			return domain.PositionStats{}, nil, ctx.Err()
		}
		lastErr = err
	}
	return domain.PositionStats{}, nil, lastErr
}

func (s *Service) search(ctx context.Context, seconds int) (domain.PositionStats, []domain.CandidateMove, error) {
	if err := s.engine.Reset(ctx); err != nil {
		return domain.PositionStats{}, nil, err
	}
	if err := s.engine.GoToPosition(ctx); err != nil {
		return domain.PositionStats{}, nil, err
	}
	return s.engine.Analyze(ctx, seconds)
}

// AnalyzeLine plays line on top of the current history, analyzes the
// resulting position and takes the moves back again.
func (s *Service) AnalyzeLine(ctx context.Context, line []domain.Move, seconds int) (domain.PositionStats, []domain.CandidateMove, error) {
	for _, m := range line {
		s.engine.AddMove(s.engine.WhoseTurn(), m)
	}
	defer func() {
		for range line {
			s.engine.PopMove()
		}
	}()
	return s.Analyze(ctx, seconds)
}

// AnalyzePlays is AnalyzeLine with explicit colors, for positions built from
// setup stones or consecutive passes. It also reports whose turn it was.
func (s *Service) AnalyzePlays(ctx context.Context, plays domain.History, seconds int) (domain.Color, domain.PositionStats, []domain.CandidateMove, error) {
	for _, p := range plays {
		s.engine.AddMove(p.Color, p.Move)
	}
	defer func() {
		for range plays {
			s.engine.PopMove()
		}
	}()

	toMove := s.engine.WhoseTurn()
	stats, cands, err := s.Analyze(ctx, seconds)
	return toMove, stats, cands, err
}
