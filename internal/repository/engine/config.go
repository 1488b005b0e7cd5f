package engine

import (
	"go.uber.org/zap"

	"sgf_review/internal/bootstrap"
	"sgf_review/internal/domain"
)

// Game is what a client needs to know about the game before it starts.
type Game struct {
	BoardSize int
	Komi      float64
	Handicap  bool
}

// NewProcessClient wires a Leela or Leela Zero subprocess client from the
// application config.
func NewProcessClient(cfg *bootstrap.Config, game Game, log *zap.SugaredLogger) (*Client, error) {
	patterns, err := PatternsFor(cfg.EngineDialect)
	if err != nil {
		return nil, err
	}

	var reported domain.Color
	if cfg.ReportedColor != "" {
		c, err := domain.ParseColor(cfg.ReportedColor)
		if err != nil {
			return nil, err
		}
		reported = c
	}

	parser := NewParser(ParserConfig{
		BoardSize:      game.BoardSize,
		ReportedColor:  reported,
		PruneRedundant: cfg.PruneRedundant,
	}, patterns, log)

	launch := ProcessLauncher(cfg.EnginePath, cfg.EngineArgs, StreamConfig{
		BufferSize:  cfg.ReaderBuffer,
		Backoff:     cfg.ReaderBackoff,
		GracePeriod: cfg.StopGracePeriod,
	}, log)

	return NewClient(ClientConfig{
		BoardSize:      game.BoardSize,
		Komi:           game.Komi,
		Handicap:       game.Handicap,
		SecondsPerMove: cfg.AnalyzeTime,
		CommandRetries: cfg.CommandRetries,
		RetryInterval:  cfg.RetryInterval,
		PollInterval:   cfg.PollInterval,
	}, launch, parser, log), nil
}
