package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sgf_review/internal/annotations"
	"sgf_review/internal/bootstrap"
	"sgf_review/internal/domain/sgf"
	"sgf_review/internal/graph"
	"sgf_review/internal/report"
	"sgf_review/internal/repository/checkpoint"
	"sgf_review/internal/repository/engine"
	"sgf_review/internal/usecase/analysis"
	"sgf_review/internal/usecase/review"
)

var outputPath string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.sgf>",
	Short: "Annotate a game record with engine analysis",
	Long: "Searches every main line position of the record, marks mistakes, " +
		"and adds variations after the costly ones. Results are checkpointed, " +
		"so an interrupted review resumes where it stopped.",
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&outputPath, "output", "o", "", "where to write the annotated record (default <file>_analyzed.sgf)")

	f.String("executable", "leelaz", "engine executable")
	f.StringSlice("engine-args", []string{"--gtp", "--noponder"}, "engine arguments")
	f.String("dialect", "leela", "engine output format: leela or leelaz")
	f.Int("analyze-time", 10, "seconds per main line search")
	f.Int("variations-time", 10, "seconds per variation search")
	f.Int("nodes-per-variation", 8, "searches spent on each variation tree")
	f.Int("num-to-show", 0, "moves shown of each principal variation, 0 picks a length")
	f.Int("restarts", 2, "engine restarts per failed search")
	f.Float64("analyze-thresh", 0.05, "win-rate drop that marks a mistake")
	f.Float64("var-thresh", 0.1, "win-rate drop that earns variations")
	f.Float64("stdev", 1.0, "spread of the win-rate transform")
	f.Int("start", 0, "first move to analyze")
	f.Int("end", 1000, "last move to analyze")
	f.Bool("skip-white", false, "no variations for white's mistakes")
	f.Bool("skip-black", false, "no variations for black's mistakes")
	f.Bool("wipe-comments", false, "remove existing comments")
	f.Bool("win-graph", false, "write a win-rate graph next to the record")
	f.Bool("prune", false, "drop candidates that add nothing over the best move")
	f.String("checkpoint-dir", ".checkpoints", "checkpoint directory for the file backend")
	f.String("checkpoint-backend", "file", "checkpoint backend: file, badger, redis or mongo")
	f.Bool("compress", false, "lz4 compress checkpoints")
	f.Bool("skip-checkpoints", false, "ignore stored results")

	for key, name := range map[string]string{
		"ENGINE_PATH":          "executable",
		"ENGINE_ARGS":          "engine-args",
		"ENGINE_DIALECT":       "dialect",
		"ANALYZE_TIME":         "analyze-time",
		"VARIATIONS_TIME":      "variations-time",
		"NODES_PER_VARIATION":  "nodes-per-variation",
		"NUM_TO_SHOW":          "num-to-show",
		"RESTARTS":             "restarts",
		"ANALYZE_THRESHOLD":    "analyze-thresh",
		"VARIATIONS_THRESHOLD": "var-thresh",
		"STDEV":                "stdev",
		"ANALYZE_START":        "start",
		"ANALYZE_END":          "end",
		"SKIP_WHITE":           "skip-white",
		"SKIP_BLACK":           "skip-black",
		"WIPE_COMMENTS":        "wipe-comments",
		"WIN_GRAPH":            "win-graph",
		"PRUNE_REDUNDANT":      "prune",
		"CHECKPOINT_DIR":       "checkpoint-dir",
		"CHECKPOINT_BACKEND":   "checkpoint-backend",
		"CHECKPOINT_COMPRESS":  "compress",
		"SKIP_CHECKPOINTS":     "skip-checkpoints",
	} {
		mustBind(key, f.Lookup(name))
	}

	rootCmd.AddCommand(analyzeCmd)
}

func defaultOutput(sgfPath string) string {
	return strings.TrimSuffix(sgfPath, filepath.Ext(sgfPath)) + "_analyzed.sgf"
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := bootstrap.Setup(cfgPath)
	if err != nil {
		return err
	}

	sgfPath := args[0]
	if outputPath == "" {
		outputPath = defaultOutput(sgfPath)
	}

	logger := NewLogger(cfg.Verbosity).With("run_id", uuid.NewString())
	defer logger.Sync()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go handleShutdown(cancel, logger)

	start := time.Now()
	logger.Infow("review started",
		"record", sgfPath,
		"analyze_time", cfg.AnalyzeTime,
		"variations_time", cfg.VariationsTime)

	src, err := os.ReadFile(sgfPath)
	if err != nil {
		return err
	}
	game, err := sgf.Parse(string(src))
	if err != nil {
		return fmt.Errorf("%s: %w", sgfPath, err)
	}

	settings, err := review.GameSettings(game.Root.Nodes[0], logger)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg, sgfPath, logger)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	client, err := engine.NewProcessClient(cfg, engine.Game{
		BoardSize: settings.BoardSize,
		Komi:      settings.Komi,
		Handicap:  settings.IsHandicap(),
	}, logger)
	if err != nil {
		return err
	}

	svc := analysis.NewService(analysis.Config{
		Restarts:        cfg.Restarts,
		SkipCheckpoints: cfg.SkipCheckpoints,
	}, client, store, logger)

	save := func(g *sgf.SGF) error {
		return writeRecord(outputPath, g)
	}

	format := annotations.NewFormatter(settings.BoardSize, "")
	progress := report.NewProgress(cmd.ErrOrStderr(), filepath.Base(sgfPath))
	reviewer := review.NewReviewer(reviewConfig(cfg), client, svc, format, progress, save, logger)

	rep, runErr := reviewer.Run(ctx, game)
	progress.Finish()

	if cfg.WinGraph && len(rep.Winrates) > 0 {
		points := make([]graph.Point, len(rep.Winrates))
		for i, p := range rep.Winrates {
			points[i] = graph.Point{Move: p.Move, Winrate: p.Winrate}
		}
		if err := graph.WriteWinrates(filepath.Base(sgfPath), points, graph.Path(sgfPath)); err != nil {
			logger.Errorw("win-rate graph", "error", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Summary(rep, format))
	logger.Infow("review finished", "output", outputPath, "elapsed", time.Since(start).Round(time.Second))
	return runErr
}

func openStore(ctx context.Context, cfg *bootstrap.Config, sgfPath string, log *zap.SugaredLogger) (checkpoint.Store, error) {
	namespace, err := checkpoint.Namespace(sgfPath)
	if err != nil {
		return nil, err
	}
	log.Debugw("checkpoints", "backend", cfg.CheckpointBackend, "namespace", namespace)
	return checkpoint.New(ctx, cfg, namespace, log)
}

func reviewConfig(cfg *bootstrap.Config) review.Config {
	return review.Config{
		AnalyzeTime:         cfg.AnalyzeTime,
		VariationsTime:      cfg.VariationsTime,
		NodesPerVariation:   cfg.NodesPerVariation,
		NumToShow:           cfg.NumToShow,
		AnalyzeThreshold:    cfg.AnalyzeThreshold,
		VariationsThreshold: cfg.VariationsThresh,
		Stdev:               cfg.Stdev,
		AnalyzeStart:        cfg.AnalyzeStart,
		AnalyzeEnd:          cfg.AnalyzeEnd,
		SkipWhite:           cfg.SkipWhite,
		SkipBlack:           cfg.SkipBlack,
		WipeComments:        cfg.WipeComments,
	}
}

// writeRecord replaces path atomically so a crash mid-write keeps the
// previous save.
func writeRecord(path string, game *sgf.SGF) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sgf-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.WriteString(sgf.SerializeSGF(game)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
