package review

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sgf_review/internal/annotations"
	"sgf_review/internal/domain"
	"sgf_review/internal/domain/sgf"
	"sgf_review/internal/usecase/variations"
)

// Engine is the part of the protocol client a review drives directly.
// Searching goes through Analyzer so that results are checkpointed.
type Engine interface {
	Start(ctx context.Context) error
	Stop()
	AddMove(color domain.Color, m domain.Move)
	ClearHistory()
	WhoseTurn() domain.Color
}

type Analyzer interface {
	Analyze(ctx context.Context, seconds int) (domain.PositionStats, []domain.CandidateMove, error)
	variations.LineAnalyzer
}

// Progress receives an approximate count of finished and total steps.
type Progress interface {
	Update(done, total int64)
}

// Saver persists the annotated record. It is called after every step so a
// crash never loses more than one search.
type Saver func(game *sgf.SGF) error

type Config struct {
	AnalyzeTime         int
	VariationsTime      int
	NodesPerVariation   int
	NumToShow           int
	AnalyzeThreshold    float64
	VariationsThreshold float64
	Stdev               float64
	AnalyzeStart        int
	AnalyzeEnd          int
	SkipWhite           bool
	SkipBlack           bool
	WipeComments        bool
}

// WinratePoint is black's chance after move Move was played.
type WinratePoint struct {
	Move    int
	ToMove  domain.Color
	Winrate float64
}

type Mistake struct {
	Move       int
	Color      domain.Color
	Played     domain.Move
	Delta      float64
	TransDelta float64
}

// Report collects what a review found beyond the annotated record itself.
type Report struct {
	Winrates   []WinratePoint
	Mistakes   []Mistake
	Variations []int
}

type Reviewer struct {
	cfg      Config
	engine   Engine
	analyzer Analyzer
	format   *annotations.Formatter
	progress Progress
	save     Saver
	log      *zap.SugaredLogger

	transform       Transformer
	analyzeThresh   float64
	variationThresh float64
}

func NewReviewer(cfg Config, engine Engine, analyzer Analyzer, format *annotations.Formatter, progress Progress, save Saver, log *zap.SugaredLogger) *Reviewer {
	t := NewTransformer(cfg.Stdev)
	return &Reviewer{
		cfg:             cfg,
		engine:          engine,
		analyzer:        analyzer,
		format:          format,
		progress:        progress,
		save:            save,
		log:             log,
		transform:       t,
		analyzeThresh:   t.Threshold(cfg.AnalyzeThreshold),
		variationThresh: t.Threshold(cfg.VariationsThreshold),
	}
}

// pending is a game position whose alternatives still have to be explored.
type pending struct {
	toMove     domain.Color
	stats      domain.PositionStats
	candidates []domain.CandidateMove
}

// reviewState carries the bookkeeping of one run.
type reviewState struct {
	req     Requests
	report  *Report
	needs   map[int]pending
	bestPos map[int]domain.Move
	bestWr  map[int]float64

	analyzeTotal   int
	variationTotal int
	analyzeDone    int
	variationDone  int
}

// Run reviews the main line of game in two passes: first every position in
// range is searched and annotated, then positions where a costly mistake was
// made get a tree of alternatives. On failure the partial record is saved
// and the error returned. The engine is always stopped.
func (r *Reviewer) Run(ctx context.Context, game *sgf.SGF) (*Report, error) {
	st := &reviewState{
		report:  &Report{},
		needs:   map[int]pending{},
		bestPos: map[int]domain.Move{},
		bestWr:  map[int]float64{},
	}

	req, err := CommentRequests(game, r.cfg.WipeComments)
	if err != nil {
		return st.report, err
	}
	st.req = req
	st.analyzeTotal, st.variationTotal = r.countTasks(game, req)
	r.log.Infof("executing approx %d analysis steps", r.approxTotal(st))

	defer r.engine.Stop()

	if err := r.mainPass(ctx, game, st); err != nil {
		return st.report, r.partial(game, err)
	}

	r.engine.Stop()
	r.engine.ClearHistory()

	if err := r.variationsPass(ctx, game, st); err != nil {
		return st.report, r.partial(game, err)
	}
	return st.report, nil
}

func (r *Reviewer) partial(game *sgf.SGF, cause error) error {
	r.log.Errorw("review failed, reporting partial results", "error", cause)
	if err := r.save(game); err != nil {
		r.log.Errorw("saving partial results", "error", err)
	}
	return cause
}

func (r *Reviewer) inRange(moveNum int) bool {
	return r.cfg.AnalyzeStart <= moveNum && moveNum <= r.cfg.AnalyzeEnd
}

func (r *Reviewer) wanted(moveNum int, req Requests) bool {
	return r.inRange(moveNum) ||
		req.Analyze[moveNum] || req.Analyze[moveNum-1] ||
		req.Variations[moveNum] || req.Variations[moveNum-1]
}

func (r *Reviewer) skipped(c domain.Color) bool {
	return (r.cfg.SkipWhite && c == domain.White) || (r.cfg.SkipBlack && c == domain.Black)
}

func (r *Reviewer) countTasks(game *sgf.SGF, req Requests) (analyze, vars int) {
	cur := sgf.NewCursor(game)
	for moveNum := 0; !cur.AtEnd(); moveNum++ {
		if cur.Next(0) != nil {
			break
		}
		switch {
		case req.Variations[moveNum]:
			analyze++
			vars++
		case r.inRange(moveNum) || req.Analyze[moveNum] || req.Analyze[moveNum-1] || req.Variations[moveNum-1]:
			analyze++
		}
	}
	return analyze, vars
}

// approxTotal guesses how many searches are left: every outstanding main
// line search may still trigger a variation tree.
func (r *Reviewer) approxTotal(st *reviewState) int64 {
	p := 1.0 / (1.0 + r.cfg.VariationsThreshold*100.0)
	left := float64(st.analyzeTotal - st.analyzeDone)
	return int64(left*(1+p*float64(r.cfg.NodesPerVariation))) +
		int64(st.analyzeDone) + int64(st.variationTotal*r.cfg.NodesPerVariation)
}

func (r *Reviewer) refresh(st *reviewState) {
	if r.progress == nil {
		return
	}
	done := int64(st.analyzeDone + st.variationDone*r.cfg.NodesPerVariation)
	r.progress.Update(done, r.approxTotal(st))
}

// addMoves feeds the node's plays and setup stones to the engine history
// and returns the played move, if any.
func (r *Reviewer) addMoves(n *sgf.Node) (domain.Play, bool) {
	play, ok := n.Play()
	if ok {
		r.engine.AddMove(play.Color, play.Move)
	}
	for _, v := range n.Values("AB") {
		r.engine.AddMove(domain.Black, domain.Move(v))
	}
	for _, v := range n.Values("AW") {
		r.engine.AddMove(domain.White, domain.Move(v))
	}
	return play, ok
}

func nextGameMove(cur *sgf.Cursor) *domain.Move {
	children := cur.Children()
	if len(children) == 0 {
		return nil
	}
	if p, ok := children[0].Play(); ok {
		return &p.Move
	}
	return nil
}

func (r *Reviewer) mainPass(ctx context.Context, game *sgf.SGF, st *reviewState) error {
	cur := sgf.NewCursor(game)
	if err := r.engine.Start(ctx); err != nil {
		return err
	}
	r.addMoves(cur.Node())

	var (
		prevStats domain.PositionStats
		prevCands []domain.CandidateMove
		hasPrev   bool
	)

	for moveNum := 0; !cur.AtEnd(); moveNum++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cur.Next(0); err != nil {
			return err
		}
		play, _ := r.addMoves(cur.Node())
		current := r.engine.WhoseTurn()
		prev := current.Other()

		if !r.wanted(moveNum, st.req) {
			prevStats, prevCands, hasPrev = domain.PositionStats{}, nil, false
			continue
		}

		stats, cands, err := r.analyzer.Analyze(ctx, r.cfg.AnalyzeTime)
		if err != nil {
			return fmt.Errorf("analyze move %d: %w", moveNum, err)
		}

		if stats.Winrate != nil && stats.VisitCount() > 100 {
			st.report.Winrates = append(st.report.Winrates, WinratePoint{
				Move:    moveNum,
				ToMove:  current,
				Winrate: annotations.BlackWinrate(*stats.Winrate, current),
			})
		}
		if len(cands) > 0 && !cands[0].IsBook {
			st.bestPos[moveNum] = cands[0].Pos
			st.bestWr[moveNum] = annotations.BlackWinrate(cands[0].Winrate, current)
		}

		var delta, transDelta float64
		if bestWr, ok := st.bestWr[moveNum-1]; ok && stats.Winrate != nil {
			if play.Move != st.bestPos[moveNum-1] {
				wr := annotations.BlackWinrate(*stats.Winrate, current)
				delta = blunder(wr-bestWr, current)
				transDelta = blunder(r.transform.Apply(wr)-r.transform.Apply(bestWr), current)
			}
			if transDelta <= -r.analyzeThresh {
				cur.Annotate(r.format.Delta(delta, transDelta, play.Move))
				st.report.Mistakes = append(st.report.Mistakes, Mistake{
					Move:       moveNum,
					Color:      prev,
					Played:     play.Move,
					Delta:      delta,
					TransDelta: transDelta,
				})
			}
		}

		if hasPrev && (transDelta <= -r.variationThresh || st.req.Variations[moveNum-1]) && !r.skipped(prev) {
			st.needs[moveNum-1] = pending{toMove: prev, stats: prevStats, candidates: prevCands}
			if !st.req.Variations[moveNum-1] {
				st.variationTotal++
			}
		}

		cur.Annotate(r.format.Winrate(stats, cands, current, nextGameMove(cur)))

		if hasPrev && (st.req.Analyze[moveNum-1] || st.req.Variations[moveNum-1] || transDelta <= -r.analyzeThresh) && !r.skipped(prev) {
			if err := cur.Previous(); err != nil {
				return err
			}
			played := play.Move
			cur.Annotate(r.format.Analysis(prevStats, prevCands, &played))
			if err := cur.Next(0); err != nil {
				return err
			}
		}

		prevStats, prevCands, hasPrev = stats, cands, true
		st.analyzeDone++

		if err := r.save(game); err != nil {
			return err
		}
		r.refresh(st)
	}
	return nil
}

// blunder turns a black win-rate change into the loss of the player who
// just moved: zero or negative.
func blunder(change float64, toMove domain.Color) float64 {
	if toMove == domain.Black {
		change = -change
	}
	return min(0, change)
}

func (r *Reviewer) variationsPass(ctx context.Context, game *sgf.SGF, st *reviewState) error {
	cur := sgf.NewCursor(game)
	if err := r.engine.Start(ctx); err != nil {
		return err
	}
	r.addMoves(cur.Node())

	expander := variations.NewExpander(variations.Config{
		NodesPerVariation: r.cfg.NodesPerVariation,
		Seconds:           r.cfg.VariationsTime,
	}, r.analyzer, r.log)
	recorder := variations.NewRecorder(cur, r.format, r.cfg.NumToShow)

	for moveNum := 0; !cur.AtEnd(); moveNum++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cur.Next(0); err != nil {
			return err
		}
		r.addMoves(cur.Node())

		p, ok := st.needs[moveNum]
		if !ok {
			continue
		}

		root, err := expander.Expand(ctx, p.toMove, p.stats, p.candidates, nextGameMove(cur))
		if root != nil {
			if recErr := recorder.Record(root); recErr != nil && err == nil {
				err = recErr
			}
		}
		if err != nil {
			return fmt.Errorf("variations at move %d: %w", moveNum, err)
		}
		st.report.Variations = append(st.report.Variations, moveNum)
		st.variationDone++

		if err := r.save(game); err != nil {
			return err
		}
		r.refresh(st)
	}
	return nil
}
