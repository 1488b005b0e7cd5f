package variations

import (
	"container/heap"
	"context"

	"go.uber.org/zap"

	"sgf_review/internal/domain"
)

// LineAnalyzer searches the position reached by playing line on top of the
// game position currently loaded, and leaves that position untouched.
type LineAnalyzer interface {
	AnalyzeLine(ctx context.Context, line []domain.Move, seconds int) (domain.PositionStats, []domain.CandidateMove, error)
}

type Config struct {
	NodesPerVariation int
	Seconds           int
}

type Expander struct {
	cfg      Config
	analyzer LineAnalyzer
	log      *zap.SugaredLogger

	leaves leafQueue
	seq    int
}

func NewExpander(cfg Config, analyzer LineAnalyzer, log *zap.SugaredLogger) *Expander {
	return &Expander{cfg: cfg, analyzer: analyzer, log: log}
}

// Expand grows a tree of alternatives around a game position whose analysis
// is already known. gameMove, when set, is the move really played next.
// Returns nil when there is nothing to explore: book positions and positions
// without candidates.
func (e *Expander) Expand(ctx context.Context, toMove domain.Color, stats domain.PositionStats, candidates []domain.CandidateMove, gameMove *domain.Move) (*Node, error) {
	if stats.IsBook() || len(candidates) == 0 {
		return nil, nil
	}

	e.leaves = e.leaves[:0]
	e.seq = 0

	root := &Node{IsRoot: true, Prob: 1.0, Color: toMove}
	e.expand(root, stats, candidates, gameMove)

	for i := 0; i < e.cfg.NodesPerVariation && e.leaves.Len() > 0; i++ {
		leaf := heap.Pop(&e.leaves).(*Node)
		if err := e.search(ctx, leaf); err != nil {
			return root, err
		}
	}
	return root, nil
}

func (e *Expander) search(ctx context.Context, node *Node) error {
	e.log.Debugw("exploring variation", "line", node.History, "prob", node.Prob)
	stats, candidates, err := e.analyzer.AnalyzeLine(ctx, node.History, e.cfg.Seconds)
	if err != nil {
		return err
	}
	e.expand(node, stats, candidates, nil)
	return nil
}

func (e *Expander) expand(node *Node, stats domain.PositionStats, candidates []domain.CandidateMove, gameMove *domain.Move) {
	weight := func(c domain.CandidateMove) float64 {
		if node.IsRoot {
			return float64(c.Visits)
		}
		return (c.PolicyProb + float64(c.Visits)) / 2
	}

	var (
		sum     float64
		weighed int
	)
	for _, c := range candidates {
		if !c.IsBook {
			sum += weight(c)
			weighed++
		}
	}

	node.Children = make([]*Node, len(candidates))
	for i, c := range candidates {
		if node.IsRoot && gameMove != nil && c.Pos == *gameMove {
			continue
		}

		var cond float64
		switch {
		case c.IsBook:
			cond = 1.0
		case sum > 0:
			cond = weight(c) / sum
		default:
			cond = 1.0 / float64(weighed)
		}

		history := make([]domain.Move, len(node.History), len(node.History)+1)
		copy(history, node.History)

		child := &Node{
			History: append(history, c.Pos),
			Color:   node.Color.Other(),
			Prob:    node.Prob * cond,
			seq:     e.seq,
		}
		e.seq++
		node.Children[i] = child
		if child.Prob > 0 {
			heap.Push(&e.leaves, child)
		}
	}

	node.Stats = stats
	node.Candidates = candidates
	node.Explored = true
}
