package variations

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sgf_review/internal/domain"
)

type scriptedAnalyzer struct {
	calls   [][]domain.Move
	answers map[string][]domain.CandidateMove
	fail    error
}

func lineKey(line []domain.Move) string {
	key := ""
	for _, m := range line {
		key += string(m) + "/"
	}
	return key
}

func (a *scriptedAnalyzer) AnalyzeLine(ctx context.Context, line []domain.Move, seconds int) (domain.PositionStats, []domain.CandidateMove, error) {
	a.calls = append(a.calls, append([]domain.Move(nil), line...))
	if a.fail != nil {
		return domain.PositionStats{}, nil, a.fail
	}
	stats := domain.PositionStats{Visits: domain.Ptr(100), Winrate: domain.Ptr(0.5)}
	if cands, ok := a.answers[lineKey(line)]; ok {
		return stats, cands, nil
	}
	// two fresh replies at every depth
	depth := byte(len(line))
	return stats, []domain.CandidateMove{
		{Pos: domain.Move([]byte{'a' + depth, 'a'}), Visits: 60, PolicyProb: 0.6},
		{Pos: domain.Move([]byte{'a' + depth, 'b'}), Visits: 40, PolicyProb: 0.4},
	}, nil
}

func newExpander(n int, a LineAnalyzer) *Expander {
	return NewExpander(Config{NodesPerVariation: n, Seconds: 5}, a, zap.NewNop().Sugar())
}

func rootCandidates() []domain.CandidateMove {
	return []domain.CandidateMove{
		{Pos: "pd", Visits: 75, PolicyProb: 0.5},
		{Pos: "dd", Visits: 25, PolicyProb: 0.5},
	}
}

func TestExpandRespectsBudget(t *testing.T) {
	t.Parallel()

	a := &scriptedAnalyzer{}
	root, err := newExpander(3, a).Expand(context.Background(), domain.Black, domain.PositionStats{}, rootCandidates(), nil)
	require.NoError(t, err)

	assert.Len(t, a.calls, 3)
	explored := 0
	root.Walk(func(n *Node) {
		if n.Explored {
			explored++
		}
	})
	assert.Equal(t, 4, explored)
}

func TestExpandRootProbabilities(t *testing.T) {
	t.Parallel()

	a := &scriptedAnalyzer{}
	root, err := newExpander(1, a).Expand(context.Background(), domain.Black, domain.PositionStats{}, rootCandidates(), nil)
	require.NoError(t, err)

	require.Len(t, root.Children, 2)
	assert.InDelta(t, 0.75, root.Children[0].Prob, 1e-9)
	assert.InDelta(t, 0.25, root.Children[1].Prob, 1e-9)
	assert.Equal(t, domain.White, root.Children[0].Color)
	assert.Equal(t, [][]domain.Move{{"pd"}}, a.calls)

	// below the root policy and visits are averaged
	grand := root.Children[0].Children
	require.Len(t, grand, 2)
	assert.InDelta(t, 0.75*(30.3/50.5), grand[0].Prob, 1e-9)
	assert.InDelta(t, 0.75*(20.2/50.5), grand[1].Prob, 1e-9)
	assert.Equal(t, []domain.Move{"pd", "ba"}, grand[0].History)
}

func TestExpandProbabilityNeverGrows(t *testing.T) {
	t.Parallel()

	root, err := newExpander(6, &scriptedAnalyzer{}).Expand(context.Background(), domain.Black, domain.PositionStats{}, rootCandidates(), nil)
	require.NoError(t, err)

	var check func(n *Node)
	check = func(n *Node) {
		for _, c := range n.Children {
			if c == nil {
				continue
			}
			assert.LessOrEqual(t, c.Prob, n.Prob)
			assert.Greater(t, c.Prob, 0.0)
			assert.Len(t, c.History, len(n.History)+1)
			check(c)
		}
	}
	check(root)
}

func TestExpandSkipsGameMove(t *testing.T) {
	t.Parallel()

	a := &scriptedAnalyzer{}
	played := domain.Move("pd")
	root, err := newExpander(4, a).Expand(context.Background(), domain.Black, domain.PositionStats{}, rootCandidates(), &played)
	require.NoError(t, err)

	assert.Nil(t, root.Children[0])
	require.NotNil(t, root.Children[1])
	for _, line := range a.calls {
		assert.NotEqual(t, played, line[0])
	}
}

func TestExpandNothingToDo(t *testing.T) {
	t.Parallel()

	a := &scriptedAnalyzer{}
	e := newExpander(4, a)

	root, err := e.Expand(context.Background(), domain.Black, domain.PositionStats{BookMoves: domain.Ptr(1)}, rootCandidates(), nil)
	require.NoError(t, err)
	assert.Nil(t, root)

	root, err = e.Expand(context.Background(), domain.Black, domain.PositionStats{}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, root)
	assert.Empty(t, a.calls)
}

func TestExpandTiesGoToEarliestLeaf(t *testing.T) {
	t.Parallel()

	a := &scriptedAnalyzer{}
	cands := []domain.CandidateMove{{Pos: "pd", Visits: 50}, {Pos: "dd", Visits: 50}}
	_, err := newExpander(2, a).Expand(context.Background(), domain.Black, domain.PositionStats{}, cands, nil)
	require.NoError(t, err)

	// pd first, then its 0.3 child loses to dd at 0.5
	assert.Equal(t, [][]domain.Move{{"pd"}, {"dd"}}, a.calls)
}

func TestExpandBookChildKeepsParentProbability(t *testing.T) {
	t.Parallel()

	a := &scriptedAnalyzer{answers: map[string][]domain.CandidateMove{
		"pd/": {{Pos: "dd", IsBook: true}},
	}}
	root, err := newExpander(1, a).Expand(context.Background(), domain.Black, domain.PositionStats{}, rootCandidates(), nil)
	require.NoError(t, err)

	child := root.Children[0]
	require.Len(t, child.Children, 1)
	assert.InDelta(t, child.Prob, child.Children[0].Prob, 1e-12)
}

func TestExpandZeroVisitsFallsBackToUniform(t *testing.T) {
	t.Parallel()

	cands := []domain.CandidateMove{{Pos: "pd"}, {Pos: "dd"}}
	root, err := newExpander(0, &scriptedAnalyzer{}).Expand(context.Background(), domain.Black, domain.PositionStats{}, cands, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, root.Children[0].Prob, 1e-9)
	assert.InDelta(t, 0.5, root.Children[1].Prob, 1e-9)
}

func TestExpandPropagatesAnalyzerError(t *testing.T) {
	t.Parallel()

	boom := errors.New("engine gone")
	root, err := newExpander(2, &scriptedAnalyzer{fail: boom}).Expand(context.Background(), domain.Black, domain.PositionStats{}, rootCandidates(), nil)
	require.ErrorIs(t, err, boom)
	assert.True(t, root.Explored)
}
