package annotations

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sgf_review/internal/domain"
)

func TestPos(t *testing.T) {
	t.Parallel()

	f := NewFormatter(19, "")
	assert.Equal(t, "Q16", f.Pos("pd"))
	assert.Equal(t, "H3", f.Pos("hq"))
	assert.Equal(t, "J19", f.Pos("ia"))
	assert.Equal(t, "pass", f.Pos(""))
}

func TestWinrate(t *testing.T) {
	t.Parallel()

	f := NewFormatter(19, "Leela")
	cands := []domain.CandidateMove{{Pos: "pd"}}

	a := f.Winrate(domain.PositionStats{Winrate: domain.Ptr(0.25)}, cands, domain.White, domain.Ptr(domain.Move("dd")))
	assert.Equal(t, "Overall black win%: 75.00%\nLeela's preferred next move: Q16\n", a.Comment)

	a = f.Winrate(domain.PositionStats{Winrate: domain.Ptr(0.25)}, cands, domain.Black, domain.Ptr(domain.Move("pd")))
	assert.Equal(t, "Overall black win%: 25.00%\n\n", a.Comment)

	a = f.Winrate(domain.PositionStats{BookMoves: domain.Ptr(1)}, nil, domain.Black, nil)
	assert.Equal(t, "Overall black win%: not computed (Leela still in opening book)\n\n", a.Comment)
}

func TestDelta(t *testing.T) {
	t.Parallel()

	f := NewFormatter(19, "Leela")

	big := f.Delta(-0.3, -0.25, "pd")
	assert.Contains(t, big.Comment, "Leela thinks Q16 is a big mistake!")
	assert.Contains(t, big.Comment, "Winning percentage drops by 30.00%!")
	assert.Equal(t, []string{"pd:?"}, big.Labels)

	assert.Contains(t, f.Delta(-0.12, -0.15, "pd").Comment, "is a mistake!")
	assert.Contains(t, f.Delta(-0.06, -0.07, "pd").Comment, "is not the best choice.")

	slight := f.Delta(-0.03, -0.03, "pd")
	assert.Contains(t, slight.Comment, "slightly dislikes Q16")
	assert.Empty(t, slight.Labels)

	assert.Equal(t, "\n", f.Delta(-0.01, -0.01, "pd").Comment)
	assert.Empty(t, f.Delta(-0.5, -0.5, "").Labels)
}

func TestAnalysis(t *testing.T) {
	t.Parallel()

	f := NewFormatter(19, "Leela")
	stats := domain.PositionStats{Visits: domain.Ptr(1000)}
	cands := []domain.CandidateMove{
		{Pos: "pd", Visits: 800, Winrate: 0.55},
		{Pos: "", Visits: 200, Winrate: 0.40},
	}

	a := f.Analysis(stats, cands, domain.Ptr(domain.Move("dd")))
	assert.Equal(t, "==========================\nVisited 1000 nodes\n\nA -> Win%: 55.00% (800 visits) \nB -> Win%: 40.00% (200 visits) \n", a.Comment)
	assert.Equal(t, []string{"pd:A"}, a.Labels)
	assert.Equal(t, []domain.Move{"dd"}, a.Triangles)

	a = f.Analysis(stats, cands, domain.Ptr(domain.Move("pd")))
	assert.Empty(t, a.Triangles)

	book := f.Analysis(domain.PositionStats{BookMoves: domain.Ptr(2), Positions: domain.Ptr(40)}, []domain.CandidateMove{{Pos: "pd", IsBook: true}}, nil)
	assert.Equal(t, "==========================\nConsidered 2/40 bookmoves\n", book.Comment)
	assert.Equal(t, []string{"pd:A"}, book.Labels)
}
