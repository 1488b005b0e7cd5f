package sgf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sgf_review/internal/domain"
	errs "sgf_review/internal/errors"
)

const sample = `(;FF[4]GM[1]SZ[19]KM[6.5]RU[Japanese]
;B[pd];W[dp]
(;B[pq]C[main \] line])
(;B[dd]))`

func TestParseAndSerialize(t *testing.T) {
	t.Parallel()

	game, err := Parse(sample)
	require.NoError(t, err)

	root := game.Root
	require.Len(t, root.Nodes, 3)
	require.Len(t, root.Children, 2)

	c, ok := root.Children[0].Nodes[0].Get("C")
	require.True(t, ok)
	assert.Equal(t, "main ] line", c)

	out := SerializeSGF(game)
	again, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, out, SerializeSGF(again))
}

func TestParseMultiValue(t *testing.T) {
	t.Parallel()

	game, err := Parse("(;SZ[9]AB[aa][bb]AW[cc])")
	require.NoError(t, err)

	node := game.Root.Nodes[0]
	assert.Equal(t, []string{"aa", "bb"}, node.Values("AB"))
	assert.Contains(t, SerializeSGF(game), "AB[aa][bb]")
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	for _, src := range []string{"", ";B[aa]", "(;B[aa]", "(;B[aa)", "(;B)", "()"} {
		_, err := Parse(src)
		assert.ErrorIs(t, err, errs.ErrMalformedRecord, src)
	}
}

func TestCursorWalk(t *testing.T) {
	t.Parallel()

	game, err := Parse(sample)
	require.NoError(t, err)
	cur := NewCursor(game)

	require.Len(t, cur.Children(), 1)
	require.NoError(t, cur.Next(0))
	require.NoError(t, cur.Next(0))
	assert.Equal(t, []domain.Play{{Color: domain.Black, Move: "pq"}, {Color: domain.Black, Move: "dd"}}, cur.ChildMoves())

	require.NoError(t, cur.Next(1))
	assert.True(t, cur.AtEnd())
	p, ok := cur.Node().Play()
	require.True(t, ok)
	assert.Equal(t, domain.Move("dd"), p.Move)

	require.NoError(t, cur.Previous())
	require.NoError(t, cur.Previous())
	require.NoError(t, cur.Previous())
	assert.ErrorIs(t, cur.Previous(), errs.ErrCursorBounds)
	assert.ErrorIs(t, cur.Next(3), errs.ErrCursorBounds)
}

func TestCursorAppendSplitsSequence(t *testing.T) {
	t.Parallel()

	game, err := Parse("(;SZ[19];B[pd];W[dp];B[pp])")
	require.NoError(t, err)
	cur := NewCursor(game)
	require.NoError(t, cur.Next(0))

	cur.AppendMove(domain.Play{Color: domain.White, Move: "dd"})

	assert.Equal(t, []domain.Play{{Color: domain.White, Move: "dp"}, {Color: domain.White, Move: "dd"}}, cur.ChildMoves())

	// the original continuation is intact
	require.NoError(t, cur.Next(0))
	require.NoError(t, cur.Next(0))
	p, _ := cur.Node().Play()
	assert.Equal(t, domain.Move("pp"), p.Move)

	assert.Equal(t, "(;SZ[19];B[pd]\n(;W[dp];B[pp])\n(;W[dd]))\n", SerializeSGF(game))
}

func TestAnnotate(t *testing.T) {
	t.Parallel()

	n := NewNode()
	n.Set("C", "hello\n")
	n.Annotate(domain.Annotation{Comment: "world", Labels: []string{"pd:A"}, Triangles: []domain.Move{"dp"}})

	c, _ := n.Get("C")
	assert.Equal(t, "hello\nworld", c)
	assert.Equal(t, []string{"pd:A"}, n.Values("LB"))
	assert.Equal(t, []string{"dp"}, n.Values("TR"))
}

func TestGameInfo(t *testing.T) {
	t.Parallel()

	game, err := Parse("(;SZ[13]HA[2]KM[0.5]RU[Japanese])")
	require.NoError(t, err)

	info, err := game.Root.Nodes[0].GameInfo()
	require.NoError(t, err)
	assert.Equal(t, GameInfo{BoardSize: 13, Handicap: 2, Komi: 0.5, HasKomi: true, Rules: "Japanese"}, info)

	bad := NewNode()
	bad.Set("SZ", "big")
	_, err = bad.GameInfo()
	assert.ErrorIs(t, err, errs.ErrMalformedRecord)
}
