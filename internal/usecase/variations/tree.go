package variations

import (
	"container/heap"

	"sgf_review/internal/domain"
)

// Node is one position in the variation tree. History holds the moves
// from the tree root; Color is the side to move here.
type Node struct {
	History    []domain.Move
	Color      domain.Color
	Prob       float64
	Explored   bool
	IsRoot     bool
	Stats      domain.PositionStats
	Candidates []domain.CandidateMove
	// Children line up with Candidates; a nil slot is the move actually
	// played in the game, which is never grown into a variation.
	Children []*Node

	seq   int
	index int
}

// Walk visits every node in pre-order, explored or not. Nil child slots
// are skipped.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, child := range n.Children {
		if child != nil {
			child.Walk(fn)
		}
	}
}

// leafQueue pops the most probable unexplored node first; ties go to the
// node created earliest.
type leafQueue []*Node

func (q leafQueue) Len() int { return len(q) }

func (q leafQueue) Less(i, j int) bool {
	if q[i].Prob != q[j].Prob {
		return q[i].Prob > q[j].Prob
	}
	return q[i].seq < q[j].seq
}

func (q leafQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *leafQueue) Push(x any) {
	n := x.(*Node)
	n.index = len(*q)
	*q = append(*q, n)
}

func (q *leafQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	old[len(old)-1] = nil
	n.index = -1
	*q = old[:len(old)-1]
	return n
}

var _ heap.Interface = (*leafQueue)(nil)
