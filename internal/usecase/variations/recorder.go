package variations

import (
	"errors"
	"math"

	"sgf_review/internal/domain"
)

// RecordCursor is the slice of a game-record cursor the recorder needs.
type RecordCursor interface {
	ChildMoves() []domain.Play
	Next(i int) error
	Previous() error
	AppendMove(p domain.Play)
	Annotate(a domain.Annotation)
}

type Formatter interface {
	Winrate(stats domain.PositionStats, candidates []domain.CandidateMove, toMove domain.Color, next *domain.Move) domain.Annotation
	Analysis(stats domain.PositionStats, candidates []domain.CandidateMove, played *domain.Move) domain.Annotation
}

// Recorder writes a variation tree into the record under the cursor. The
// cursor ends where it started.
type Recorder struct {
	cur       RecordCursor
	format    Formatter
	numToShow int
}

func NewRecorder(cur RecordCursor, format Formatter, numToShow int) *Recorder {
	return &Recorder{cur: cur, format: format, numToShow: numToShow}
}

func (r *Recorder) Record(root *Node) error {
	if root == nil {
		return nil
	}
	return r.record(root)
}

func (r *Recorder) record(node *Node) error {
	if !node.IsRoot {
		r.cur.Annotate(r.format.Winrate(node.Stats, node.Candidates, node.Color, nil))

		var shown []domain.CandidateMove
		for i, child := range node.Children {
			if child != nil && (i == 0 || child.Explored) {
				shown = append(shown, node.Candidates[i])
			}
		}
		r.cur.Annotate(r.format.Analysis(node.Stats, shown, nil))
	}

	for i, child := range node.Children {
		if child == nil {
			continue
		}
		if child.Explored {
			err := r.within(node.Color, child.History[len(child.History)-1], func() error {
				return r.record(child)
			})
			if err != nil {
				return err
			}
			continue
		}
		// only the principal line gets its expected continuation
		if i == 0 {
			if err := r.showLine(node.Color, node.Candidates[i].PV); err != nil {
				return err
			}
		}
	}
	return nil
}

// within moves into the child for color/move, runs fn and always comes back.
func (r *Recorder) within(color domain.Color, move domain.Move, fn func() error) (err error) {
	if err := r.advance(color, move); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, r.cur.Previous())
	}()
	return fn()
}

func (r *Recorder) showLine(color domain.Color, pv []domain.Move) (err error) {
	steps := 0
	defer func() {
		for ; steps > 0; steps-- {
			err = errors.Join(err, r.cur.Previous())
		}
	}()

	for _, m := range pv[:r.shownLength(len(pv))] {
		if err := r.advance(color, m); err != nil {
			return err
		}
		steps++
		color = color.Other()
	}
	return nil
}

func (r *Recorder) shownLength(pvLen int) int {
	if r.numToShow > 0 {
		return min(r.numToShow, pvLen)
	}
	n := math.Max(1, float64(pvLen)*2/3-1)
	return int(math.Min(float64(pvLen), n))
}

// advance enters the existing child with this move, or creates it.
func (r *Recorder) advance(color domain.Color, move domain.Move) error {
	found := -1
	children := r.cur.ChildMoves()
	for j, p := range children {
		if p.Color == color && p.Move == move {
			found = j
		}
	}
	if found < 0 {
		r.cur.AppendMove(domain.Play{Color: color, Move: move})
		found = len(children)
	}
	return r.cur.Next(found)
}
