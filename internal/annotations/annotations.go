// Package annotations renders engine findings as record comments and marks.
package annotations

import (
	"fmt"
	"strings"

	"sgf_review/internal/domain"
)

const labelAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

type Formatter struct {
	BoardSize  int
	EngineName string
}

func NewFormatter(boardSize int, engineName string) *Formatter {
	if engineName == "" {
		engineName = "Leela"
	}
	return &Formatter{BoardSize: boardSize, EngineName: engineName}
}

// Pos prints a record move the way players read it, e.g. "Q16".
func (f *Formatter) Pos(m domain.Move) string {
	coord, err := domain.RecordToEngine(f.BoardSize, m)
	if err != nil {
		return string(m)
	}
	return strings.ToUpper(coord)
}

// BlackWinrate converts a side-to-move win-rate into black's chances.
func BlackWinrate(wr float64, toMove domain.Color) float64 {
	if toMove == domain.White {
		return 1 - wr
	}
	return wr
}

// Winrate says how black stands and whether the engine wanted a different
// next move than next.
func (f *Formatter) Winrate(stats domain.PositionStats, candidates []domain.CandidateMove, toMove domain.Color, next *domain.Move) domain.Annotation {
	var b strings.Builder
	if stats.Winrate != nil {
		fmt.Fprintf(&b, "Overall black win%%: %.2f%%\n", BlackWinrate(*stats.Winrate, toMove)*100)
	} else {
		fmt.Fprintf(&b, "Overall black win%%: not computed (%s still in opening book)\n", f.EngineName)
	}

	if len(candidates) > 0 && (next == nil || candidates[0].Pos != *next) {
		fmt.Fprintf(&b, "%s's preferred next move: %s\n", f.EngineName, f.Pos(candidates[0].Pos))
	} else {
		b.WriteString("\n")
	}
	return domain.Annotation{Comment: b.String()}
}

// Delta grades a move by how much its transformed win-rate dropped.
// Both arguments are zero or negative.
func (f *Formatter) Delta(delta, transDelta float64, move domain.Move) domain.Annotation {
	var (
		b      strings.Builder
		labels []string
	)
	banner := "=================================\n"
	mark := func() {
		if !move.IsPass() {
			labels = append(labels, string(move)+":?")
		}
	}

	switch {
	case transDelta <= -0.2:
		b.WriteString(banner)
		fmt.Fprintf(&b, "%s thinks %s is a big mistake!\n", f.EngineName, f.Pos(move))
		fmt.Fprintf(&b, "Winning percentage drops by %.2f%%!\n", -delta*100)
		b.WriteString(banner)
		mark()
	case transDelta <= -0.1:
		b.WriteString(banner)
		fmt.Fprintf(&b, "%s thinks %s is a mistake!\n", f.EngineName, f.Pos(move))
		fmt.Fprintf(&b, "Winning percentage drops by %.2f%%\n", -delta*100)
		b.WriteString(banner)
		mark()
	case transDelta <= -0.05:
		b.WriteString(banner)
		fmt.Fprintf(&b, "%s thinks %s is not the best choice.\n", f.EngineName, f.Pos(move))
		fmt.Fprintf(&b, "Winning percentage drops by %.2f%%\n", -delta*100)
		b.WriteString(banner)
		mark()
	case transDelta <= -0.025:
		b.WriteString(banner)
		fmt.Fprintf(&b, "%s slightly dislikes %s.\n", f.EngineName, f.Pos(move))
		b.WriteString(banner)
	}

	b.WriteString("\n")
	return domain.Annotation{Comment: b.String(), Labels: labels}
}

// Analysis lists the candidates with letter labels. A played move the
// engine did not suggest gets a triangle.
func (f *Formatter) Analysis(stats domain.PositionStats, candidates []domain.CandidateMove, played *domain.Move) domain.Annotation {
	var b strings.Builder
	b.WriteString("==========================\n")
	if stats.IsBook() {
		positions := 0
		if stats.Positions != nil {
			positions = *stats.Positions
		}
		fmt.Fprintf(&b, "Considered %d/%d bookmoves\n", *stats.BookMoves, positions)
	} else {
		fmt.Fprintf(&b, "Visited %d nodes\n\n", stats.VisitCount())
		for i, c := range candidates {
			if i >= len(labelAlphabet) {
				break
			}
			fmt.Fprintf(&b, "%c -> Win%%: %.2f%% (%d visits) \n", labelAlphabet[i], c.Winrate*100, c.Visits)
		}
	}

	a := domain.Annotation{Comment: b.String()}
	suggested := false
	for i, c := range candidates {
		if played != nil && c.Pos == *played {
			suggested = true
		}
		if i < len(labelAlphabet) && !c.Pos.IsPass() {
			a.Labels = append(a.Labels, fmt.Sprintf("%s:%c", c.Pos, labelAlphabet[i]))
		}
	}
	if played != nil && !played.IsPass() && !suggested {
		a.Triangles = []domain.Move{*played}
	}
	return a
}
