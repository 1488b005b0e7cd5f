package report

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"sgf_review/internal/annotations"
	"sgf_review/internal/usecase/review"
)

const msgNoMistakes = "No mistakes above the threshold"

// Summary renders the mistakes found by a review as a table followed by a
// line about the explored variations.
func Summary(r *review.Report, format *annotations.Formatter) string {
	var parts []string

	if len(r.Mistakes) == 0 {
		parts = append(parts, msgNoMistakes)
	} else {
		tbl := table.NewWriter()
		tbl.SetStyle(table.StyleLight)
		tbl.Style().Options.SeparateRows = false
		tbl.AppendHeader(table.Row{"Move", "Color", "Played", "Win% drop", "Weighted drop"})
		for _, m := range r.Mistakes {
			tbl.AppendRow(table.Row{
				m.Move,
				m.Color,
				format.Pos(m.Played),
				fmt.Sprintf("%.2f%%", -m.Delta*100),
				fmt.Sprintf("%.3f", -m.TransDelta),
			})
		}
		tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d", len(r.Mistakes))})
		parts = append(parts, tbl.Render())
	}

	if len(r.Variations) > 0 {
		moves := make([]string, len(r.Variations))
		for i, n := range r.Variations {
			moves[i] = fmt.Sprint(n)
		}
		parts = append(parts, "Variations explored after moves: "+strings.Join(moves, ", "))
	}
	return strings.Join(parts, "\n\n")
}
