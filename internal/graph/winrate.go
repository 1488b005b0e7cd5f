package graph

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

type Point struct {
	Move    int
	Winrate float64
}

const (
	marginLeft   = 25.0
	marginTop    = 25.0
	plotWidth    = 240.0
	plotHeight   = 150.0
	gridStepMove = 10
)

// Path is where the graph for a record at sgfPath goes: next to it, with
// the extension swapped for _winrate.pdf.
func Path(sgfPath string) string {
	return strings.TrimSuffix(sgfPath, filepath.Ext(sgfPath)) + "_winrate.pdf"
}

// WriteWinrates draws black's win-rate per move as a line chart and writes
// it to output as a one page PDF.
func WriteWinrates(title string, points []Point, output string) error {
	pts := append([]Point(nil), points...)
	sort.Slice(pts, func(i, j int) bool { return pts[i].Move < pts[j].Move })

	lastMove := gridStepMove
	if len(pts) > 0 && pts[len(pts)-1].Move > lastMove {
		lastMove = pts[len(pts)-1].Move
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(marginLeft, marginTop-10, title)

	x := func(move int) float64 {
		return marginLeft + plotWidth*float64(move)/float64(lastMove)
	}
	y := func(wr float64) float64 {
		return marginTop + plotHeight*(1-wr)
	}

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	for pct := 0; pct <= 100; pct += 25 {
		yy := y(float64(pct) / 100)
		pdf.Line(marginLeft, yy, marginLeft+plotWidth, yy)
		pdf.Text(marginLeft-10, yy+1, fmt.Sprintf("%d%%", pct))
	}
	for m := 0; m <= lastMove; m += gridStepMove {
		xx := x(m)
		pdf.Line(xx, marginTop, xx, marginTop+plotHeight)
		pdf.Text(xx-2, marginTop+plotHeight+5, fmt.Sprintf("%d", m))
	}

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.3)
	pdf.Rect(marginLeft, marginTop, plotWidth, plotHeight, "D")
	pdf.SetDashPattern([]float64{1, 1}, 0)
	pdf.Line(marginLeft, y(0.5), marginLeft+plotWidth, y(0.5))
	pdf.SetDashPattern([]float64{}, 0)

	pdf.SetDrawColor(20, 60, 160)
	pdf.SetLineWidth(0.5)
	for i := 1; i < len(pts); i++ {
		pdf.Line(x(pts[i-1].Move), y(pts[i-1].Winrate), x(pts[i].Move), y(pts[i].Winrate))
	}

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(marginLeft+plotWidth/2-15, marginTop+plotHeight+12, "Move number")
	pdf.Text(marginLeft, marginTop+plotHeight+12, "Black win rate")

	return pdf.OutputFileAndClose(output)
}
