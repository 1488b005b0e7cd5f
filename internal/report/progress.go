package report

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
)

// Progress renders a single tracker for a review run. Totals are estimates
// and may grow while the run discovers mistakes worth exploring.
type Progress struct {
	pw      progress.Writer
	tracker *progress.Tracker
}

func NewProgress(out io.Writer, message string) *Progress {
	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetUpdateFrequency(200 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Percentage = true

	tracker := &progress.Tracker{Message: message, Total: 1, Units: progress.UnitsDefault}
	pw.AppendTracker(tracker)
	go pw.Render()

	return &Progress{pw: pw, tracker: tracker}
}

func (p *Progress) Update(done, total int64) {
	if total < done {
		total = done
	}
	p.tracker.UpdateTotal(total)
	p.tracker.SetValue(done)
}

func (p *Progress) Value() int64 {
	return p.tracker.Value()
}

// Finish marks the run done and waits for the final frame.
func (p *Progress) Finish() {
	p.tracker.MarkAsDone()
	p.pw.Stop()
	for p.pw.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}
