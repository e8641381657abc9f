package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/roach88/autoverify/internal/ir"
)

// HistoryRow is one archived run.
type HistoryRow struct {
	ID           string
	Crate        string
	StartedAt    time.Time
	Counts       ir.Counts
	ManualCounts ir.Counts
}

// NoHistoryMessage is printed when the archive holds no runs.
const NoHistoryMessage = "No runs recorded."

// History writes archived runs as a table, newest first.
func History(w io.Writer, runs []HistoryRow) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, NoHistoryMessage)
		return err
	}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.ID,
			r.Crate,
			r.StartedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(r.Counts.Succeeded),
			strconv.Itoa(r.Counts.Failed),
			strconv.Itoa(r.Counts.Skipped),
			fmt.Sprintf("%d/%d", r.ManualCounts.Succeeded, r.ManualCounts.Total),
		}
	}
	_, err := fmt.Fprintln(w, render([]string{"Run", "Crate", "Started", "Verified", "Failed", "Skipped", "Manual"}, rows))
	return err
}
