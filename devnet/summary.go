package devnet

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/tarancss/zecdev/lib/table"
)

// PrintSummary writes a table with the outcome and elapsed time of each phase.
func PrintSummary(w io.Writer, rep Report) {
	rows := make([][]string, 0, len(rep.Results)+1)

	var total time.Duration

	for i, pr := range rep.Results {
		total += pr.Elapsed
		rows = append(rows, []string{
			strconv.Itoa(i + 1), pr.Phase.String(), pr.Outcome.Kind.String(), pr.Elapsed.Round(time.Millisecond).String(),
			pr.Outcome.Reason,
		})
	}

	rows = append(rows, []string{"", rep.Final.String(), "", total.Round(time.Millisecond).String(), ""})

	fmt.Fprintln(w, table.Render(
		[]string{"#", "Phase", "Outcome", "Elapsed", "Details"},
		rows,
		[]table.Alignment{table.AlignRight, table.AlignLeft, table.AlignLeft, table.AlignRight, table.AlignLeft},
	))
}
