package simulate

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/okian/randommarket/internal/domain/schedule"
)

// PrintSchedule writes the full tick plan of a spin over length slots that
// lands on winner.
func PrintSchedule(w io.Writer, length, winner int, p schedule.Params) error {
	ticks, err := schedule.Plan(length, winner, p)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "step\tindex\tdelay\telapsed\t")
	var elapsed time.Duration
	for _, t := range ticks {
		elapsed += t.Delay
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t\n", t.Step, t.Index, t.Delay, elapsed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "\n%d ticks, min steps %d, total %s\n",
		len(ticks), length*p.MinPasses, schedule.TotalDuration(ticks))
	return err
}
