package journal

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// WriteTrace renders entries as an aligned table.
func WriteTrace(w io.Writer, entries []Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CASE\tENGINE\tMETHOD\tEXIT\tDURATION\tREQUEST\tERROR")
	for _, e := range entries {
		method := e.Method
		if method == "" {
			method = "-"
		}
		hash := e.RequestHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			e.Case, e.Engine, method, e.ExitCode,
			(time.Duration(e.DurationUS) * time.Microsecond).String(),
			hash, oneLine(e.Error))
	}
	return tw.Flush()
}

func oneLine(s string) string {
	if first, _, found := strings.Cut(s, "\n"); found {
		return first + " ..."
	}
	return s
}
