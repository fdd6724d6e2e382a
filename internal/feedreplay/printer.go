package feedreplay

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// PrintSummary writes a colored replay summary to w.
func PrintSummary(w io.Writer, s *Stats) {
	cyan.Fprintf(w, "Replayed %d messages in %s\n", s.Sent, s.Duration.Round(time.Millisecond))
	green.Fprintf(w, "  accepted:     %d\n", s.Accepted)
	fmt.Fprintf(w, "  duplicate:    %d\n", s.Duplicate)
	if s.Backpressure > 0 {
		yellow.Fprintf(w, "  backpressure: %d\n", s.Backpressure)
	}
	if s.Skipped > 0 {
		yellow.Fprintf(w, "  skipped:      %d\n", s.Skipped)
	}
	if s.Failed > 0 {
		red.Fprintf(w, "  failed:       %d\n", s.Failed)
	}
}

// PrintGenerated reports a generated feed file.
func PrintGenerated(w io.Writer, path string, records int) {
	green.Fprintf(w, "✓ wrote %d messages to %s\n", records, path)
}
