package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/fpang/proshot/internal/styles"
)

// FormatDurationShort formats a duration in a short format (M:SS or H:MM:SS).
func FormatDurationShort(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// PrintStyles writes the style catalog as an aligned, colored list.
func PrintStyles(w io.Writer, list []styles.Style) {
	idColor := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	width := 0
	for _, s := range list {
		width = max(width, len(s.ID))
	}
	for _, s := range list {
		idColor.Fprintf(w, "  %-*s", width, s.ID)
		fmt.Fprintf(w, "  %s\n", s.Name)
		dim.Fprintf(w, "  %-*s  %s\n", width, "", s.Description)
	}
}

// PrintSuccess reports a saved headshot.
func PrintSuccess(w io.Writer, path string, elapsed time.Duration) {
	color.New(color.FgGreen, color.Bold).Fprint(w, "Saved ")
	fmt.Fprintf(w, "%s ", path)
	dim := color.New(color.FgHiBlack)
	dim.Fprintf(w, "(%s)\n", FormatDurationShort(elapsed))
}
