package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

type renderer interface {
	render(Status, string, Statistics) string
}

type barRenderer struct {
	width     int
	palette   palette
	showStats bool
}

func (r *barRenderer) render(status Status, message string, stats Statistics) string {
	var output strings.Builder

	barWidth := r.width / 3
	if barWidth < 10 {
		barWidth = 10
	}
	if barWidth > 40 {
		barWidth = 40
	}

	var progress float64
	if status.Total > 0 {
		progress = float64(status.Current) / float64(status.Total)
	}
	if progress > 1 {
		progress = 1
	}

	filled := int(float64(barWidth) * progress)
	if filled > barWidth {
		filled = barWidth
	}

	bar := strings.Repeat("=", filled)
	if filled < barWidth {
		bar += ">" + strings.Repeat(" ", barWidth-filled-1)
	}

	output.WriteString("[")
	output.WriteString(r.palette.bar.Sprint(bar))
	output.WriteString("]")
	output.WriteString(fmt.Sprintf(" %3.0f%% %d/%d", progress*100, status.Current, status.Total))
	used := barWidth + 2 + 5 + len(fmt.Sprintf(" %d/%d", status.Current, status.Total))

	if r.showStats {
		s := statsLine(status, stats)
		output.WriteString(s)
		used += len(s)
	}

	output.WriteString(item(status.CurrentItem, r.width-used))
	return output.String()
}

type spinnerRenderer struct {
	width     int
	palette   palette
	showStats bool
	frame     int
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (r *spinnerRenderer) render(status Status, message string, stats Statistics) string {
	r.frame = (r.frame + 1) % len(spinnerFrames)

	var output strings.Builder
	head := fmt.Sprintf("%d/%d", status.Current, status.Total)
	output.WriteString(r.palette.spinner.Sprint(spinnerFrames[r.frame]))
	output.WriteString(" ")
	output.WriteString(head)
	used := 2 + len(head)

	if r.showStats {
		s := statsLine(status, stats)
		output.WriteString(s)
		used += len(s)
	}

	output.WriteString(item(status.CurrentItem, r.width-used))
	return output.String()
}

type simpleRenderer struct {
	width     int
	palette   palette
	showStats bool
}

func (r *simpleRenderer) render(status Status, message string, stats Statistics) string {
	var output strings.Builder

	head := fmt.Sprintf("%d/%d (%.0f%%)", status.Current, status.Total, stats.ProgressPercentage)
	if message != "" {
		head = message + " " + head
	}
	output.WriteString(head)
	used := runewidth.StringWidth(head)

	if r.showStats {
		s := statsLine(status, stats)
		output.WriteString(s)
		used += len(s)
	}

	output.WriteString(item(status.CurrentItem, r.width-used))
	return output.String()
}

// Helper functions

func statsLine(status Status, stats Statistics) string {
	return fmt.Sprintf(" | ok %d skip %d err %d | %.1f/s | ETA %s",
		status.Processed,
		status.Skipped,
		status.Errored,
		stats.ProcessingSpeed,
		formatDuration(stats.RemainingTime))
}

// item renders name after a separator, truncated to room display cells.
// File names may contain wide characters so widths are counted in cells.
func item(name string, room int) string {
	if name == "" {
		return ""
	}
	room -= 2
	if room < 8 {
		room = 8
	}
	return "  " + runewidth.Truncate(name, room, "…")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds",
			int(d.Minutes()),
			int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm%ds",
		int(d.Hours()),
		int(d.Minutes())%60,
		int(d.Seconds())%60)
}
