package progress

import (
	"io"
	"time"
)

// Style represents the type of progress visualization
type Style string

const (
	// StyleBar shows a progress bar with percentage
	StyleBar Style = "bar"

	// StyleSpinner shows a spinning indicator
	StyleSpinner Style = "spinner"

	// StyleSimple shows basic text progress
	StyleSimple Style = "simple"
)

// ParseStyle maps a configuration value to a Style. Empty means bar.
func ParseStyle(s string) (Style, bool) {
	switch Style(s) {
	case "", StyleBar:
		return StyleBar, true
	case StyleSpinner, StyleSimple:
		return Style(s), true
	}
	return "", false
}

// Config holds the configuration for progress visualization
type Config struct {
	// Style defines how progress should be displayed
	Style Style

	// Width is the maximum line width (0 = auto-detect)
	Width int

	// ShowStats appends per-outcome counts, speed and ETA
	ShowStats bool

	// NoColor disables colored output
	NoColor bool

	// RefreshRate defines how often the display updates
	RefreshRate time.Duration

	// HideAfterComplete removes the progress line after completion
	HideAfterComplete bool

	// Writer receives the rendered lines. Defaults to os.Stderr.
	Writer io.Writer
}

// Status represents the current progress state
type Status struct {
	// Current is the 1-based index of the last handled file
	Current int64

	// Total is the number of files the job will handle
	Total int64

	// CurrentItem is the name of the last handled file
	CurrentItem string

	// Per-outcome counts so far
	Processed int64
	Skipped   int64
	Errored   int64

	// StartTime of the operation
	StartTime time.Time
}

// Statistics provides derived progress information
type Statistics struct {
	StartTime        time.Time
	EstimatedEndTime time.Time
	ElapsedTime      time.Duration
	RemainingTime    time.Duration
	ProcessingSpeed  float64 // files per second

	ProgressPercentage float64
}

// Progress defines the interface for progress visualization
type Progress interface {
	// Start begins progress visualization with initial message
	Start(message string)

	// Update updates the progress status
	Update(status Status)

	// Println prints a line above the progress line
	Println(line string)

	// Complete marks the operation as successfully completed
	Complete(message string)

	// Error marks the operation as failed
	Error(message string)

	// Stop stops progress visualization
	Stop()

	// SetStyle changes the progress style during operation
	SetStyle(style Style)

	// EnableStats enables/disables statistics display
	EnableStats(enable bool)

	// IsSupportedTerminal checks if the writer is an interactive terminal
	IsSupportedTerminal() bool
}
