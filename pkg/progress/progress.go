/*
Package progress draws a single refreshing status line for an organize job
on the terminal.

The line is rendered in one of three styles (bar, spinner, simple) and is
redrawn on a ticker and on every Update. Lines printed through Println
appear above it, so per-file log lines and the progress line can share a
terminal. A Tracker turns a job event stream into Update, Println, Complete
and Error calls:

	p := progress.New(progress.Config{Style: progress.StyleBar}, log)
	p.Start("Organizing ~/Downloads")
	t := progress.NewTracker(p)
	for ev := range h.Events() {
		t.Follow(ev)
	}
	p.Stop()
*/
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sonemaro/sortitor/pkg/logger"
	"golang.org/x/term"
)

// fder is implemented by *os.File.
type fder interface {
	Fd() uintptr
}

type progress struct {
	config Config
	log    logger.Logger
	writer io.Writer

	// State
	status    Status
	startTime time.Time
	message   string
	running   bool

	// Rendering
	renderer renderer
	palette  palette
	width    int

	// Synchronization
	mu       sync.Mutex
	stopChan chan struct{}
	doneChan chan struct{}
}

// New creates a new progress visualization instance
func New(config Config, log logger.Logger) Progress {
	if config.RefreshRate == 0 {
		config.RefreshRate = 100 * time.Millisecond
	}
	if config.Style == "" {
		config.Style = StyleBar
	}
	writer := config.Writer
	if writer == nil {
		writer = os.Stderr
	}

	p := &progress{
		config:  config,
		log:     log,
		writer:  writer,
		palette: newPalette(config.NoColor),
	}

	// Auto-detect terminal width if not specified
	if p.config.Width == 0 {
		p.width = p.getTerminalWidth()
	} else {
		p.width = p.config.Width
	}
	p.renderer = p.createRenderer()

	p.log.WithFields(logger.Fields{
		"style":     p.config.Style,
		"width":     p.width,
		"showStats": p.config.ShowStats,
		"noColor":   p.config.NoColor,
		"refresh":   p.config.RefreshRate,
	}).Debug("Created new progress instance")

	return p
}

func (p *progress) Start(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.log.WithFields(logger.Fields{
		"message": message,
	}).Debug("Starting progress")

	p.message = message
	p.startTime = time.Now()
	p.status = Status{StartTime: p.startTime}
	p.running = true
	p.stopChan = make(chan struct{})
	p.doneChan = make(chan struct{})

	if message != "" {
		fmt.Fprintln(p.writer, message)
	}
	p.render()

	go p.renderLoop(p.stopChan, p.doneChan)
}

func (p *progress) Update(status Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.WithFields(logger.Fields{
		"current": status.Current,
		"total":   status.Total,
		"item":    status.CurrentItem,
	}).Trace("Updating progress")

	if status.StartTime.IsZero() {
		status.StartTime = p.startTime
	}
	p.status = status

	if p.running {
		p.render()
	}
}

func (p *progress) Println(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.clearLine()
	}
	fmt.Fprintln(p.writer, line)
	if p.running {
		p.render()
	}
}

func (p *progress) Complete(message string) {
	p.stopLoop()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.WithFields(logger.Fields{
		"message": message,
	}).Debug("Completing progress")

	if p.status.Total > 0 {
		p.status.Current = p.status.Total
	}
	p.finish(p.palette.success.Sprint(message))
}

func (p *progress) Error(message string) {
	p.stopLoop()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.WithFields(logger.Fields{
		"message": message,
	}).Debug("Error in progress")

	p.finish(p.palette.failure.Sprint(message))
}

func (p *progress) Stop() {
	p.log.Debug("Stopping progress")
	p.stopLoop()
}

func (p *progress) SetStyle(style Style) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.WithFields(logger.Fields{
		"style": style,
	}).Debug("Setting progress style")

	p.config.Style = style
	p.renderer = p.createRenderer()
}

func (p *progress) EnableStats(enable bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.WithFields(logger.Fields{
		"enabled": enable,
	}).Debug("Toggling statistics display")

	p.config.ShowStats = enable
	p.renderer = p.createRenderer()
}

func (p *progress) IsSupportedTerminal() bool {
	f, ok := p.writer.(fder)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Internal methods

// stopLoop ends the render loop and waits for it. It must be called
// without holding mu.
func (p *progress) stopLoop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stop, done := p.stopChan, p.doneChan
	p.mu.Unlock()

	close(stop)
	<-done
}

func (p *progress) renderLoop(stop <-chan struct{}, done chan<- struct{}) {
	ticker := time.NewTicker(p.config.RefreshRate)
	defer ticker.Stop()
	defer close(done)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.running {
				p.render()
			}
			p.mu.Unlock()
		}
	}
}

// finish draws the last state of the line, ends it and prints message.
func (p *progress) finish(message string) {
	if p.config.HideAfterComplete {
		p.clearLine()
	} else {
		p.render()
		fmt.Fprintln(p.writer)
	}
	if message != "" {
		fmt.Fprintln(p.writer, message)
	}
}

func (p *progress) render() {
	output := p.renderer.render(p.status, p.message, p.calculateStats())
	p.clearLine()
	fmt.Fprint(p.writer, output)
}

func (p *progress) clearLine() {
	if p.IsSupportedTerminal() {
		fmt.Fprint(p.writer, "\r\033[K") // Clear line
	} else {
		fmt.Fprint(p.writer, "\r") // Just return to start
	}
}

func (p *progress) getTerminalWidth() int {
	if f, ok := p.writer.(fder); ok && p.IsSupportedTerminal() {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}

	return 80 // Default width
}

func (p *progress) calculateStats() Statistics {
	now := time.Now()
	start := p.status.StartTime
	if start.IsZero() {
		start = p.startTime
	}
	elapsed := now.Sub(start)

	stats := Statistics{
		StartTime:   start,
		ElapsedTime: elapsed,
	}

	if p.status.Total > 0 {
		current := p.status.Current
		if current > p.status.Total {
			current = p.status.Total
		}
		stats.ProgressPercentage = float64(current) / float64(p.status.Total) * 100

		if current > 0 && elapsed > 0 {
			stats.ProcessingSpeed = float64(current) / elapsed.Seconds()
			remaining := p.status.Total - current
			stats.RemainingTime = time.Duration(float64(remaining) / stats.ProcessingSpeed * float64(time.Second))
			stats.EstimatedEndTime = now.Add(stats.RemainingTime)
		}
	}

	return stats
}

func (p *progress) createRenderer() renderer {
	switch p.config.Style {
	case StyleSpinner:
		return &spinnerRenderer{
			width:     p.width,
			palette:   p.palette,
			showStats: p.config.ShowStats,
		}
	case StyleSimple:
		return &simpleRenderer{
			width:     p.width,
			palette:   p.palette,
			showStats: p.config.ShowStats,
		}
	default:
		return &barRenderer{
			width:     p.width,
			palette:   p.palette,
			showStats: p.config.ShowStats,
		}
	}
}

// palette holds the colours used by the renderers.
type palette struct {
	bar     *color.Color
	spinner *color.Color
	success *color.Color
	failure *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		bar:     color.New(color.FgGreen),
		spinner: color.New(color.FgCyan),
		success: color.New(color.FgGreen, color.Bold),
		failure: color.New(color.FgRed, color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.bar, p.spinner, p.success, p.failure} {
			c.DisableColor()
		}
	}
	return p
}
