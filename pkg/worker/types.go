package worker

import "time"

// Status represents the current state of the slot
type Status string

const (
	// StatusIdle indicates the slot is ready to accept a task
	StatusIdle Status = "idle"

	// StatusProcessing indicates a task is running
	StatusProcessing Status = "processing"

	// StatusShuttingDown indicates the slot is cancelling its task before
	// stopping
	StatusShuttingDown Status = "shutting_down"

	// StatusStopped indicates the slot has been stopped
	StatusStopped Status = "stopped"
)

// Stats provides runtime statistics about the slot
type Stats struct {
	// CurrentTask is the ID of the running task, empty when idle
	CurrentTask string

	// CompletedTasks is the number of tasks that returned without error
	CompletedTasks int

	// FailedTasks is the number of tasks that returned an error or panicked
	FailedTasks int

	// Status is the current state of the slot
	Status Status

	// Uptime is how long the slot has existed
	Uptime time.Duration
}
