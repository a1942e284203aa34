package rotation

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/virtkit/snapwheel/internal/proxmox"
)

// Outcome is the result of one guest's rotation pass. It is built once
// per guest per run and never mutated afterwards.
type Outcome struct {
	Guest   proxmox.GuestRef
	Created []string
	Deleted []string
	Errors  []*OpError
}

// Failed reports whether the guest had at least one error this pass.
func (o Outcome) Failed() bool { return len(o.Errors) > 0 }

// Report aggregates one rotation run.
type Report struct {
	RunID     uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Warnings  []SelectionWarning
	Outcomes  []Outcome
}

// NewReport starts a report for a run beginning now.
func NewReport(start time.Time) *Report {
	return &Report{RunID: uuid.New(), StartedAt: start}
}

// Add appends a guest outcome. Outcomes arrive in completion order; Sort
// normalizes them before rendering.
func (r *Report) Add(outcome Outcome) {
	r.Outcomes = append(r.Outcomes, outcome)
}

// Sort orders outcomes by guest ID for stable rendering.
func (r *Report) Sort() {
	sort.Slice(r.Outcomes, func(i, j int) bool {
		return r.Outcomes[i].Guest.ID < r.Outcomes[j].Guest.ID
	})
}

// CreatedCount returns the total snapshots created across all guests.
func (r *Report) CreatedCount() int {
	n := 0
	for _, o := range r.Outcomes {
		n += len(o.Created)
	}
	return n
}

// DeletedCount returns the total snapshots deleted across all guests.
func (r *Report) DeletedCount() int {
	n := 0
	for _, o := range r.Outcomes {
		n += len(o.Deleted)
	}
	return n
}

// FailedGuests returns the guests that had at least one error.
func (r *Report) FailedGuests() []proxmox.GuestRef {
	var failed []proxmox.GuestRef
	for _, o := range r.Outcomes {
		if o.Failed() {
			failed = append(failed, o.Guest)
		}
	}
	return failed
}

// OK reports whether every guest completed without errors. Selection
// warnings do not affect the success flag.
func (r *Report) OK() bool { return len(r.FailedGuests()) == 0 }

// ExitCode maps the report onto a process exit status.
func (r *Report) ExitCode() int {
	if r.OK() {
		return 0
	}
	return 1
}

// Log emits the run summary through the provided logger.
func (r *Report) Log(logger *slog.Logger) {
	logger = logger.With("run_id", r.RunID.String())

	for _, warning := range r.Warnings {
		logger.Warn("guest selection", "warning", warning.String())
	}
	for _, outcome := range r.Outcomes {
		guestLogger := logger.With("guest", outcome.Guest.String())
		for _, err := range outcome.Errors {
			guestLogger.Error("rotation operation failed", "error", err)
		}
		guestLogger.Info("guest rotated",
			"created", len(outcome.Created),
			"deleted", len(outcome.Deleted),
			"errors", len(outcome.Errors),
		)
	}

	logger.Info("rotation pass finished",
		"guests", len(r.Outcomes),
		"created", r.CreatedCount(),
		"deleted", r.DeletedCount(),
		"failed_guests", len(r.FailedGuests()),
		"duration", r.Duration,
		"ok", r.OK(),
	)
}
