package proxmox

import (
	"fmt"
	"time"
)

// GuestKind distinguishes the two guest flavors Proxmox exposes. The value
// doubles as the API path segment for guest-scoped endpoints.
type GuestKind string

const (
	GuestVM        GuestKind = "qemu"
	GuestContainer GuestKind = "lxc"
)

// GuestRef identifies one guest in the cluster inventory.
type GuestRef struct {
	ID       int
	Node     string
	Kind     GuestKind
	Name     string
	Tags     []string
	Template bool
}

func (g GuestRef) String() string {
	return fmt.Sprintf("%s/%d", g.Node, g.ID)
}

// SnapshotInfo describes one existing snapshot of a guest.
type SnapshotInfo struct {
	Name        string
	Description string
	CreatedAt   time.Time
}

// TaskRef points at an asynchronous hypervisor-side task (a UPID in
// Proxmox terms). Tasks are polled to completion via WaitTask.
type TaskRef struct {
	Node string
	UPID string
}

// TaskError reports a task that finished with a non-OK exit status.
type TaskError struct {
	UPID       string
	ExitStatus string
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed: %s", e.UPID, e.ExitStatus)
}
