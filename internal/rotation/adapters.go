package rotation

import (
	"context"

	"github.com/virtkit/snapwheel/internal/proxmox"
)

// Hypervisor is the slice of the hypervisor API the rotation core needs.
// All methods are blocking remote operations; callers bound them with a
// context deadline. Snapshot create/delete return a task reference that
// must be polled to completion via WaitTask.
type Hypervisor interface {
	ListGuests(ctx context.Context) ([]proxmox.GuestRef, error)
	ListSnapshots(ctx context.Context, guest proxmox.GuestRef) ([]proxmox.SnapshotInfo, error)
	CreateSnapshot(ctx context.Context, guest proxmox.GuestRef, name, description string) (proxmox.TaskRef, error)
	DeleteSnapshot(ctx context.Context, guest proxmox.GuestRef, name string) (proxmox.TaskRef, error)
	WaitTask(ctx context.Context, task proxmox.TaskRef) error
}
