package proxmox

import (
	"context"
	"log/slog"
)

const dryRunUPID = "UPID:dry-run"

// DryRun wraps a client so that read operations pass through while
// snapshot creation and deletion are only logged. WaitTask resolves the
// synthetic tasks immediately.
type DryRun struct {
	Inner interface {
		ListGuests(ctx context.Context) ([]GuestRef, error)
		ListSnapshots(ctx context.Context, guest GuestRef) ([]SnapshotInfo, error)
		CreateSnapshot(ctx context.Context, guest GuestRef, name, description string) (TaskRef, error)
		DeleteSnapshot(ctx context.Context, guest GuestRef, name string) (TaskRef, error)
		WaitTask(ctx context.Context, task TaskRef) error
	}
	Logger *slog.Logger
}

func (d *DryRun) ListGuests(ctx context.Context) ([]GuestRef, error) {
	return d.Inner.ListGuests(ctx)
}

func (d *DryRun) ListSnapshots(ctx context.Context, guest GuestRef) ([]SnapshotInfo, error) {
	return d.Inner.ListSnapshots(ctx, guest)
}

func (d *DryRun) CreateSnapshot(ctx context.Context, guest GuestRef, name, description string) (TaskRef, error) {
	d.Logger.Info("dry-run: would create snapshot", "guest", guest.String(), "snapshot", name)
	return TaskRef{Node: guest.Node, UPID: dryRunUPID}, nil
}

func (d *DryRun) DeleteSnapshot(ctx context.Context, guest GuestRef, name string) (TaskRef, error) {
	d.Logger.Info("dry-run: would delete snapshot", "guest", guest.String(), "snapshot", name)
	return TaskRef{Node: guest.Node, UPID: dryRunUPID}, nil
}

func (d *DryRun) WaitTask(ctx context.Context, task TaskRef) error {
	if task.UPID == dryRunUPID {
		return nil
	}
	return d.Inner.WaitTask(ctx, task)
}
