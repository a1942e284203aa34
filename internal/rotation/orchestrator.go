package rotation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/virtkit/snapwheel/internal/logging"
	"github.com/virtkit/snapwheel/internal/proxmox"
)

const snapshotDescription = "created by snapwheel rotation"

// Orchestrator drives one end-to-end rotation pass: select guests, take
// due snapshots, prune per policy. Guests are processed independently;
// one guest failing never aborts the others.
type Orchestrator struct {
	Hypervisor Hypervisor
	Policy     Policy
	Targets    TargetSpec

	// Parallel bounds how many guests rotate concurrently; values < 1
	// mean sequential.
	Parallel int

	// TaskTimeout bounds each hypervisor operation including its task
	// wait. Zero means no deadline.
	TaskTimeout time.Duration

	// Now is the wall clock; nil means time.Now. Tests pin it.
	Now func() time.Time

	Logger *slog.Logger
}

// Run executes one rotation pass and returns its report. An error is
// returned only when the pass could not start at all (inventory listing
// failed); per-guest failures are carried inside the report.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	logger := logging.Ensure(o.Logger).With("component", "rotation")
	start := o.now()
	report := NewReport(start)

	opCtx, cancel := o.opContext(ctx)
	inventory, err := o.Hypervisor.ListGuests(opCtx)
	cancel()
	if err != nil {
		return nil, err
	}

	guests, warnings := SelectGuests(o.Targets, inventory)
	report.Warnings = warnings
	logger.Info("rotation pass starting",
		"run_id", report.RunID.String(),
		"inventory", len(inventory),
		"selected", len(guests),
	)

	parallel := o.Parallel
	if parallel < 1 {
		parallel = 1
	}

	feed := make(chan proxmox.GuestRef)
	results := make(chan Outcome, len(guests))

	var wg sync.WaitGroup
	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for guest := range feed {
				results <- o.rotateGuest(ctx, guest, logger)
			}
		}()
	}

	for _, guest := range guests {
		feed <- guest
	}
	close(feed)
	wg.Wait()
	close(results)

	for outcome := range results {
		report.Add(outcome)
	}
	report.Sort()
	report.Duration = o.now().Sub(start)
	return report, nil
}

// rotateGuest performs the strictly sequential per-guest steps: list,
// decode, create for each due bucket, then prune. Creation must settle
// (success or failure) before that bucket's deletions are considered.
func (o *Orchestrator) rotateGuest(ctx context.Context, guest proxmox.GuestRef, logger *slog.Logger) Outcome {
	outcome := Outcome{Guest: guest}
	logger = logger.With("guest", guest.String())

	infos, err := o.listSnapshots(ctx, guest)
	if err != nil {
		outcome.Errors = append(outcome.Errors, &OpError{Op: OpList, Err: err})
		return outcome
	}

	managed := make(map[Bucket][]ManagedSnapshot)
	newest := make(map[Bucket]time.Time)
	for _, info := range infos {
		tag, ok := DecodeName(info.Name)
		if !ok {
			// Unmanaged snapshot, never touched by rotation.
			continue
		}
		managed[tag.Bucket] = append(managed[tag.Bucket], ManagedSnapshot{Name: info.Name, Tag: tag})
		if tag.CreatedAt.After(newest[tag.Bucket]) {
			newest[tag.Bucket] = tag.CreatedAt
		}
	}

	now := o.now()
	for _, bucket := range DueBuckets(now, newest, o.Policy.WeekStart) {
		snapshots := managed[bucket]

		if o.Policy.KeepCount(bucket) >= 1 {
			name := EncodeName(bucket, now)
			if err := o.createSnapshot(ctx, guest, name); err != nil {
				outcome.Errors = append(outcome.Errors, &OpError{Op: OpCreate, Bucket: bucket, Snapshot: name, Err: err})
				logger.Error("snapshot creation failed, skipping pruning for bucket",
					"bucket", bucket, "snapshot", name, "error", err)
				continue
			}
			outcome.Created = append(outcome.Created, name)
			logger.Debug("snapshot created", "bucket", bucket, "snapshot", name)

			tag, _ := DecodeName(name)
			snapshots = append(snapshots, ManagedSnapshot{Name: name, Tag: tag})
		}

		for _, doomed := range o.Policy.Plan(bucket, snapshots).Delete {
			if err := o.deleteSnapshot(ctx, guest, doomed.Name); err != nil {
				outcome.Errors = append(outcome.Errors, &OpError{Op: OpDelete, Bucket: bucket, Snapshot: doomed.Name, Err: err})
				logger.Error("snapshot deletion failed", "bucket", bucket, "snapshot", doomed.Name, "error", err)
				continue
			}
			outcome.Deleted = append(outcome.Deleted, doomed.Name)
			logger.Debug("snapshot deleted", "bucket", bucket, "snapshot", doomed.Name)
		}
	}
	return outcome
}

func (o *Orchestrator) listSnapshots(ctx context.Context, guest proxmox.GuestRef) ([]proxmox.SnapshotInfo, error) {
	opCtx, cancel := o.opContext(ctx)
	defer cancel()
	return o.Hypervisor.ListSnapshots(opCtx, guest)
}

func (o *Orchestrator) createSnapshot(ctx context.Context, guest proxmox.GuestRef, name string) error {
	opCtx, cancel := o.opContext(ctx)
	defer cancel()
	task, err := o.Hypervisor.CreateSnapshot(opCtx, guest, name, snapshotDescription)
	if err != nil {
		return err
	}
	return o.Hypervisor.WaitTask(opCtx, task)
}

func (o *Orchestrator) deleteSnapshot(ctx context.Context, guest proxmox.GuestRef, name string) error {
	opCtx, cancel := o.opContext(ctx)
	defer cancel()
	task, err := o.Hypervisor.DeleteSnapshot(opCtx, guest, name)
	if err != nil {
		return err
	}
	return o.Hypervisor.WaitTask(opCtx, task)
}

// opContext bounds one hypervisor operation, task wait included. Timeout
// takes the failure path for that operation only; there are no retries
// within a run.
func (o *Orchestrator) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.TaskTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.TaskTimeout)
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
