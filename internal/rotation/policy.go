package rotation

import (
	"sort"
	"time"
)

// Policy holds the per-bucket keep counts for one rotation run. A bucket
// absent from Keep behaves as keep = 0: every managed snapshot in it is
// eligible for deletion and no new one is taken.
type Policy struct {
	Keep      map[Bucket]int
	WeekStart time.Weekday
}

// KeepCount returns the configured keep count for a bucket, 0 if unset.
func (p Policy) KeepCount(bucket Bucket) int {
	return p.Keep[bucket]
}

// ManagedSnapshot is a snapshot whose name decoded to a tag, scoped to the
// guest currently being rotated.
type ManagedSnapshot struct {
	Name string
	Tag  SnapshotTag
}

// PrunePlan is the evaluator's decision for one bucket: snapshots to
// retain and snapshots to delete, the latter ordered oldest first.
type PrunePlan struct {
	Keep   []ManagedSnapshot
	Delete []ManagedSnapshot
}

// Plan selects the snapshots to prune from one bucket. Snapshots are
// ranked newest first; everything past the keep count is deleted. Equal
// timestamps are ranked by name so that repeated runs over identical input
// always produce the same plan.
func (p Policy) Plan(bucket Bucket, snapshots []ManagedSnapshot) PrunePlan {
	ranked := make([]ManagedSnapshot, len(snapshots))
	copy(ranked, snapshots)

	sort.SliceStable(ranked, func(i, j int) bool {
		ti, tj := ranked[i].Tag.CreatedAt, ranked[j].Tag.CreatedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return ranked[i].Name > ranked[j].Name
	})

	keep := p.KeepCount(bucket)
	if keep < 0 {
		keep = 0
	}
	if keep >= len(ranked) {
		return PrunePlan{Keep: ranked}
	}

	plan := PrunePlan{
		Keep:   ranked[:keep],
		Delete: make([]ManagedSnapshot, len(ranked)-keep),
	}

	// Deletions are issued oldest first.
	doomed := ranked[keep:]
	for i := range doomed {
		plan.Delete[i] = doomed[len(doomed)-1-i]
	}
	return plan
}
