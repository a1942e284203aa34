package rotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func managedAt(bucket Bucket, t time.Time) ManagedSnapshot {
	return ManagedSnapshot{
		Name: EncodeName(bucket, t),
		Tag:  SnapshotTag{Bucket: bucket, CreatedAt: t.UTC()},
	}
}

func snapshotNames(snapshots []ManagedSnapshot) []string {
	names := make([]string, len(snapshots))
	for i, snapshot := range snapshots {
		names[i] = snapshot.Name
	}
	return names
}

func TestPlanKeepsNewestDeletesOldestFirst(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	snapshots := []ManagedSnapshot{
		managedAt(Hourly, base.Add(-3*time.Hour)),
		managedAt(Hourly, base.Add(-1*time.Hour)),
		managedAt(Hourly, base),
		managedAt(Hourly, base.Add(-2*time.Hour)),
		managedAt(Hourly, base.Add(-4*time.Hour)),
	}

	plan := Policy{Keep: map[Bucket]int{Hourly: 2}}.Plan(Hourly, snapshots)

	assert.Equal(t, []string{
		EncodeName(Hourly, base),
		EncodeName(Hourly, base.Add(-1*time.Hour)),
	}, snapshotNames(plan.Keep))

	// Oldest first.
	assert.Equal(t, []string{
		EncodeName(Hourly, base.Add(-4*time.Hour)),
		EncodeName(Hourly, base.Add(-3*time.Hour)),
		EncodeName(Hourly, base.Add(-2*time.Hour)),
	}, snapshotNames(plan.Delete))
}

func TestPlanKeepZeroDeletesWholeBucket(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	snapshots := []ManagedSnapshot{
		managedAt(Daily, base.AddDate(0, 0, -1)),
		managedAt(Daily, base),
	}

	for _, policy := range []Policy{
		{Keep: map[Bucket]int{Daily: 0}},
		{Keep: map[Bucket]int{}}, // absent bucket behaves as keep = 0
		{},
	} {
		plan := policy.Plan(Daily, snapshots)
		assert.Empty(t, plan.Keep)
		assert.Len(t, plan.Delete, 2)
	}
}

func TestPlanKeepExceedingCountDeletesNothing(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	snapshots := []ManagedSnapshot{
		managedAt(Weekly, base.AddDate(0, 0, -7)),
		managedAt(Weekly, base),
	}

	plan := Policy{Keep: map[Bucket]int{Weekly: 4}}.Plan(Weekly, snapshots)
	assert.Len(t, plan.Keep, 2)
	assert.Empty(t, plan.Delete)
}

func TestPlanBreaksTimestampTiesByName(t *testing.T) {
	t.Parallel()

	stamp := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	tied := []ManagedSnapshot{
		{Name: "auto-hourly-b", Tag: SnapshotTag{Bucket: Hourly, CreatedAt: stamp}},
		{Name: "auto-hourly-a", Tag: SnapshotTag{Bucket: Hourly, CreatedAt: stamp}},
		{Name: "auto-hourly-c", Tag: SnapshotTag{Bucket: Hourly, CreatedAt: stamp}},
	}

	plan := Policy{Keep: map[Bucket]int{Hourly: 1}}.Plan(Hourly, tied)

	require.Len(t, plan.Keep, 1)
	assert.Equal(t, "auto-hourly-c", plan.Keep[0].Name)
	assert.Equal(t, []string{"auto-hourly-a", "auto-hourly-b"}, snapshotNames(plan.Delete))
}

func TestPlanIsDeterministic(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	snapshots := []ManagedSnapshot{
		managedAt(Hourly, base.Add(-2*time.Hour)),
		managedAt(Hourly, base),
		managedAt(Hourly, base.Add(-1*time.Hour)),
		{Name: "auto-hourly-tie-a", Tag: SnapshotTag{Bucket: Hourly, CreatedAt: base}},
		{Name: "auto-hourly-tie-b", Tag: SnapshotTag{Bucket: Hourly, CreatedAt: base}},
	}
	policy := Policy{Keep: map[Bucket]int{Hourly: 2}}

	first := policy.Plan(Hourly, snapshots)
	second := policy.Plan(Hourly, snapshots)

	assert.Equal(t, snapshotNames(first.Keep), snapshotNames(second.Keep))
	assert.Equal(t, snapshotNames(first.Delete), snapshotNames(second.Delete))
}

func TestPlanDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	snapshots := []ManagedSnapshot{
		managedAt(Hourly, base.Add(-1*time.Hour)),
		managedAt(Hourly, base),
	}
	before := snapshotNames(snapshots)

	Policy{Keep: map[Bucket]int{Hourly: 1}}.Plan(Hourly, snapshots)

	assert.Equal(t, before, snapshotNames(snapshots))
}
