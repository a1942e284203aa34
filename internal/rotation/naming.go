package rotation

import (
	"fmt"
	"strings"
	"time"
)

// Bucket is one retention tier.
type Bucket string

const (
	Hourly  Bucket = "hourly"
	Daily   Bucket = "daily"
	Weekly  Bucket = "weekly"
	Monthly Bucket = "monthly"
)

// Buckets lists all tiers in rotation order, shortest period first.
var Buckets = []Bucket{Hourly, Daily, Weekly, Monthly}

const (
	namePrefix = "auto"
	stampBase  = "20060102-150405"
)

// SnapshotTag is the structured form of a managed snapshot name.
type SnapshotTag struct {
	Bucket    Bucket
	CreatedAt time.Time
}

// EncodeName produces the snapshot name for a bucket and creation time,
// e.g. "auto-hourly-20260826-140502". The timestamp is rendered in UTC at
// second precision so that names sort chronologically within a bucket and
// survive a decode round trip.
func EncodeName(bucket Bucket, t time.Time) string {
	return fmt.Sprintf("%s-%s-%s", namePrefix, bucket, t.UTC().Format(stampBase))
}

// DecodeName recovers the tag embedded in a managed snapshot name. The
// second return value is false for any name this tool did not produce:
// user-created snapshots, truncated names, unknown buckets, or malformed
// timestamps. It never fails for any input string.
func DecodeName(name string) (SnapshotTag, bool) {
	parts := strings.SplitN(name, "-", 3)
	if len(parts) != 3 || parts[0] != namePrefix {
		return SnapshotTag{}, false
	}

	bucket := Bucket(parts[1])
	switch bucket {
	case Hourly, Daily, Weekly, Monthly:
	default:
		return SnapshotTag{}, false
	}

	createdAt, err := time.Parse(stampBase, parts[2])
	if err != nil {
		return SnapshotTag{}, false
	}

	return SnapshotTag{Bucket: bucket, CreatedAt: createdAt}, true
}
