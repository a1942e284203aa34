package rotation

import "time"

// DueBuckets decides which buckets a rotation pass should act on, given
// the wall-clock time and the newest managed snapshot per bucket (zero
// time when a bucket has none yet).
//
// A bucket is due on the first invocation after its period boundary:
// midnight for daily, the configured week-start day for weekly, the 1st
// of the month for monthly. Hourly is due on every invocation. "First
// invocation after the boundary" is derived from snapshot timestamps, not
// scheduler state, so a missed cron slot self-corrects on the next run:
// a bucket whose newest snapshot predates the boundary is due, and a
// bucket with no snapshots at all is due unless some other managed
// snapshot proves a rotation pass already ran since the boundary.
func DueBuckets(now time.Time, newest map[Bucket]time.Time, weekStart time.Weekday) []Bucket {
	var lastPass time.Time
	for _, t := range newest {
		if t.After(lastPass) {
			lastPass = t
		}
	}

	var due []Bucket
	for _, bucket := range Buckets {
		if bucketDue(bucket, now, newest[bucket], lastPass, weekStart) {
			due = append(due, bucket)
		}
	}
	return due
}

func bucketDue(bucket Bucket, now, last, lastPass time.Time, weekStart time.Weekday) bool {
	if bucket == Hourly {
		return true
	}

	var boundary time.Time
	switch bucket {
	case Daily:
		boundary = startOfDay(now)
	case Weekly:
		boundary = startOfWeek(now, weekStart)
	case Monthly:
		boundary = startOfMonth(now)
	default:
		return false
	}

	if !last.IsZero() {
		return last.Before(boundary)
	}
	return lastPass.Before(boundary)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
