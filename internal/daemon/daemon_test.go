package daemon

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	t.Parallel()

	d := New("not a schedule", func(context.Context) error { return nil }, discardLogger())
	err := d.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a schedule")
}

func TestStartRunsPassesUntilCancelled(t *testing.T) {
	t.Parallel()

	var passes atomic.Int32
	d := New("@every 50ms", func(context.Context) error {
		passes.Add(1)
		return nil
	}, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, d.Start(ctx))
	assert.GreaterOrEqual(t, passes.Load(), int32(1))
}

// A pass still running when the next schedule point fires is skipped,
// never overlapped: two concurrent passes against the same guests are
// not safe.
func TestStartSkipsOverlappingPasses(t *testing.T) {
	t.Parallel()

	var running, maxConcurrent, passes atomic.Int32
	d := New("@every 50ms", func(context.Context) error {
		current := running.Add(1)
		defer running.Add(-1)
		for {
			observed := maxConcurrent.Load()
			if current <= observed || maxConcurrent.CompareAndSwap(observed, current) {
				break
			}
		}
		passes.Add(1)
		time.Sleep(200 * time.Millisecond)
		return nil
	}, discardLogger())

	// Roughly ten schedule points elapse, but each pass spans four of
	// them, so most points must be skipped.
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, d.Start(ctx))

	assert.Equal(t, int32(1), maxConcurrent.Load())
	assert.GreaterOrEqual(t, passes.Load(), int32(1))
	assert.Less(t, passes.Load(), int32(8))
}

func TestStartStopsCleanlyWithoutAnyPass(t *testing.T) {
	t.Parallel()

	d := New("@hourly", func(context.Context) error {
		t.Error("pass should not have run")
		return nil
	}, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, d.Start(ctx))
}
