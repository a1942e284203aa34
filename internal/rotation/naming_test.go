package rotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeNameDecodeNameRoundTrip(t *testing.T) {
	t.Parallel()

	stamp := time.Date(2026, 8, 26, 14, 5, 2, 0, time.UTC)
	for _, bucket := range Buckets {
		name := EncodeName(bucket, stamp)

		tag, ok := DecodeName(name)
		require.True(t, ok, "decode %q", name)
		assert.Equal(t, bucket, tag.Bucket)
		assert.True(t, tag.CreatedAt.Equal(stamp), "got %v, want %v", tag.CreatedAt, stamp)
	}
}

func TestEncodeNameNormalizesToUTC(t *testing.T) {
	t.Parallel()

	berlin := time.FixedZone("CEST", 2*60*60)
	local := time.Date(2026, 8, 26, 16, 5, 2, 0, berlin)

	assert.Equal(t, "auto-hourly-20260826-140502", EncodeName(Hourly, local))
}

func TestDecodeNameRejectsUnmanagedNames(t *testing.T) {
	t.Parallel()

	names := []string{
		"",
		"before-upgrade",
		"auto",
		"auto-",
		"auto-hourly",
		"auto-hourly-",
		"auto-hourly-notadate",
		"auto-hourly-20260826",       // day precision only
		"auto-hourly-20260826-1405",  // legacy minute precision
		"auto-yearly-20260826-140502",
		"manual-hourly-20260826-140502",
		"auto-hourly-20261301-140502", // month 13
		"current",
	}

	for _, name := range names {
		_, ok := DecodeName(name)
		assert.False(t, ok, "DecodeName(%q) should not yield a tag", name)
	}
}
