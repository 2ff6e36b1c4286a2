package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unixAt(loc *time.Location, month time.Month, day, hour, minute int) *int64 {
	v := time.Date(2024, month, day, hour, minute, 0, 0, loc).Unix()
	return &v
}

func TestBuildTimelineIn_GroupsByHour(t *testing.T) {
	loc := time.UTC
	records := []SignatureRecord{
		{Signature: "d", BlockTime: unixAt(loc, time.March, 7, 10, 45)},
		{Signature: "c", BlockTime: unixAt(loc, time.March, 7, 10, 5), Err: "failed"},
		{Signature: "b", BlockTime: unixAt(loc, time.March, 7, 9, 59)},
		{Signature: "a", BlockTime: nil, Err: "ignored"},
	}

	buckets := BuildTimelineIn(records, loc)
	assert.Equal(t, []TimelineBucket{
		{BucketKey: "3/7 10:00", TxCount: 2, ErrorCount: 1},
		{BucketKey: "3/7 9:00", TxCount: 1, ErrorCount: 0},
	}, buckets)
}

func TestBuildTimelineIn_UsesLocation(t *testing.T) {
	bt := time.Date(2024, time.December, 31, 23, 30, 0, 0, time.UTC).Unix()
	records := []SignatureRecord{{BlockTime: &bt}}

	utc := BuildTimelineIn(records, time.UTC)
	require.Len(t, utc, 1)
	assert.Equal(t, "12/31 23:00", utc[0].BucketKey)

	plusTwo := BuildTimelineIn(records, time.FixedZone("UTC+2", 2*60*60))
	require.Len(t, plusTwo, 1)
	assert.Equal(t, "1/1 1:00", plusTwo[0].BucketKey)
}

func TestBuildTimelineIn_KeepsInsertionOrder(t *testing.T) {
	loc := time.UTC
	// Out of chronological order on purpose: buckets follow first appearance.
	records := []SignatureRecord{
		{BlockTime: unixAt(loc, time.May, 1, 8, 0)},
		{BlockTime: unixAt(loc, time.May, 1, 12, 0)},
		{BlockTime: unixAt(loc, time.May, 1, 8, 30)},
		{BlockTime: unixAt(loc, time.May, 1, 10, 0)},
	}

	buckets := BuildTimelineIn(records, loc)
	require.Len(t, buckets, 3)
	assert.Equal(t, "5/1 8:00", buckets[0].BucketKey)
	assert.Equal(t, 2, buckets[0].TxCount)
	assert.Equal(t, "5/1 12:00", buckets[1].BucketKey)
	assert.Equal(t, "5/1 10:00", buckets[2].BucketKey)
}

func TestBuildTimelineIn_KeepsLastTenBuckets(t *testing.T) {
	loc := time.UTC
	var records []SignatureRecord
	// Newest first, 15 distinct hours.
	for h := 14; h >= 0; h-- {
		records = append(records, SignatureRecord{BlockTime: unixAt(loc, time.June, 2, h, 0)})
	}

	buckets := BuildTimelineIn(records, loc)
	require.Len(t, buckets, MaxTimelineBuckets)
	// The first five buckets seen (hours 14..10) are dropped.
	assert.Equal(t, "6/2 9:00", buckets[0].BucketKey)
	assert.Equal(t, "6/2 0:00", buckets[len(buckets)-1].BucketKey)
}

func TestBuildTimelineIn_NoTimestamps(t *testing.T) {
	buckets := BuildTimelineIn([]SignatureRecord{{Signature: "a"}, {Signature: "b", Err: "x"}}, time.UTC)
	assert.Empty(t, buckets)
	assert.Empty(t, BuildTimelineIn(nil, time.UTC))
}

func TestBuildTimeline_DefaultsToLocal(t *testing.T) {
	bt := int64(1_700_000_000)
	records := []SignatureRecord{{BlockTime: &bt}}
	assert.Equal(t, BuildTimelineIn(records, time.Local), BuildTimeline(records))
	assert.Equal(t, BuildTimelineIn(records, time.Local), BuildTimelineIn(records, nil))
}
