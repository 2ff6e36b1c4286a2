package analytics

import (
	"fmt"
	"time"
)

// MaxTimelineBuckets is how many buckets a timeline keeps.
const MaxTimelineBuckets = 10

// TimelineBucket tallies the records that fall into one clock hour.
type TimelineBucket struct {
	BucketKey  string `json:"bucketKey"`
	TxCount    int    `json:"txCount"`
	ErrorCount int    `json:"errorCount"`
}

// BuildTimeline groups records into hourly buckets keyed in the local time zone
// of the running process. See BuildTimelineIn.
func BuildTimeline(records []SignatureRecord) []TimelineBucket {
	return BuildTimelineIn(records, time.Local)
}

// BuildTimelineIn groups records into hourly buckets keyed as "M/D H:00" in loc.
//
// Buckets appear in the order their key is first seen; the input is not sorted.
// RPC results arrive newest first, so callers that need chronological order
// must sort before calling. Only the last MaxTimelineBuckets buckets are kept.
// Records without a block time are skipped.
func BuildTimelineIn(records []SignatureRecord, loc *time.Location) []TimelineBucket {
	if loc == nil {
		loc = time.Local
	}

	index := make(map[string]int)
	buckets := make([]TimelineBucket, 0)
	for _, rec := range records {
		if rec.BlockTime == nil {
			continue
		}
		key := hourKey(time.Unix(*rec.BlockTime, 0).In(loc))
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, TimelineBucket{BucketKey: key})
		}
		buckets[i].TxCount++
		if rec.Failed() {
			buckets[i].ErrorCount++
		}
	}

	if len(buckets) > MaxTimelineBuckets {
		buckets = buckets[len(buckets)-MaxTimelineBuckets:]
	}
	return buckets
}

func hourKey(t time.Time) string {
	return fmt.Sprintf("%d/%d %d:00", int(t.Month()), t.Day(), t.Hour())
}
