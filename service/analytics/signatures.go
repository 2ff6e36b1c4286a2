package analytics

import (
	"math"
)

// SignatureSummary aggregates the signature history of one address.
// Timestamps are unix seconds; they are zero when no record carried a block time.
type SignatureSummary struct {
	Total               int     `json:"total"`
	ConfirmedFinalized  int     `json:"confirmedFinalized"`
	ErrorCount          int     `json:"errorCount"`
	SuccessRatePct      Percent `json:"successRatePct"`
	AvgSecondsBetweenTx int64   `json:"avgSecondsBetweenTx"`
	OldestTimestamp     int64   `json:"oldestTimestamp"`
	NewestTimestamp     int64   `json:"newestTimestamp"`
	ActivitySpanHours   int64   `json:"activitySpanHours"`
}

// AnalyzeSignatures computes confirmation, error and timing statistics.
// It returns nil for an empty list.
//
// The average spacing is the observed span divided by (n-1), not the mean of
// consecutive deltas, so uneven spacing inside the span does not show up.
// Records without a block time are left out of the timing figures only.
func AnalyzeSignatures(records []SignatureRecord) *SignatureSummary {
	if len(records) == 0 {
		return nil
	}

	summary := &SignatureSummary{Total: len(records)}

	var (
		timed          int
		oldest, newest int64
	)
	for _, rec := range records {
		if rec.ConfirmationStatus == StatusFinalized {
			summary.ConfirmedFinalized++
		}
		if rec.Failed() {
			summary.ErrorCount++
		}
		if rec.BlockTime == nil {
			continue
		}
		bt := *rec.BlockTime
		if timed == 0 || bt < oldest {
			oldest = bt
		}
		if timed == 0 || bt > newest {
			newest = bt
		}
		timed++
	}

	summary.SuccessRatePct = ratePct(summary.Total-summary.ErrorCount, summary.Total)

	if timed > 0 {
		span := newest - oldest
		summary.OldestTimestamp = oldest
		summary.NewestTimestamp = newest
		summary.ActivitySpanHours = roundHalfUp(float64(span) / 3600)
		if timed > 1 {
			summary.AvgSecondsBetweenTx = roundHalfUp(float64(span) / float64(timed-1))
		}
	}

	return summary
}

// StatusCount is one slice of the confirmation status distribution.
type StatusCount struct {
	Status ConfirmationStatus `json:"status"`
	Count  int                `json:"count"`
}

// BuildStatusDistribution counts records per confirmation status in the fixed
// order finalized, confirmed, processed. Anything that is neither finalized nor
// confirmed (null, "processed" or an unknown value) counts as processed.
// Statuses with no records are omitted.
func BuildStatusDistribution(records []SignatureRecord) []StatusCount {
	var finalized, confirmed int
	for _, rec := range records {
		switch rec.ConfirmationStatus {
		case StatusFinalized:
			finalized++
		case StatusConfirmed:
			confirmed++
		}
	}
	processed := len(records) - finalized - confirmed

	dist := make([]StatusCount, 0, 3)
	for _, sc := range []StatusCount{
		{Status: StatusFinalized, Count: finalized},
		{Status: StatusConfirmed, Count: confirmed},
		{Status: StatusProcessed, Count: processed},
	} {
		if sc.Count > 0 {
			dist = append(dist, sc)
		}
	}
	return dist
}

// roundHalfUp rounds to the nearest integer with halves going up.
func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}
