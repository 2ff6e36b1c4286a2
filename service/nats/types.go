package nats

import (
	"fmt"
	"time"

	"github.com/brojonat/solscope/service/analytics"
)

// ActivityEvent is published to "activity.{address}" in JetStream every time
// the server computes a wallet or program activity report.
type ActivityEvent struct {
	Address string         `json:"address"`
	Kind    analytics.Kind `json:"kind"`

	// Headline numbers copied out of the report so subscribers can filter
	// without decoding the whole payload.
	Total          int               `json:"total"`
	ErrorCount     int               `json:"error_count"`
	SuccessRatePct analytics.Percent `json:"success_rate_pct"`

	Report *analytics.ActivityReport `json:"report"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// FromActivityReport converts a report into an event for publishing.
func FromActivityReport(report *analytics.ActivityReport) *ActivityEvent {
	event := &ActivityEvent{
		Address:     report.Address,
		Kind:        report.Kind,
		Report:      report,
		PublishedAt: time.Now().UTC(),
	}

	if report.Summary != nil {
		event.Total = report.Summary.Total
		event.ErrorCount = report.Summary.ErrorCount
		event.SuccessRatePct = report.Summary.SuccessRatePct
	}

	return event
}

// SubjectFor returns the subject an address publishes on. An empty address
// yields the wildcard matching every address.
func SubjectFor(address string) string {
	if address == "" {
		return StreamSubjects
	}
	return fmt.Sprintf("activity.%s", address)
}
