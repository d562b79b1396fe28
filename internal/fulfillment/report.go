package fulfillment

import (
	"time"

	"fulfillment-workers/internal/common/errors"
)

type Track string

const (
	TrackUtility Track = "utility"
	TrackWifi    Track = "wifi"
)

// Track results. Recognized automation failures use their error code.
const (
	ResultCompleted            = "completed"
	ResultSkipped              = "skipped"
	ResultFailed               = "failed"
	ResultTermsAgreementFailed = string(errors.ErrCodeTermsAgreementFailed)
	ResultFormSubmissionFailed = string(errors.ErrCodeFormSubmissionFailed)
)

// TrackOutcome is what one track did during a run. Err is set only for
// failures that should surface to the trigger.
type TrackOutcome struct {
	Track  Track
	Status string
	Result string
	LeadID string
	Err    error
}

func (o TrackOutcome) Failed() bool {
	return o.Err != nil
}

type RunReport struct {
	RunID         string
	ApplicationID int64
	Tracks        []TrackOutcome
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Outcome returns the recorded outcome of track, if it was reached.
func (r *RunReport) Outcome(track Track) (TrackOutcome, bool) {
	for _, o := range r.Tracks {
		if o.Track == track {
			return o, true
		}
	}
	return TrackOutcome{}, false
}

// Summary classifies the run: "completed" when every reached track completed or
// was skipped, "business_failure" when automation refused a step, "failed" otherwise.
func (r *RunReport) Summary() string {
	summary := ResultCompleted
	for _, o := range r.Tracks {
		switch {
		case o.Err != nil:
			return ResultFailed
		case o.Result == ResultTermsAgreementFailed || o.Result == ResultFormSubmissionFailed:
			summary = "business_failure"
		}
	}
	return summary
}

// Variables renders the report as workflow variables.
func (r *RunReport) Variables() map[string]interface{} {
	vars := map[string]interface{}{
		"applicationId":      r.ApplicationID,
		"runId":              r.RunID,
		"fulfillmentOutcome": r.Summary(),
		"durationMs":         r.FinishedAt.Sub(r.StartedAt).Milliseconds(),
	}
	for _, o := range r.Tracks {
		prefix := string(o.Track)
		vars[prefix+"Result"] = o.Result
		vars[prefix+"Status"] = o.Status
		if o.LeadID != "" {
			vars[prefix+"LeadId"] = o.LeadID
		}
	}
	return vars
}
