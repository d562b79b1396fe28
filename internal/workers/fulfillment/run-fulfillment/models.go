package runfulfillment

import (
	"context"

	"fulfillment-workers/internal/fulfillment"
)

type Input struct {
	ApplicationID int64 `json:"applicationId"`
}

// Runner is satisfied by *fulfillment.Coordinator.
type Runner interface {
	RunFulfillment(ctx context.Context, applicationID int64) (*fulfillment.RunReport, error)
}
