package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"fulfillment-workers/internal/common/validation"
)

const TaskFulfillment = "application:fulfillment"

type FulfillmentPayload struct {
	ApplicationID int64 `json:"applicationId"`
}

func NewFulfillmentTask(applicationID int64) (*asynq.Task, error) {
	if applicationID <= 0 {
		return nil, fmt.Errorf("application id must be positive, got %d", applicationID)
	}
	data, err := json.Marshal(FulfillmentPayload{ApplicationID: applicationID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFulfillment, data), nil
}

// ParseFulfillmentPayload checks the payload against the same schema as the Zeebe
// job variables before decoding it.
func ParseFulfillmentPayload(task *asynq.Task) (FulfillmentPayload, error) {
	result, err := validation.TriggerSchema.ValidateInput(task.Payload())
	if err != nil {
		return FulfillmentPayload{}, fmt.Errorf("decode payload: %w", err)
	}
	if !result.Valid {
		return FulfillmentPayload{}, fmt.Errorf("invalid payload: %v", result.GetErrorMessages())
	}

	var payload FulfillmentPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FulfillmentPayload{}, err
	}
	return payload, nil
}
