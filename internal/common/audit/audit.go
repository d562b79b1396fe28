package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"fulfillment-workers/internal/common/logger"
)

// Event is one step of a fulfillment run.
type Event struct {
	RunID         string    `json:"runId"`
	ApplicationID int64     `json:"applicationId"`
	Track         string    `json:"track,omitempty"`
	Step          string    `json:"step"`
	Status        string    `json:"status,omitempty"`
	Result        string    `json:"result,omitempty"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"@timestamp"`
}

// Recorder stores audit events. Recording never fails the caller.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Event) {}

// ElasticsearchRecorder indexes each event as a document.
type ElasticsearchRecorder struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticsearchRecorder(client *elasticsearch.Client, index string, log logger.Logger) *ElasticsearchRecorder {
	return &ElasticsearchRecorder{client: client, index: index, logger: log}
}

func (r *ElasticsearchRecorder) Record(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		r.logger.Warn("failed to encode audit event", map[string]interface{}{"error": err})
		return
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(body),
		r.client.Index.WithContext(ctx),
	)
	if err != nil {
		r.logger.Warn("failed to index audit event", map[string]interface{}{
			"applicationId": event.ApplicationID,
			"step":          event.Step,
			"error":         err,
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		r.logger.Warn("audit index rejected event", map[string]interface{}{
			"applicationId": event.ApplicationID,
			"step":          event.Step,
			"status":        res.Status(),
		})
	}
}
