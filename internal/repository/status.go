package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"fulfillment-workers/internal/common/errors"
	"fulfillment-workers/internal/models"
)

// StatusStore writes track statuses. Each update is conditional on the current
// status being an allowed predecessor of the new one.
type StatusStore struct {
	db *sql.DB
}

func NewStatusStore(db *sql.DB) *StatusStore {
	return &StatusStore{db: db}
}

func (s *StatusStore) SetUtilityStatus(ctx context.Context, applicationID int64, status models.UtilityStatus) error {
	preds := models.UtilityPredecessors(status)
	from := make([]string, len(preds))
	for i, p := range preds {
		from[i] = string(p)
	}
	return s.transition(ctx, "utility", `
		UPDATE utility_applications
		SET status = $1
		WHERE application_id = $2 AND status = ANY($3)`, applicationID, string(status), from)
}

func (s *StatusStore) SetWifiStatus(ctx context.Context, applicationID int64, status models.WifiStatus) error {
	preds := models.WifiPredecessors(status)
	from := make([]string, len(preds))
	for i, p := range preds {
		from[i] = string(p)
	}
	return s.transition(ctx, "wifi", `
		UPDATE wifi_applications
		SET status = $1
		WHERE application_id = $2 AND status = ANY($3)`, applicationID, string(status), from)
}

func (s *StatusStore) transition(ctx context.Context, track, query string, applicationID int64, to string, from []string) error {
	if len(from) == 0 {
		return errors.NewInvalidStatusTransitionError(track, to)
	}

	res, err := s.db.ExecContext(ctx, query, to, applicationID, pq.Array(from))
	if err != nil {
		return errors.NewStatusUpdateFailedError(track, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewStatusUpdateFailedError(track, err)
	}
	if n == 0 {
		return errors.NewInvalidStatusTransitionError(track, to).
			WithMetadata("applicationId", applicationID)
	}
	return nil
}
