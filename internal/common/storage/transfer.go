package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fulfillment-workers/internal/common/errors"
	"fulfillment-workers/internal/common/logger"
)

const (
	sourcePrefix = "img"
	leadBaseDir  = "Home_Internet_User_Registration"
)

// Transfer copies identity card images from the upload bucket to the
// bucket the CRM reads from.
type Transfer struct {
	source      Store
	destination Store
	now         func() time.Time
	logger      logger.Logger
}

func NewTransfer(source, destination Store, log logger.Logger) *Transfer {
	return &Transfer{
		source:      source,
		destination: destination,
		now:         time.Now,
		logger:      log,
	}
}

func (t *Transfer) UploadResidenceCardFront(ctx context.Context, key, leadID string) (string, error) {
	return t.copy(ctx, key, fmt.Sprintf("%s/%s/residence_front_%d", leadBaseDir, leadID, t.now().Unix()))
}

func (t *Transfer) UploadResidenceCardBack(ctx context.Context, key, leadID string) (string, error) {
	return t.copy(ctx, key, fmt.Sprintf("%s/%s/residence_left_%d", leadBaseDir, leadID, t.now().Unix()))
}

func (t *Transfer) copy(ctx context.Context, key, uploadPath string) (string, error) {
	sourceKey := sourcePrefix + "/" + key
	data, err := t.source.Fetch(ctx, sourceKey)
	if err != nil {
		return "", errors.NewFileTransferFailedError(sourceKey, err)
	}

	stored, err := t.destination.Store(ctx, data, originalName(key), uploadPath)
	if err != nil {
		return "", errors.NewFileTransferFailedError(uploadPath, err)
	}

	t.logger.Info("file transferred", map[string]interface{}{
		"source":      sourceKey,
		"destination": stored,
		"bytes":       len(data),
	})
	return stored, nil
}

func originalName(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 && i < len(key)-1 {
		return key[i+1:]
	}
	return key
}
