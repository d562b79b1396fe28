package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "fulfillment-workers/internal/common/errors"
	"fulfillment-workers/internal/common/logger"
)

type memoryStore struct {
	objects map[string][]byte
	names   map[string]string
	keepExt bool
	putErr  error
}

func newMemoryStore(keepExt bool) *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, names: map[string]string{}, keepExt: keepExt}
}

func (m *memoryStore) Fetch(_ context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return data, nil
}

func (m *memoryStore) Store(_ context.Context, data []byte, originalName, uploadPath string) (string, error) {
	if m.putErr != nil {
		return "", m.putErr
	}
	key := objectKey(uploadPath, originalName, m.keepExt)
	m.objects[key] = data
	m.names[key] = originalName
	return key, nil
}

func newTestTransfer(t *testing.T, src, dst Store) *Transfer {
	tr := NewTransfer(src, dst, logger.NewTestLogger(t))
	tr.now = func() time.Time { return time.Unix(1700000000, 0) }
	return tr
}

// ==========================
// Transfer
// ==========================

func TestTransfer_UploadResidenceCard(t *testing.T) {
	src := newMemoryStore(true)
	src.objects["img/visa/front.jpg"] = []byte("front")
	src.objects["img/visa/back.jpg"] = []byte("back")
	dst := newMemoryStore(false)
	tr := newTestTransfer(t, src, dst)

	front, err := tr.UploadResidenceCardFront(context.Background(), "visa/front.jpg", "00Q1")
	require.NoError(t, err)
	assert.Equal(t, "Home_Internet_User_Registration/00Q1/residence_front_1700000000", front)
	assert.Equal(t, []byte("front"), dst.objects[front])
	assert.Equal(t, "front.jpg", dst.names[front])

	back, err := tr.UploadResidenceCardBack(context.Background(), "visa/back.jpg", "00Q1")
	require.NoError(t, err)
	assert.Equal(t, "Home_Internet_User_Registration/00Q1/residence_left_1700000000", back)
}

func TestTransfer_SameBucketKeepsExtension(t *testing.T) {
	bucket := newMemoryStore(true)
	bucket.objects["img/front.png"] = []byte("front")
	tr := newTestTransfer(t, bucket, bucket)

	key, err := tr.UploadResidenceCardFront(context.Background(), "front.png", "testing")
	require.NoError(t, err)
	assert.Equal(t, "Home_Internet_User_Registration/testing/residence_front_1700000000.png", key)
}

func TestTransfer_Failures(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		tr := newTestTransfer(t, newMemoryStore(false), newMemoryStore(false))
		_, err := tr.UploadResidenceCardFront(context.Background(), "missing.jpg", "00Q1")
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeFileTransferFailed))
	})

	t.Run("upload error", func(t *testing.T) {
		src := newMemoryStore(false)
		src.objects["img/a.jpg"] = []byte("a")
		dst := newMemoryStore(false)
		dst.putErr = errors.New("access denied")
		tr := newTestTransfer(t, src, dst)

		_, err := tr.UploadResidenceCardBack(context.Background(), "a.jpg", "00Q1")
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeFileTransferFailed))
	})
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "a/b", objectKey("a/b", "x.jpg", false))
	assert.Equal(t, "a/b.jpg", objectKey("a/b", "x.jpg", true))
	assert.Len(t, objectKey("", "x", false), 36)
}

func TestOriginalName(t *testing.T) {
	assert.Equal(t, "c.jpg", originalName("a/b/c.jpg"))
	assert.Equal(t, "c.jpg", originalName("c.jpg"))
	assert.Equal(t, "a/", originalName("a/"))
}
