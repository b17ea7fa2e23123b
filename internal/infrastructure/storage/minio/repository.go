package minio

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/CiteDisrupt/internal/application/export"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// runPrefix keys every artifact of one run under a common prefix.
const runPrefix = "runs/"

// ObjectInfo describes one stored artifact.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ArtifactRepository reads and writes run artifacts. Its Save method
// is the export.ArtifactStore implementation the batch writes through.
type ArtifactRepository interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Read(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	ListRun(ctx context.Context, runID string) ([]ObjectInfo, error)
	DeleteRun(ctx context.Context, runID string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

var _ export.ArtifactStore = (ArtifactRepository)(nil)

type artifactRepo struct {
	client *Client
	logger logging.Logger
}

// NewArtifactRepository creates the artifact store on top of a
// connected client.
func NewArtifactRepository(client *Client, log logging.Logger) ArtifactRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &artifactRepo{client: client, logger: log}
}

// Save uploads one artifact, overwriting any previous object under the
// same key.
func (r *artifactRepo) Save(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New(errors.ErrCodeValidation, "object key is required")
	}
	opts := minio.PutObjectOptions{ContentType: contentType}
	_, err := r.client.API().PutObject(ctx, r.client.Bucket(), key, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "failed to store "+key)
	}
	r.logger.Debug("artifact stored",
		logging.String("key", key),
		logging.Int("bytes", len(data)))
	return nil
}

// Read fetches one artifact in full.
func (r *artifactRepo) Read(ctx context.Context, key string) ([]byte, error) {
	obj, err := r.client.API().GetObject(ctx, r.client.Bucket(), key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreReadFailed, "failed to open "+key)
	}
	defer obj.Close()

	// The vendor client opens lazily; the first Stat surfaces a
	// missing key.
	if _, err := obj.Stat(); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errors.New(errors.ErrCodeNotFound, "artifact not found: "+key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStoreReadFailed, "failed to stat "+key)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreReadFailed, "failed to read "+key)
	}
	return data, nil
}

// Exists reports whether an artifact is stored under the key.
func (r *artifactRepo) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.client.API().StatObject(ctx, r.client.Bucket(), key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeStoreReadFailed, "failed to stat "+key)
	}
	return true, nil
}

// Delete removes one artifact. Deleting a missing key is not an error.
func (r *artifactRepo) Delete(ctx context.Context, key string) error {
	err := r.client.API().RemoveObject(ctx, r.client.Bucket(), key, minio.RemoveObjectOptions{})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "failed to delete "+key)
	}
	return nil
}

// ListRun returns every artifact stored for a run.
func (r *artifactRepo) ListRun(ctx context.Context, runID string) ([]ObjectInfo, error) {
	if runID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "run id is required")
	}
	opts := minio.ListObjectsOptions{
		Prefix:    runPrefix + runID + "/",
		Recursive: true,
	}

	var infos []ObjectInfo
	for obj := range r.client.API().ListObjects(ctx, r.client.Bucket(), opts) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStoreListFailed, "failed to list run "+runID)
		}
		infos = append(infos, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return infos, nil
}

// DeleteRun removes every artifact of a run. A run with no stored
// artifacts is a no-op.
func (r *artifactRepo) DeleteRun(ctx context.Context, runID string) error {
	infos, err := r.ListRun(ctx, runID)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(infos))
	for _, info := range infos {
		objectsCh <- minio.ObjectInfo{Key: info.Key}
	}
	close(objectsCh)

	for rmErr := range r.client.API().RemoveObjects(ctx, r.client.Bucket(), objectsCh, minio.RemoveObjectsOptions{}) {
		if rmErr.Err != nil {
			return errors.Wrap(rmErr.Err, errors.ErrCodeStoreWriteFailed, "failed to delete "+rmErr.ObjectName)
		}
	}

	r.logger.Info("run artifacts deleted",
		logging.String(logging.FieldRunID, runID),
		logging.Int("objects", len(infos)))
	return nil
}

// PresignedURL returns a time-limited download link for an artifact.
func (r *artifactRepo) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return r.client.PresignedGetURL(ctx, key, expiry)
}
