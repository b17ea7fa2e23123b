// Package minio stores run artifacts (panel CSV, summary and
// per-company JSON) in an S3-compatible bucket. One bucket holds
// everything; objects are keyed runs/<run_id>/... so a whole run can
// be listed or removed by prefix.
package minio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// MinIOAPI abstracts the vendor client for testing.
type MinIOAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	RemoveObjects(ctx context.Context, bucketName string, objectsCh <-chan minio.ObjectInfo, opts minio.RemoveObjectsOptions) <-chan minio.RemoveObjectError
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// MinIOConfig holds connection and bucket settings.
type MinIOConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	Region          string        `mapstructure:"region"`
	Bucket          string        `mapstructure:"bucket"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`

	// RetentionDays expires run artifacts after the given number of
	// days. Zero keeps them forever.
	RetentionDays int `mapstructure:"retention_days"`
}

// ErrClientClosed is returned by calls made after Close.
var ErrClientClosed = errors.New(errors.ErrCodeObjectStorage, "minio client is closed")

// Client wraps the vendor client together with the artifact bucket it
// operates on.
type Client struct {
	api    MinIOAPI
	config MinIOConfig
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient connects, verifies reachability and makes sure the
// artifact bucket exists.
func NewClient(cfg MinIOConfig, log logging.Logger) (*Client, error) {
	applyDefaults(&cfg)
	if log == nil {
		log = logging.NewNopLogger()
	}

	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeObjectStorage, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := api.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeObjectStorage, "failed to connect to minio")
	}

	c := &Client{api: api, config: cfg, logger: log}
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	c.setupRetention(ctx)

	log.Info("minio client connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

func applyDefaults(cfg *MinIOConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "citedisrupt-artifacts"
	}
	if cfg.PresignExpiry == 0 {
		cfg.PresignExpiry = 1 * time.Hour
	}
}

// EnsureBucket creates the artifact bucket when it does not exist yet.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeObjectStorage, "failed to check bucket existence")
	}
	if !exists {
		if err := c.api.MakeBucket(ctx, c.config.Bucket, minio.MakeBucketOptions{Region: c.config.Region}); err != nil {
			return errors.Wrap(err, errors.ErrCodeObjectStorage, fmt.Sprintf("failed to create bucket %s", c.config.Bucket))
		}
		c.logger.Info("created bucket", logging.String("bucket", c.config.Bucket))
	}
	return nil
}

// setupRetention installs the expiry rule for run artifacts. Failure
// is logged, not fatal: the rule is a housekeeping nicety.
func (c *Client) setupRetention(ctx context.Context) {
	if c.config.RetentionDays <= 0 {
		return
	}
	lcCfg := lifecycle.NewConfiguration()
	lcCfg.Rules = []lifecycle.Rule{
		{
			ID:     "run-artifact-expiry",
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(c.config.RetentionDays),
			},
			Prefix: "runs/",
		},
	}
	if err := c.api.SetBucketLifecycle(ctx, c.config.Bucket, lcCfg); err != nil {
		c.logger.Warn("failed to set bucket lifecycle", logging.Err(err))
	}
}

// API exposes the underlying vendor surface to the repository.
func (c *Client) API() MinIOAPI {
	return c.api
}

// Bucket returns the artifact bucket name.
func (c *Client) Bucket() string {
	return c.config.Bucket
}

// HealthCheck verifies the endpoint answers and the artifact bucket is
// still there.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	if _, err := c.api.ListBuckets(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeObjectStorage, "minio unreachable")
	}
	exists, err := c.api.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeObjectStorage, "bucket check failed")
	}
	if !exists {
		return errors.New(errors.ErrCodeStoreBucketMissing, fmt.Sprintf("bucket %s missing", c.config.Bucket))
	}
	return nil
}

// PresignedGetURL returns a time-limited download URL for an artifact.
func (c *Client) PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if c.isClosed() {
		return "", ErrClientClosed
	}
	if expiry == 0 {
		expiry = c.config.PresignExpiry
	}
	u, err := c.api.PresignedGetObject(ctx, c.config.Bucket, objectName, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeObjectStorage, "presign failed")
	}
	return u.String(), nil
}

// Close marks the client unusable. The vendor client holds no
// long-lived connection to release.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
