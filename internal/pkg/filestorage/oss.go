package filestorage

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bearshare/backend/internal/pkg/apperrors"
)

// OSSConfig configures OSSStorage
type OSSConfig struct {
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	AccessKeySecret string
	Prefix          string
	UploadTTL       time.Duration
	DownloadTTL     time.Duration
}

// OSSStorage issues presigned Aliyun OSS URLs. Clients upload directly to the bucket.
type OSSStorage struct {
	bucket      *oss.Bucket
	prefix      string
	uploadTTL   time.Duration
	downloadTTL time.Duration
	logger      zerolog.Logger
}

// NewOSSStorage creates the OSS client and bucket handle. No request is sent.
func NewOSSStorage(cfg OSSConfig, logger zerolog.Logger) (*OSSStorage, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("oss bucket %s: %w", cfg.Bucket, err)
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	return &OSSStorage{
		bucket:      bucket,
		prefix:      prefix,
		uploadTTL:   cfg.UploadTTL,
		downloadTTL: cfg.DownloadTTL,
		logger:      logger,
	}, nil
}

// RequestUploadURL signs a PUT URL for a fresh object key
func (s *OSSStorage) RequestUploadURL(ctx context.Context) (*UploadTarget, error) {
	ref := uuid.New().String()
	expiresAt := time.Now().Add(s.uploadTTL)

	signed, err := s.bucket.SignURL(s.objectKey(ref), oss.HTTPPut, ttlSeconds(s.uploadTTL))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to sign OSS upload URL")
		return nil, apperrors.NewUpstreamError("blob store", err)
	}

	return &UploadTarget{
		URL:        signed,
		Method:     http.MethodPut,
		StorageRef: ref,
		ExpiresAt:  expiresAt,
	}, nil
}

// ResolveDownloadURL signs a GET URL for ref. Signing is local, so no request
// reaches OSS; refs were checked with Exists when their post was created.
func (s *OSSStorage) ResolveDownloadURL(ctx context.Context, ref string) (string, error) {
	if _, err := uuid.Parse(ref); err != nil {
		return "", ErrObjectNotFound
	}

	signed, err := s.bucket.SignURL(s.objectKey(ref), oss.HTTPGet, ttlSeconds(s.downloadTTL))
	if err != nil {
		return "", apperrors.NewUpstreamError("blob store", err)
	}
	return signed, nil
}

// Exists asks OSS whether the object was uploaded
func (s *OSSStorage) Exists(ctx context.Context, ref string) (bool, error) {
	if _, err := uuid.Parse(ref); err != nil {
		return false, nil
	}
	ok, err := s.bucket.IsObjectExist(s.objectKey(ref), oss.WithContext(ctx))
	if err != nil {
		s.logger.Warn().Err(err).Str("ref", ref).Msg("OSS existence check failed")
		return false, apperrors.NewUpstreamError("blob store", err)
	}
	return ok, nil
}

func (s *OSSStorage) objectKey(ref string) string {
	return s.prefix + ref
}

func ttlSeconds(d time.Duration) int64 {
	secs := int64(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
