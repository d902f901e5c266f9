package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bearshare/backend/internal/pkg/logger"
)

// Token purposes
const (
	PurposeUpload   = "upload"
	PurposeDownload = "download"
)

var (
	// ErrObjectExists is returned when a reference was already uploaded to
	ErrObjectExists = errors.New("object already uploaded")
	// ErrObjectTooLarge is returned when an upload exceeds the size limit
	ErrObjectTooLarge = errors.New("object exceeds maximum upload size")
	// ErrInvalidURLToken is returned for expired or tampered URL tokens
	ErrInvalidURLToken = errors.New("invalid or expired url token")
)

type urlClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// LocalConfig configures LocalStorage
type LocalConfig struct {
	BasePath       string
	BaseURL        string // public base URL of this server
	SigningSecret  string
	UploadTTL      time.Duration
	DownloadTTL    time.Duration
	MaxUploadBytes int64
}

// LocalStorage stores blobs on the local filesystem and hands out signed,
// short lived URLs served by this application's upload and file routes.
type LocalStorage struct {
	basePath    string
	baseURL     string
	secret      []byte
	uploadTTL   time.Duration
	downloadTTL time.Duration
	maxBytes    int64
}

// NewLocalStorage creates a new LocalStorage instance and ensures its directory exists
func NewLocalStorage(config LocalConfig) (*LocalStorage, error) {
	if config.SigningSecret == "" {
		return nil, errors.New("a signing secret is required for local storage")
	}
	if err := os.MkdirAll(config.BasePath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", config.BasePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", config.BasePath, err)
	}
	logger.Info().Str("path", config.BasePath).Msg("Local storage directory ensured")

	return &LocalStorage{
		basePath:    config.BasePath,
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		secret:      []byte(config.SigningSecret),
		uploadTTL:   config.UploadTTL,
		downloadTTL: config.DownloadTTL,
		maxBytes:    config.MaxUploadBytes,
	}, nil
}

// MaxUploadBytes is the largest accepted upload
func (ls *LocalStorage) MaxUploadBytes() int64 {
	return ls.maxBytes
}

// RequestUploadURL issues a new storage reference and a signed PUT URL for it
func (ls *LocalStorage) RequestUploadURL(ctx context.Context) (*UploadTarget, error) {
	ref := uuid.New().String()
	expiresAt := time.Now().Add(ls.uploadTTL)

	token, err := ls.sign(ref, PurposeUpload, expiresAt)
	if err != nil {
		return nil, err
	}

	return &UploadTarget{
		URL:        ls.baseURL + "/api/v1/uploads/" + token,
		Method:     http.MethodPut,
		StorageRef: ref,
		ExpiresAt:  expiresAt,
	}, nil
}

// ResolveDownloadURL returns a signed GET URL for an uploaded reference
func (ls *LocalStorage) ResolveDownloadURL(ctx context.Context, ref string) (string, error) {
	exists, err := ls.Exists(ctx, ref)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrObjectNotFound
	}

	token, err := ls.sign(ref, PurposeDownload, time.Now().Add(ls.downloadTTL))
	if err != nil {
		return "", err
	}
	return ls.baseURL + "/api/v1/files/" + token, nil
}

// Exists reports whether bytes were stored under ref
func (ls *LocalStorage) Exists(ctx context.Context, ref string) (bool, error) {
	path, err := ls.pathFor(ref)
	if err != nil {
		return false, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}

// ParseURLToken validates a signed URL token for purpose and returns its reference
func (ls *LocalStorage) ParseURLToken(token, purpose string) (string, error) {
	claims := &urlClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return ls.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return "", ErrInvalidURLToken
	}
	if claims.Purpose != purpose {
		return "", ErrInvalidURLToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", ErrInvalidURLToken
	}
	return claims.Subject, nil
}

// Save writes the uploaded body for ref. A reference can be written once.
func (ls *LocalStorage) Save(ref string, body io.Reader) (int64, error) {
	path, err := ls.pathFor(ref)
	if err != nil {
		return 0, err
	}

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return 0, ErrObjectExists
		}
		return 0, fmt.Errorf("failed to create destination file: %w", err)
	}

	limit := ls.maxBytes
	if limit <= 0 {
		limit = 1<<63 - 2
	}
	written, err := io.Copy(dst, io.LimitReader(body, limit+1))
	closeErr := dst.Close()
	if err == nil && written > limit {
		err = ErrObjectTooLarge
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, ErrObjectTooLarge) {
			return 0, err
		}
		logger.Error().Err(err).Str("path", path).Msg("Failed to save uploaded content")
		return 0, fmt.Errorf("failed to save file content: %w", err)
	}

	logger.Info().Str("ref", ref).Int64("bytes", written).Msg("Blob stored")
	return written, nil
}

// Open returns the stored blob for ref
func (ls *LocalStorage) Open(ref string) (*os.File, error) {
	path, err := ls.pathFor(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return f, nil
}

func (ls *LocalStorage) sign(ref, purpose string, expiresAt time.Time) (string, error) {
	claims := urlClaims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ref,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ls.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign url token: %w", err)
	}
	return token, nil
}

// pathFor only accepts references issued by RequestUploadURL, which keeps
// every path inside basePath.
func (ls *LocalStorage) pathFor(ref string) (string, error) {
	id, err := uuid.Parse(ref)
	if err != nil || id.String() != ref {
		return "", ErrInvalidReference
	}
	return filepath.Join(ls.basePath, ref), nil
}
