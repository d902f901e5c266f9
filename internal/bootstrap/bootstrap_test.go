package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bearshare/backend/internal/config"
	"github.com/bearshare/backend/internal/pkg/events"
	"github.com/bearshare/backend/internal/pkg/idempotency"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Port = "8080"
	cfg.Server.Mode = "production"
	cfg.Server.PublicURL = "http://bearshare.test"
	cfg.Database.Driver = "memory"
	cfg.Database.SeedCourses = true
	cfg.Auth.JWTSecret = "bootstrap-test-secret"
	cfg.Auth.RoleClaim = "role"
	cfg.Auth.AdminRole = "admin"
	cfg.Storage.Driver = "local"
	cfg.Storage.LocalPath = t.TempDir()
	cfg.Storage.UploadURLTTL = time.Minute
	cfg.Storage.DownloadURLTTL = time.Minute
	cfg.Storage.MaxUploadBytes = 1024
	cfg.Redis.IdempotencyTTL = time.Hour
	return cfg
}

func TestMemoryStackServesRequests(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)

	store, database, err := SetupStore(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, database)

	deps, err := BuildDependencies(ctx, cfg, store, zerolog.Nop())
	require.NoError(t, err)
	defer deps.Close()

	assert.NotNil(t, deps.LocalBlobs)
	assert.IsType(t, &events.LogPublisher{}, deps.Publisher)
	assert.IsType(t, &idempotency.MemoryStore{}, deps.Idempotency)
	assert.Nil(t, deps.Reconciler)

	router := SetupRouter(cfg, deps, zerolog.Nop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []struct {
			Tag string `json:"tag"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 5, "default courses are seeded")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// swagger is not served in production mode
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewResolverRequiresReadableKey(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Auth.JWTPublicKeyFile = "/does/not/exist.pem"

	_, err := NewResolver(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "public key"))
}

func TestBlobStoreSelection(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Storage.Driver = "oss"
	cfg.Storage.OSS.Endpoint = "https://oss-cn-hangzhou.aliyuncs.com"
	cfg.Storage.OSS.Bucket = "bearshare"
	cfg.Storage.OSS.AccessKeyID = "ak"
	cfg.Storage.OSS.AccessKeySecret = "sk"

	blobs, local, err := NewBlobStore(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, blobs)
	assert.Nil(t, local)
}
