package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bearshare/backend/internal/app/models/dto"
	"github.com/bearshare/backend/internal/pkg/idempotency"
)

const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotencyReplayedHeader = "Idempotent-Replayed"
	maxIdempotencyKeyLength   = 255
)

var idempotencyNamespace = uuid.MustParse("6d1c2f0e-4b0a-4e55-9a52-0c1b7f0f5e21")

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the first response of a request that carries an
// Idempotency-Key header. Keys are scoped to the actor, method and path.
// Store failures never block the request.
func Idempotency(store idempotency.Store, lgr zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || store == nil {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Idempotency-Key is too long").
				WithField(IdempotencyKeyHeader)
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
			return
		}

		ctx := c.Request.Context()
		actor := CurrentActor(c)
		scoped := scopedKey(actor.ID, c.Request.Method, c.Request.URL.Path, key)

		record, err := store.Get(ctx, scoped)
		switch {
		case err == nil && record.Done:
			c.Header(IdempotencyReplayedHeader, "true")
			c.Data(record.Status, record.ContentType, record.Body)
			c.Abort()
			return
		case err == nil:
			abortInFlight(c)
			return
		case !errors.Is(err, idempotency.ErrNotFound):
			lgr.Warn().Err(err).Msg("Idempotency store unavailable, processing request without it")
			c.Next()
			return
		}

		reserved, err := store.Reserve(ctx, scoped)
		if err != nil {
			lgr.Warn().Err(err).Msg("Idempotency store unavailable, processing request without it")
			c.Next()
			return
		}
		if !reserved {
			abortInFlight(c)
			return
		}

		// Released unless a response was stored, which also covers a panic
		// unwinding towards gin.Recovery.
		stored := false
		defer func() {
			if stored {
				return
			}
			if err := store.Release(context.WithoutCancel(ctx), scoped); err != nil {
				lgr.Warn().Err(err).Msg("Failed to release idempotency key")
			}
		}()

		writer := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		if status >= http.StatusInternalServerError {
			return
		}

		err = store.Complete(ctx, scoped, idempotency.Record{
			Status:      status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
		})
		if err != nil {
			lgr.Warn().Err(err).Msg("Failed to store idempotent response")
			return
		}
		stored = true
	}
}

func scopedKey(actorID, method, path, key string) string {
	return uuid.NewSHA1(idempotencyNamespace, []byte(actorID+"\x00"+method+"\x00"+path+"\x00"+key)).String()
}

func abortInFlight(c *gin.Context) {
	errorDetail := dto.NewErrorDetail(dto.ErrorCodeConflict, "A request with this Idempotency-Key is still being processed")
	c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponse(errorDetail))
}
