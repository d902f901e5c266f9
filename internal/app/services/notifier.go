package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bearshare/backend/internal/app/models"
	"github.com/bearshare/backend/internal/pkg/email"
)

// Notifier emails the admin about new course requests. Mail is sent in the
// background so a slow SMTP server never delays the visitor's request.
type Notifier struct {
	sender    email.Sender
	to        string
	reviewURL string
	timeout   time.Duration
	logger    zerolog.Logger
	wg        sync.WaitGroup
}

// NewNotifier creates a Notifier. An empty to address disables notifications.
func NewNotifier(sender email.Sender, to, reviewURL string, logger zerolog.Logger) *Notifier {
	return &Notifier{
		sender:    sender,
		to:        to,
		reviewURL: reviewURL,
		timeout:   30 * time.Second,
		logger:    logger,
	}
}

// CourseRequested queues the admin notification for req
func (n *Notifier) CourseRequested(req *models.CourseRequest) {
	if n == nil || n.sender == nil || n.to == "" {
		return
	}

	description := ""
	if req.Description != nil {
		description = *req.Description
	}
	body := email.CourseRequestHTML(req.ClassName, req.ClassTag, description, n.reviewURL)
	subject := "New course request: " + req.ClassTag

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.sender.Send(ctx, n.to, subject, body); err != nil {
			n.logger.Warn().Err(err).Int64("requestId", req.ID).Msg("Failed to notify admin about course request")
		}
	}()
}

// Wait blocks until queued notifications are sent
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}
