// Package services holds the business logic behind the HTTP controllers. Services depend on
// narrow interfaces over the repositories so they can be tested against in-memory fakes.
package services

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/pkg/email"
	"github.com/yigit/ekklesia/internal/pkg/websocket"
)

// Notifier sends notification emails without blocking the caller
type Notifier interface {
	// Notify queues one email to a single profile
	Notify(tmpl email.Template, to *models.Profile, data email.Data)
	// Broadcast queues one BCC email per subscriber category with recipients and returns
	// the number of emails queued
	Broadcast(ctx context.Context, tmpl email.Template, data email.Data) (int, error)
}

// FeedPublisher pushes live feed events to connected clients
type FeedPublisher interface {
	Publish(ev websocket.Event)
}

// ImageStore saves uploaded images
type ImageStore interface {
	Save(ctx context.Context, fileHeader *multipart.FileHeader, subPath string) (string, error)
	Delete(ctx context.Context, fileURL string) error
}

// Clock returns the current time
type Clock func() time.Time

func displayDate(t time.Time) string {
	return t.Format("02/01/2006 15:04")
}
