package events

import (
	"context"

	"go.uber.org/zap"

	"hotelapi/pkg/logger"
)

// Publisher announces committed booking events to other services.
type Publisher interface {
	Publish(ctx context.Context, subject, eventType string, data any) error
}

const (
	SubjectBooking = "booking.events"
	SubjectEmail   = "booking.email"
)

// Announce publishes after the transaction committed. Failures are logged and
// never fail the request.
func Announce(ctx context.Context, p Publisher, subject, eventType string, data any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, subject, eventType, data); err != nil {
		logger.FromContext(ctx).Warn("event publish failed",
			zap.String("subject", subject),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
