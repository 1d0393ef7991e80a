package service

import (
	"context"

	"openobservatory/internal/notifications"
)

// EventPublisher delivers realtime events to a user. *notifications.Notifier
// implements it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, userID uint, ev notifications.Event) error
}

type noopPublisher struct{}

func (noopPublisher) PublishEvent(context.Context, uint, notifications.Event) error { return nil }

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
