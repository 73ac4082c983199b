package events

import (
	"context"
	"log/slog"
)

// Topic names used when publishing events.
const (
	TopicAchievementEvents = "achievement.events"
	TopicActivityEvents    = "activity.events"
)

// Publisher delivers domain events to interested parties.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any)
}

type logPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher returns a Publisher that writes each event as a structured log record.
func NewLogPublisher(logger *slog.Logger) Publisher {
	return logPublisher{logger: logger}
}

func (p logPublisher) Publish(ctx context.Context, topic string, payload any) {
	p.logger.InfoContext(ctx, "event published", slog.String("topic", topic), slog.Any("payload", payload))
}

type nopPublisher struct{}

// NopPublisher discards every event.
func NopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, string, any) {}
