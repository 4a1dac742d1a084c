package eventsink

import (
	"context"
	"fmt"

	"github.com/qraft-Inc/coffeetrace-sub002/pkg/messaging"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/event"
)

// RedisSink publishes events as JSON on a pub/sub channel. Critical events
// are also published on the alert channel.
type RedisSink struct {
	publisher    messaging.Publisher
	channel      string
	alertChannel string
}

func NewRedisSink(publisher messaging.Publisher, channel, alertChannel string) *RedisSink {
	return &RedisSink{publisher: publisher, channel: channel, alertChannel: alertChannel}
}

func (s *RedisSink) Publish(ctx context.Context, evt event.Event) error {
	if err := s.publisher.Publish(ctx, s.channel, evt); err != nil {
		return fmt.Errorf("redis publish %s: %w", evt.Type, err)
	}
	if evt.Severity == event.SeverityCritical && s.alertChannel != "" {
		if err := s.publisher.Publish(ctx, s.alertChannel, evt); err != nil {
			return fmt.Errorf("redis alert %s: %w", evt.Type, err)
		}
	}
	return nil
}
