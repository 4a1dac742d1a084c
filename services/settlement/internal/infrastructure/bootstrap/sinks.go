package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/qraft-Inc/coffeetrace-sub002/pkg/messaging"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/adapter/eventsink"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/config"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/event"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

// NewEventSink builds the event fan-out. The audit log is always written;
// Redis, Kafka and mail alerts are added when configured.
func NewEventSink(ctx context.Context, cfg *config.Config, audit repository.AuditLogRepository, logger *zap.Logger) (event.Sink, []func() error, error) {
	sinks := eventsink.Fanout{eventsink.NewAuditSink(audit)}
	var closers []func() error

	if cfg.Redis.Addr != "" {
		publisher, err := messaging.NewRedisPublisher(ctx, messaging.RedisOptions{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  5 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		if err != nil {
			return nil, closers, fmt.Errorf("failed to connect redis: %w", err)
		}
		closers = append(closers, publisher.Close)
		sinks = append(sinks, eventsink.NewRedisSink(publisher, cfg.Redis.EventsChannel, cfg.Redis.AlertsChannel))
		logger.Info("Redis event sink enabled", zap.String("channel", cfg.Redis.EventsChannel))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := eventsink.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.ClientID)
		if err != nil {
			return nil, closers, fmt.Errorf("failed to create kafka producer: %w", err)
		}
		sink := eventsink.NewKafkaSink(producer, cfg.Kafka.Topic)
		closers = append(closers, sink.Close)
		sinks = append(sinks, sink)
		logger.Info("Kafka event sink enabled", zap.String("topic", cfg.Kafka.Topic))
	}

	if cfg.Alerts.SMTPHost != "" && len(cfg.Alerts.To) > 0 {
		sender := eventsink.NewSMTPSender(cfg.Alerts.SMTPHost, cfg.Alerts.SMTPPort, cfg.Alerts.Username, cfg.Alerts.Password)
		sinks = append(sinks, eventsink.NewMailAlerter(sender, cfg.Alerts.From, cfg.Alerts.To))
		logger.Info("Mail alerts enabled", zap.Strings("to", cfg.Alerts.To))
	}

	return sinks, closers, nil
}
