package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/adapter/eventsink"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/config"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
)

type discardAudit struct{}

func (discardAudit) Create(context.Context, *model.AuditLog) error { return nil }

func TestNewEventSink(t *testing.T) {
	t.Run("audit only", func(t *testing.T) {
		sink, closers, err := NewEventSink(context.Background(), &config.Config{}, discardAudit{}, zap.NewNop())
		require.NoError(t, err)
		assert.Empty(t, closers)
		require.IsType(t, eventsink.Fanout{}, sink)
		assert.Len(t, sink.(eventsink.Fanout), 1)
	})

	t.Run("mail alerts need recipients", func(t *testing.T) {
		cfg := &config.Config{Alerts: config.AlertConfig{SMTPHost: "smtp.local", SMTPPort: 587}}
		sink, _, err := NewEventSink(context.Background(), cfg, discardAudit{}, zap.NewNop())
		require.NoError(t, err)
		assert.Len(t, sink.(eventsink.Fanout), 1)

		cfg.Alerts.To = []string{"ops@example.com"}
		sink, _, err = NewEventSink(context.Background(), cfg, discardAudit{}, zap.NewNop())
		require.NoError(t, err)
		assert.Len(t, sink.(eventsink.Fanout), 2)
	})

	t.Run("unreachable redis fails", func(t *testing.T) {
		cfg := &config.Config{Redis: config.RedisConfig{Addr: "127.0.0.1:1"}}
		_, _, err := NewEventSink(context.Background(), cfg, discardAudit{}, zap.NewNop())
		assert.Error(t, err)
	})
}
