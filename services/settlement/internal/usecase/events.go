package usecase

import (
	"context"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/event"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

// publisher wraps the injected sink so a failing sink never changes a
// business outcome.
type publisher struct {
	sink   event.Sink
	logger *zap.Logger
	now    func() time.Time
}

func newPublisher(sink event.Sink, logger *zap.Logger) publisher {
	if sink == nil {
		sink = event.Nop()
	}
	return publisher{sink: sink, logger: logger, now: time.Now}
}

func (p publisher) emit(ctx context.Context, evt event.Event) {
	if evt.Severity == "" {
		evt.Severity = event.SeverityInfo
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = p.now().UTC()
	}
	if ob, ok := ctx.Value(outboxKey{}).(*outbox); ok {
		ob.add(p, evt)
		return
	}
	p.publish(ctx, evt)
}

func (p publisher) publish(ctx context.Context, evt event.Event) {
	if err := p.sink.Publish(ctx, evt); err != nil {
		p.logger.Warn("failed to publish settlement event",
			zap.String("event_type", evt.Type),
			zap.String("entity_id", evt.EntityID),
			zap.Error(err))
	}
}

type outboxKey struct{}

type pendingEvent struct {
	publisher publisher
	event     event.Event
}

// outbox holds events raised inside a transaction until it commits.
type outbox struct {
	mu     sync.Mutex
	events []pendingEvent
}

func (o *outbox) add(p publisher, evt event.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, pendingEvent{publisher: p, event: evt})
}

func (o *outbox) drain() []pendingEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	events := o.events
	o.events = nil
	return events
}

// inTransaction runs fn inside a transaction. Events emitted by fn reach the
// sinks only after commit and are dropped on rollback, so a sink never runs
// while row locks are held.
func inTransaction(ctx context.Context, transactor repository.Transactor, fn func(ctx context.Context) error) error {
	ob := &outbox{}
	if err := transactor.WithinTransaction(context.WithValue(ctx, outboxKey{}, ob), fn); err != nil {
		return err
	}
	for _, pending := range ob.drain() {
		// emit, not publish: an enclosing transaction keeps its own outbox.
		pending.publisher.emit(ctx, pending.event)
	}
	return nil
}

const referenceAlphabet = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// newReference returns prefix + a 16 character nanoid.
func newReference(prefix string) (string, error) {
	id, err := gonanoid.Generate(referenceAlphabet, 16)
	if err != nil {
		return "", err
	}
	return prefix + id, nil
}
