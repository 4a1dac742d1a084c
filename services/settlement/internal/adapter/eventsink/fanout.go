package eventsink

import (
	"context"
	"errors"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/event"
)

// Fanout delivers each event to every sink and joins their errors.
type Fanout []event.Sink

func (f Fanout) Publish(ctx context.Context, evt event.Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
