package notify

import (
	"context"
	"errors"
	"fmt"
)

// Fanout hands every event to all sinks. A failing sink does not stop the others.
type Fanout struct {
	sinks []Notifier
}

func NewFanout(sinks ...Notifier) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", event.Kind, err))
		}
	}
	return errors.Join(errs...)
}
