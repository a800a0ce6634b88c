package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Sink delivers an event to the recipients it addresses.
type Sink interface {
	Notify(ctx context.Context, ev Event) error
}

// Multi fans an event out to every sink; one failing sink does not stop the others.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events to the global zerolog logger.
type LogSink struct{}

func (LogSink) Notify(_ context.Context, ev Event) error {
	log.Info().
		Str("event", ev.Type).
		Str("subject_type", ev.SubjectType).
		Str("subject_id", ev.SubjectID.String()).
		Str("brand_id", ev.BrandID.String()).
		Str("showroom_id", ev.ShowroomID.String()).
		Str("actor_side", string(ev.ActorSide)).
		Msg("partnership event")
	return nil
}

// Publisher dispatches committed events. Delivery failures are logged and never
// reach the caller. A nil Publisher drops events.
type Publisher struct {
	Sink    Sink
	Async   bool
	Timeout time.Duration
}

func (p *Publisher) Publish(ctx context.Context, events ...Event) {
	if p == nil || p.Sink == nil || len(events) == 0 {
		return
	}
	if !p.Async {
		p.deliver(ctx, events)
		return
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		p.deliver(ctx, events)
	}()
}

func (p *Publisher) deliver(ctx context.Context, events []Event) {
	for _, ev := range events {
		if err := p.Sink.Notify(ctx, ev); err != nil {
			log.Warn().Err(err).Str("event", ev.Type).Str("subject_id", ev.SubjectID.String()).Msg("notification delivery failed")
		}
	}
}
