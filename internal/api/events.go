package api

import (
	"context"

	"github.com/hikgate/hikgate-core/internal/events"
)

// Events past this backlog are dropped; a slow broker must not hold up
// the response of the request that caused them.
const eventChanSize = 256

// publish queues ev for the background publisher.
func (s *Server) publish(ev events.Event) {
	if s.eventCh == nil {
		return
	}
	select {
	case s.eventCh <- ev:
	default:
		s.logger.Warn("event queue full, event dropped",
			"kind", ev.Kind,
			"person_id", ev.PersonID,
		)
	}
}

// drainEvents hands queued events to the publisher until ctx ends, then
// publishes the backlog.
func (s *Server) drainEvents(ctx context.Context) {
	send := func(ev events.Event) {
		if err := s.events.Publish(ev); err != nil {
			s.logger.Warn("change event not published", "kind", ev.Kind, "error", err)
		}
	}

	for ctx.Err() == nil {
		select {
		case ev := <-s.eventCh:
			send(ev)
		case <-ctx.Done():
		}
	}
	for n := len(s.eventCh); n > 0; n-- {
		send(<-s.eventCh)
	}
}
