package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/tracking"
)

// TrackingService fronts the resolver for the public tracking page. The
// resolver itself stays free of side effects; this layer emits the
// ticket-viewed event when a search resolves to exactly one ticket.
type TrackingService struct {
	resolver   *tracking.Resolver
	dispatcher events.Dispatcher
}

// NewTrackingService constructs the service.
func NewTrackingService(resolver *tracking.Resolver, dispatcher events.Dispatcher) *TrackingService {
	return &TrackingService{resolver: resolver, dispatcher: dispatcher}
}

// Track resolves a customer-supplied search key.
func (s *TrackingService) Track(ctx context.Context, key string, keyType tracking.SearchKeyType, page, pageSize int) (*tracking.SearchResult, error) {
	result, err := s.resolver.Search(ctx, key, keyType, page, pageSize)
	if err != nil {
		return nil, err
	}
	if result.TotalMatched == 1 && len(result.Tickets) == 1 && s.dispatcher != nil {
		ticket := result.Tickets[0]
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketViewed,
			TicketID:  ticket.ID,
			Timestamp: time.Now(),
			Payload: events.TicketViewedPayload{
				TicketNumber: ticket.TicketNumber,
				SearchType:   string(keyType),
			},
		})
	}
	return result, nil
}

// ProjectViews renders timelines for the matched tickets, omitting corrupt
// records rather than failing the whole response.
func (s *TrackingService) ProjectViews(result *tracking.SearchResult) []tracking.TicketView {
	return s.resolver.ProjectAll(result.Tickets)
}
