package tracking

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// SearchKeyType selects which ticket field a search key is matched against.
type SearchKeyType string

const (
	KeyTicketNumber SearchKeyType = "ticket_number"
	KeyCustomerName SearchKeyType = "customer_name"
)

const (
	minKeyLength    = 2
	DefaultPage     = 1
	DefaultPageSize = 10
)

// TicketStore is the persistence collaborator the resolver queries. Both
// lookups are case-insensitive and exclude soft-deleted tickets.
// FindByTicketNumber returns (nil, nil) when no ticket matches.
type TicketStore interface {
	FindByTicketNumber(ctx context.Context, number string) (*domain.RepairTicket, error)
	FindByCustomerNameSubstring(ctx context.Context, fragment string, limit, offset int) ([]domain.RepairTicket, int, error)
}

// SearchResult holds the tickets matched by one search call.
type SearchResult struct {
	Tickets      []domain.RepairTicket
	TotalMatched int
}

// Resolver resolves user-supplied search keys to repair tickets and derives
// the timeline view consumed by the tracking page and the admin list. It is
// stateless and read-only; notification side effects belong to callers.
type Resolver struct {
	store  TicketStore
	logger *zap.Logger
	now    func() time.Time
}

// NewResolver constructs a resolver around the given store.
func NewResolver(store TicketStore, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the resolver's clock. Used by tests.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Search resolves key to matching tickets. Ticket-number keys match exactly
// (case-insensitive, at most one result); customer-name keys match as a
// case-insensitive substring. Zero matches is a successful empty result,
// never an error.
func (r *Resolver) Search(ctx context.Context, key string, keyType SearchKeyType, page, pageSize int) (*SearchResult, error) {
	key = strings.TrimSpace(key)
	if len(key) < minKeyLength {
		return nil, apperrors.NewValidationError("query too short", map[string]any{
			"min_length": minKeyLength,
		})
	}
	if page <= 0 {
		page = DefaultPage
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	switch keyType {
	case KeyTicketNumber:
		ticket, err := r.store.FindByTicketNumber(ctx, key)
		if err != nil {
			return nil, apperrors.NewLookupError(err)
		}
		if ticket == nil {
			return &SearchResult{Tickets: []domain.RepairTicket{}}, nil
		}
		return &SearchResult{Tickets: []domain.RepairTicket{*ticket}, TotalMatched: 1}, nil
	case KeyCustomerName:
		offset := (page - 1) * pageSize
		tickets, total, err := r.store.FindByCustomerNameSubstring(ctx, key, pageSize, offset)
		if err != nil {
			return nil, apperrors.NewLookupError(err)
		}
		if tickets == nil {
			tickets = []domain.RepairTicket{}
		}
		return &SearchResult{Tickets: tickets, TotalMatched: total}, nil
	default:
		return nil, apperrors.NewValidationError("unknown search key type", map[string]any{
			"key_type": string(keyType),
		})
	}
}

// ProjectTimeline derives the timeline view for one ticket.
func (r *Resolver) ProjectTimeline(ticket *domain.RepairTicket) (*TimelineView, error) {
	return projectTimeline(ticket, r.now())
}

// ProjectAll derives timeline views for a batch of tickets. A corrupt
// record is logged and omitted; it never aborts the rest of the batch.
func (r *Resolver) ProjectAll(tickets []domain.RepairTicket) []TicketView {
	now := r.now()
	views := make([]TicketView, 0, len(tickets))
	for i := range tickets {
		view, err := projectTimeline(&tickets[i], now)
		if err != nil {
			r.logger.Warn("omitting ticket with corrupt status",
				zap.String("ticket_id", tickets[i].ID),
				zap.String("ticket_number", tickets[i].TicketNumber),
				zap.String("status", string(tickets[i].Status)))
			continue
		}
		views = append(views, TicketView{Ticket: tickets[i], Timeline: *view})
	}
	return views
}

// ClassifyPriority maps a priority to its presentation tier.
func (r *Resolver) ClassifyPriority(priority domain.RepairPriority) domain.DisplayTier {
	return priority.DisplayTier()
}
