package tracking

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// fakeStore is an in-memory TicketStore honoring the store contract:
// case-insensitive matching and soft-delete exclusion.
type fakeStore struct {
	tickets     []domain.RepairTicket
	err         error
	numberCalls int
	nameCalls   int
}

func (f *fakeStore) FindByTicketNumber(ctx context.Context, number string) (*domain.RepairTicket, error) {
	f.numberCalls++
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.tickets {
		ticket := f.tickets[i]
		if ticket.DeletedAt != nil {
			continue
		}
		if strings.EqualFold(ticket.TicketNumber, number) {
			return &ticket, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindByCustomerNameSubstring(ctx context.Context, fragment string, limit, offset int) ([]domain.RepairTicket, int, error) {
	f.nameCalls++
	if f.err != nil {
		return nil, 0, f.err
	}
	needle := strings.ToLower(strings.TrimSpace(fragment))
	var matched []domain.RepairTicket
	for _, ticket := range f.tickets {
		if ticket.DeletedAt != nil {
			continue
		}
		if strings.Contains(strings.ToLower(ticket.CustomerName), needle) {
			matched = append(matched, ticket)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	if offset >= total {
		return []domain.RepairTicket{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func newTestResolver(store *fakeStore) *Resolver {
	return NewResolver(store, zap.NewNop())
}

func TestSearchByTicketNumberExactMatch(t *testing.T) {
	now := time.Now()
	store := &fakeStore{tickets: []domain.RepairTicket{
		{ID: "t1", TicketNumber: "RPR-2025-0001", CustomerName: "Jane Doe", Status: domain.StatusReady, CreatedAt: now},
		{ID: "t2", TicketNumber: "RPR-2025-0002", CustomerName: "Jane Doe", Status: domain.StatusReceived, CreatedAt: now},
	}}
	resolver := newTestResolver(store)

	result, err := resolver.Search(context.Background(), "rpr-2025-0001", KeyTicketNumber, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalMatched)
	require.Len(t, result.Tickets, 1)
	assert.Equal(t, "t1", result.Tickets[0].ID)
}

func TestSearchByTicketNumberNoMatchIsEmptyResult(t *testing.T) {
	store := &fakeStore{}
	resolver := newTestResolver(store)

	result, err := resolver.Search(context.Background(), "RPR-2025-9999", KeyTicketNumber, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalMatched)
	assert.Empty(t, result.Tickets)
}

func TestSearchByCustomerNameSubstring(t *testing.T) {
	now := time.Now()
	store := &fakeStore{tickets: []domain.RepairTicket{
		{ID: "t1", TicketNumber: "RPR-2025-0001", CustomerName: "John Smith", Status: domain.StatusReceived, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "t2", TicketNumber: "RPR-2025-0002", CustomerName: "Johnny Appleseed", Status: domain.StatusReceived, CreatedAt: now.Add(-1 * time.Hour)},
		{ID: "t3", TicketNumber: "RPR-2025-0003", CustomerName: "Alice Jones", Status: domain.StatusReceived, CreatedAt: now},
	}}
	resolver := newTestResolver(store)

	result, err := resolver.Search(context.Background(), "John", KeyCustomerName, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalMatched)
	require.Len(t, result.Tickets, 2)
	// newest first
	assert.Equal(t, "t2", result.Tickets[0].ID)
	assert.Equal(t, "t1", result.Tickets[1].ID)
}

func TestSearchShortKeyRejectedBeforeLookup(t *testing.T) {
	store := &fakeStore{}
	resolver := newTestResolver(store)

	tests := []string{"", " ", "x", "  a  "}
	for _, key := range tests {
		_, err := resolver.Search(context.Background(), key, KeyCustomerName, 1, 10)
		require.Error(t, err, key)
		assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"), key)
	}
	assert.Zero(t, store.numberCalls)
	assert.Zero(t, store.nameCalls)
}

func TestSearchTrimsKeyBeforeMatching(t *testing.T) {
	store := &fakeStore{tickets: []domain.RepairTicket{
		{ID: "t1", TicketNumber: "RPR-2025-0001", CustomerName: "Jane Doe", Status: domain.StatusReady, CreatedAt: time.Now()},
	}}
	resolver := newTestResolver(store)

	result, err := resolver.Search(context.Background(), "  RPR-2025-0001  ", KeyTicketNumber, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalMatched)
}

func TestSearchUnknownKeyType(t *testing.T) {
	resolver := newTestResolver(&fakeStore{})

	_, err := resolver.Search(context.Background(), "RPR-2025-0001", SearchKeyType("device_model"), 1, 10)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))
}

func TestSearchExcludesSoftDeletedTickets(t *testing.T) {
	now := time.Now()
	deleted := now.Add(-time.Hour)
	store := &fakeStore{tickets: []domain.RepairTicket{
		{ID: "t1", TicketNumber: "RPR-2025-0001", CustomerName: "Jane Doe", Status: domain.StatusCancelled, CreatedAt: now, DeletedAt: &deleted},
	}}
	resolver := newTestResolver(store)

	byNumber, err := resolver.Search(context.Background(), "RPR-2025-0001", KeyTicketNumber, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, byNumber.TotalMatched)

	byName, err := resolver.Search(context.Background(), "Jane", KeyCustomerName, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, byName.TotalMatched)
}

func TestSearchPropagatesLookupFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	resolver := newTestResolver(store)

	for _, keyType := range []SearchKeyType{KeyTicketNumber, KeyCustomerName} {
		_, err := resolver.Search(context.Background(), "RPR-2025-0001", keyType, 1, 10)
		require.Error(t, err, string(keyType))
		assert.True(t, apperrors.HasCode(err, "LOOKUP_FAILED"), string(keyType))
	}
}

func TestSearchDefaultsPagination(t *testing.T) {
	now := time.Now()
	var tickets []domain.RepairTicket
	for i := 0; i < 15; i++ {
		tickets = append(tickets, domain.RepairTicket{
			ID:           string(rune('a' + i)),
			TicketNumber: "RPR-2025-00" + string(rune('a'+i)),
			CustomerName: "Jane Doe",
			Status:       domain.StatusReceived,
			CreatedAt:    now.Add(time.Duration(-i) * time.Minute),
		})
	}
	store := &fakeStore{tickets: tickets}
	resolver := newTestResolver(store)

	result, err := resolver.Search(context.Background(), "Jane", KeyCustomerName, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 15, result.TotalMatched)
	assert.Len(t, result.Tickets, DefaultPageSize)
}

func TestSearchSecondPage(t *testing.T) {
	now := time.Now()
	var tickets []domain.RepairTicket
	for i := 0; i < 12; i++ {
		tickets = append(tickets, domain.RepairTicket{
			ID:           string(rune('a' + i)),
			CustomerName: "Jane Doe",
			Status:       domain.StatusReceived,
			CreatedAt:    now.Add(time.Duration(-i) * time.Minute),
		})
	}
	store := &fakeStore{tickets: tickets}
	resolver := newTestResolver(store)

	result, err := resolver.Search(context.Background(), "Jane", KeyCustomerName, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, result.TotalMatched)
	assert.Len(t, result.Tickets, 2)
}

func TestTrackSingleTicketScenario(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	created := now.Add(-3 * 24 * time.Hour)
	store := &fakeStore{tickets: []domain.RepairTicket{
		{ID: "t1", TicketNumber: "RPR-2025-0001", CustomerName: "Jane Doe", Status: domain.StatusReady, CreatedAt: created},
	}}
	resolver := newTestResolver(store).WithClock(func() time.Time { return now })

	result, err := resolver.Search(context.Background(), "RPR-2025-0001", KeyTicketNumber, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalMatched)

	view, err := resolver.ProjectTimeline(&result.Tickets[0])
	require.NoError(t, err)

	for i, step := range view.Steps {
		switch {
		case i < 5:
			assert.True(t, step.IsCompleted, string(step.Status))
		case step.Status == domain.StatusReady:
			assert.True(t, step.IsCurrent)
		case step.Status == domain.StatusCompleted:
			assert.True(t, step.IsFuture)
		}
	}
	assert.False(t, view.IsOverdue)
}

func TestClassifyPriority(t *testing.T) {
	resolver := newTestResolver(&fakeStore{})

	assert.Equal(t, domain.TierSevere, resolver.ClassifyPriority(domain.PriorityUrgent))
	assert.Equal(t, domain.TierSevere, resolver.ClassifyPriority(domain.PriorityHigh))
	assert.Equal(t, domain.TierMedium, resolver.ClassifyPriority(domain.PriorityNormal))
	assert.Equal(t, domain.TierMild, resolver.ClassifyPriority(domain.PriorityLow))
}
