package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// fakeTicketRepo is an in-memory TicketRepository.
type fakeTicketRepo struct {
	tickets map[string]*domain.RepairTicket
	counter int
	nextID  int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.RepairTicket{}}
}

func (f *fakeTicketRepo) Create(ctx context.Context, ticket *domain.RepairTicket) error {
	f.nextID++
	ticket.ID = fmt.Sprintf("id-%d", f.nextID)
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	clone := *ticket
	f.tickets[ticket.ID] = &clone
	return nil
}

func (f *fakeTicketRepo) Update(ctx context.Context, ticket *domain.RepairTicket) error {
	existing, ok := f.tickets[ticket.ID]
	if !ok || existing.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	clone := *ticket
	f.tickets[ticket.ID] = &clone
	return nil
}

func (f *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.RepairTicket, error) {
	ticket, ok := f.tickets[id]
	if !ok || ticket.DeletedAt != nil {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (f *fakeTicketRepo) SoftDelete(ctx context.Context, id string) error {
	ticket, ok := f.tickets[id]
	if !ok || ticket.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	now := time.Now()
	ticket.DeletedAt = &now
	ticket.Status = domain.StatusCancelled
	return nil
}

func (f *fakeTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.RepairTicket, error) {
	var result []domain.RepairTicket
	for _, ticket := range f.tickets {
		if ticket.DeletedAt != nil {
			continue
		}
		result = append(result, *ticket)
	}
	return result, nil
}

func (f *fakeTicketRepo) NextTicketNumber(ctx context.Context, now time.Time) (string, error) {
	f.counter++
	return fmt.Sprintf("RPR-%d-%04d", now.Year(), f.counter), nil
}

func (f *fakeTicketRepo) FindByTicketNumber(ctx context.Context, number string) (*domain.RepairTicket, error) {
	for _, ticket := range f.tickets {
		if ticket.DeletedAt != nil {
			continue
		}
		if strings.EqualFold(ticket.TicketNumber, number) {
			clone := *ticket
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeTicketRepo) FindByCustomerNameSubstring(ctx context.Context, fragment string, limit, offset int) ([]domain.RepairTicket, int, error) {
	var result []domain.RepairTicket
	needle := strings.ToLower(fragment)
	for _, ticket := range f.tickets {
		if ticket.DeletedAt != nil {
			continue
		}
		if strings.Contains(strings.ToLower(ticket.CustomerName), needle) {
			result = append(result, *ticket)
		}
	}
	return result, len(result), nil
}

type recordingCache struct {
	invalidated []string
}

func (c *recordingCache) Invalidate(ctx context.Context, ticketNumber string) error {
	c.invalidated = append(c.invalidated, ticketNumber)
	return nil
}

func newTestService() (*TicketService, *fakeTicketRepo, *recordingCache, events.Dispatcher) {
	repo := newFakeTicketRepo()
	cache := &recordingCache{}
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewTicketService(TicketDependencies{
		TicketRepo: repo,
		Cache:      cache,
		Dispatcher: dispatcher,
	})
	return svc, repo, cache, dispatcher
}

func TestCreateTicketDefaults(t *testing.T) {
	svc, _, _, _ := newTestService()

	ticket, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		CustomerName:     "  Jane Doe  ",
		DeviceBrand:      "Apple",
		DeviceModel:      "iPhone 13",
		IssueDescription: "cracked screen",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReceived, ticket.Status)
	assert.Equal(t, domain.PriorityNormal, ticket.Priority)
	assert.Equal(t, "Jane Doe", ticket.CustomerName)
	assert.Regexp(t, `^RPR-\d{4}-\d{4}$`, ticket.TicketNumber)
	assert.NotEmpty(t, ticket.ID)
}

func TestCreateTicketNumbersAreSequential(t *testing.T) {
	svc, _, _, _ := newTestService()

	first, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		CustomerName: "Jane Doe", IssueDescription: "battery drain",
	})
	require.NoError(t, err)
	second, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		CustomerName: "John Smith", IssueDescription: "water damage",
	})
	require.NoError(t, err)

	assert.NotEqual(t, first.TicketNumber, second.TicketNumber)
	assert.True(t, strings.HasSuffix(first.TicketNumber, "0001"))
	assert.True(t, strings.HasSuffix(second.TicketNumber, "0002"))
}

func TestCreateTicketValidation(t *testing.T) {
	svc, _, _, _ := newTestService()

	tests := []struct {
		name  string
		input TicketCreateInput
	}{
		{"missing customer name", TicketCreateInput{IssueDescription: "broken"}},
		{"missing issue", TicketCreateInput{CustomerName: "Jane Doe"}},
		{"blank fields", TicketCreateInput{CustomerName: "  ", IssueDescription: "  "}},
		{"unknown priority", TicketCreateInput{CustomerName: "Jane Doe", IssueDescription: "broken", Priority: "critical"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTicket(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))
		})
	}
}

func TestUpdateStatusFollowsTransitionTable(t *testing.T) {
	tests := []struct {
		from    domain.RepairStatus
		to      domain.RepairStatus
		allowed bool
	}{
		{domain.StatusReceived, domain.StatusDiagnosing, true},
		{domain.StatusReceived, domain.StatusCancelled, true},
		{domain.StatusReceived, domain.StatusCompleted, false},
		{domain.StatusDiagnosing, domain.StatusAwaitingParts, true},
		{domain.StatusDiagnosing, domain.StatusRepairing, true},
		{domain.StatusAwaitingParts, domain.StatusRepairing, true},
		{domain.StatusAwaitingParts, domain.StatusDiagnosing, true},
		{domain.StatusRepairing, domain.StatusQualityCheck, true},
		{domain.StatusRepairing, domain.StatusReady, false},
		{domain.StatusQualityCheck, domain.StatusReady, true},
		{domain.StatusQualityCheck, domain.StatusRepairing, true},
		{domain.StatusReady, domain.StatusCompleted, true},
		{domain.StatusReady, domain.StatusReceived, false},
		{domain.StatusCompleted, domain.StatusDiagnosing, false},
		{domain.StatusCompleted, domain.StatusCancelled, false},
		{domain.StatusCancelled, domain.StatusReceived, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_to_%s", tt.from, tt.to), func(t *testing.T) {
			svc, repo, _, _ := newTestService()
			ticket := &domain.RepairTicket{
				TicketNumber: "RPR-2025-0001", CustomerName: "Jane Doe",
				IssueDescription: "broken", Status: tt.from, Priority: domain.PriorityNormal,
			}
			require.NoError(t, repo.Create(context.Background(), ticket))

			updated, err := svc.UpdateStatus(context.Background(), ticket.ID, tt.to, "", false)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.to, updated.Status)
			} else {
				require.Error(t, err)
				assert.True(t, apperrors.HasCode(err, "INVALID_TRANSITION"))
			}
		})
	}
}

func TestUpdateStatusForceOverride(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ticket := &domain.RepairTicket{
		TicketNumber: "RPR-2025-0001", CustomerName: "Jane Doe",
		IssueDescription: "broken", Status: domain.StatusCompleted, Priority: domain.PriorityNormal,
	}
	require.NoError(t, repo.Create(context.Background(), ticket))

	updated, err := svc.UpdateStatus(context.Background(), ticket.ID, domain.StatusDiagnosing, "reopened after callback", true)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDiagnosing, updated.Status)

	// force still rejects unknown statuses
	_, err = svc.UpdateStatus(context.Background(), ticket.ID, "unknown_value", "", true)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))
}

func TestUpdateStatusInvalidatesCache(t *testing.T) {
	svc, repo, cache, _ := newTestService()
	ticket := &domain.RepairTicket{
		TicketNumber: "RPR-2025-0001", CustomerName: "Jane Doe",
		IssueDescription: "broken", Status: domain.StatusReceived, Priority: domain.PriorityNormal,
	}
	require.NoError(t, repo.Create(context.Background(), ticket))

	_, err := svc.UpdateStatus(context.Background(), ticket.ID, domain.StatusDiagnosing, "", false)
	require.NoError(t, err)
	assert.Contains(t, cache.invalidated, "RPR-2025-0001")
}

func TestUpdatePriority(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ticket := &domain.RepairTicket{
		TicketNumber: "RPR-2025-0001", CustomerName: "Jane Doe",
		IssueDescription: "broken", Status: domain.StatusReceived, Priority: domain.PriorityNormal,
	}
	require.NoError(t, repo.Create(context.Background(), ticket))

	updated, err := svc.UpdatePriority(context.Background(), ticket.ID, domain.PriorityUrgent)
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityUrgent, updated.Priority)

	_, err = svc.UpdatePriority(context.Background(), ticket.ID, "critical")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))
}

func TestUpdateDetails(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ticket := &domain.RepairTicket{
		TicketNumber: "RPR-2025-0001", CustomerName: "Jane Doe",
		IssueDescription: "broken", Status: domain.StatusReceived, Priority: domain.PriorityNormal,
	}
	require.NoError(t, repo.Create(context.Background(), ticket))

	cost := 149.99
	finalCost := 120.0
	updated, err := svc.UpdateDetails(context.Background(), ticket.ID, TicketDetailsInput{
		EstimatedCost: &cost,
		FinalCost:     &finalCost,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.EstimatedCost)
	assert.Equal(t, cost, *updated.EstimatedCost)
	require.NotNil(t, updated.FinalCost)
	assert.Equal(t, finalCost, *updated.FinalCost)
	// untouched fields survive
	assert.Equal(t, "Jane Doe", updated.CustomerName)

	empty := " "
	_, err = svc.UpdateDetails(context.Background(), ticket.ID, TicketDetailsInput{CustomerName: &empty})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))
}

func TestDeleteTicketHidesFromLookups(t *testing.T) {
	svc, repo, cache, _ := newTestService()
	ticket := &domain.RepairTicket{
		TicketNumber: "RPR-2025-0001", CustomerName: "Jane Doe",
		IssueDescription: "broken", Status: domain.StatusReceived, Priority: domain.PriorityNormal,
	}
	require.NoError(t, repo.Create(context.Background(), ticket))

	require.NoError(t, svc.DeleteTicket(context.Background(), ticket.ID, "customer withdrew"))
	assert.Contains(t, cache.invalidated, "RPR-2025-0001")

	_, err := svc.GetTicket(context.Background(), ticket.ID)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "NOT_FOUND"))

	found, err := repo.FindByTicketNumber(context.Background(), "RPR-2025-0001")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestGetTicketNotFound(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.GetTicket(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "NOT_FOUND"))
}

func TestStatusChangeEventsPublished(t *testing.T) {
	svc, repo, _, dispatcher := newTestService()

	var received []events.Event
	dispatcher.Subscribe(events.EventTicketStatusChanged, func(ctx context.Context, event events.Event) error {
		received = append(received, event)
		return nil
	})

	ticket := &domain.RepairTicket{
		TicketNumber: "RPR-2025-0001", CustomerName: "Jane Doe",
		IssueDescription: "broken", Status: domain.StatusReceived, Priority: domain.PriorityNormal,
	}
	require.NoError(t, repo.Create(context.Background(), ticket))

	_, err := svc.UpdateStatus(context.Background(), ticket.ID, domain.StatusDiagnosing, "bench check", false)
	require.NoError(t, err)

	require.Len(t, received, 1)
	payload, ok := received[0].Payload.(events.TicketStatusChangedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.StatusReceived, payload.OldStatus)
	assert.Equal(t, domain.StatusDiagnosing, payload.NewStatus)
	assert.NotEmpty(t, received[0].ID)
	assert.False(t, received[0].Timestamp.IsZero())
}
