package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// TicketCache invalidates cached tracking lookups after mutations.
type TicketCache interface {
	Invalidate(ctx context.Context, ticketNumber string) error
}

// TicketService coordinates the staff-facing repair ticket lifecycle.
type TicketService struct {
	tickets    repository.TicketRepository
	cache      TicketCache
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Cache      TicketCache
	Dispatcher events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CustomerName        string
	CustomerEmail       *string
	CustomerPhone       *string
	DeviceType          string
	DeviceBrand         string
	DeviceModel         string
	IssueDescription    string
	Priority            domain.RepairPriority
	EstimatedCost       *float64
	EstimatedCompletion *time.Time
	CustomerNotes       *string
}

// TicketDetailsInput describes staff edits to non-lifecycle fields. Nil
// pointers leave the current value untouched.
type TicketDetailsInput struct {
	CustomerName        *string
	CustomerEmail       *string
	CustomerPhone       *string
	DeviceType          *string
	DeviceBrand         *string
	DeviceModel         *string
	IssueDescription    *string
	EstimatedCost       *float64
	FinalCost           *float64
	EstimatedCompletion *time.Time
	CustomerNotes       *string
}

// TicketListFilter describes admin listing filters.
type TicketListFilter struct {
	Statuses   []domain.RepairStatus
	Priorities []domain.RepairPriority
	SearchTerm *string
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket registers a new device for repair. Status starts at
// received and priority defaults to normal.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.RepairTicket, error) {
	name := strings.TrimSpace(input.CustomerName)
	issue := strings.TrimSpace(input.IssueDescription)
	if name == "" || issue == "" {
		return nil, apperrors.NewValidationError("customer_name and issue_description required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	if !priority.IsKnown() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{
			"priority": string(priority),
		})
	}

	number, err := s.tickets.NextTicketNumber(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	ticket := &domain.RepairTicket{
		TicketNumber:        number,
		CustomerName:        name,
		CustomerEmail:       input.CustomerEmail,
		CustomerPhone:       input.CustomerPhone,
		DeviceType:          strings.TrimSpace(input.DeviceType),
		DeviceBrand:         strings.TrimSpace(input.DeviceBrand),
		DeviceModel:         strings.TrimSpace(input.DeviceModel),
		IssueDescription:    issue,
		Status:              domain.StatusReceived,
		Priority:            priority,
		EstimatedCost:       input.EstimatedCost,
		EstimatedCompletion: input.EstimatedCompletion,
		CustomerNotes:       input.CustomerNotes,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketNumber,
			CustomerName: ticket.CustomerName,
			DeviceModel:  ticket.DeviceModel,
			Priority:     ticket.Priority,
		},
	})
	return ticket, nil
}

// GetTicket fetches one ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.RepairTicket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, err
	}
	return ticket, nil
}

// ListTickets returns the admin ticket list, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.RepairTicket, error) {
	return s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// UpdateStatus moves a ticket through its lifecycle. Illegal jumps are
// rejected unless force is set; force is the administrative correction
// path and still only accepts known statuses.
func (s *TicketService) UpdateStatus(ctx context.Context, id string, newStatus domain.RepairStatus, comment string, force bool) (*domain.RepairTicket, error) {
	if !newStatus.IsKnown() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{
			"status": string(newStatus),
		})
	}
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if !force && !isValidTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewTransitionError("status transition not allowed", map[string]any{
			"from": string(ticket.Status),
			"to":   string(newStatus),
		})
	}
	oldStatus := ticket.Status
	ticket.Status = newStatus
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, ticket.TicketNumber)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Forced:    force,
			Comment:   comment,
		},
	})
	return ticket, nil
}

// UpdatePriority changes ticket priority.
func (s *TicketService) UpdatePriority(ctx context.Context, id string, newPriority domain.RepairPriority) (*domain.RepairTicket, error) {
	if !newPriority.IsKnown() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{
			"priority": string(newPriority),
		})
	}
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	oldPriority := ticket.Priority
	ticket.Priority = newPriority
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, ticket.TicketNumber)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketPriorityChanged,
		TicketID: ticket.ID,
		Payload: events.TicketPriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: newPriority,
		},
	})
	return ticket, nil
}

// UpdateDetails applies staff edits to contact, device and cost fields.
func (s *TicketService) UpdateDetails(ctx context.Context, id string, input TicketDetailsInput) (*domain.RepairTicket, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.CustomerName != nil {
		name := strings.TrimSpace(*input.CustomerName)
		if name == "" {
			return nil, apperrors.NewValidationError("customer_name cannot be empty", nil)
		}
		ticket.CustomerName = name
	}
	if input.IssueDescription != nil {
		issue := strings.TrimSpace(*input.IssueDescription)
		if issue == "" {
			return nil, apperrors.NewValidationError("issue_description cannot be empty", nil)
		}
		ticket.IssueDescription = issue
	}
	if input.CustomerEmail != nil {
		ticket.CustomerEmail = input.CustomerEmail
	}
	if input.CustomerPhone != nil {
		ticket.CustomerPhone = input.CustomerPhone
	}
	if input.DeviceType != nil {
		ticket.DeviceType = strings.TrimSpace(*input.DeviceType)
	}
	if input.DeviceBrand != nil {
		ticket.DeviceBrand = strings.TrimSpace(*input.DeviceBrand)
	}
	if input.DeviceModel != nil {
		ticket.DeviceModel = strings.TrimSpace(*input.DeviceModel)
	}
	if input.EstimatedCost != nil {
		ticket.EstimatedCost = input.EstimatedCost
	}
	if input.FinalCost != nil {
		ticket.FinalCost = input.FinalCost
	}
	if input.EstimatedCompletion != nil {
		ticket.EstimatedCompletion = input.EstimatedCompletion
	}
	if input.CustomerNotes != nil {
		ticket.CustomerNotes = input.CustomerNotes
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, ticket.TicketNumber)
	return ticket, nil
}

// DeleteTicket retires a ticket: it is marked deleted and cancelled in one
// step and disappears from every subsequent lookup.
func (s *TicketService) DeleteTicket(ctx context.Context, id, reason string) error {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tickets.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return err
	}
	s.invalidateCache(ctx, ticket.TicketNumber)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCancelled,
		TicketID: ticket.ID,
		Payload: events.TicketCancelledPayload{
			TicketNumber: ticket.TicketNumber,
			Reason:       reason,
		},
	})
	return nil
}

func (s *TicketService) invalidateCache(ctx context.Context, ticketNumber string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, ticketNumber)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

var allowedTransitions = map[domain.RepairStatus][]domain.RepairStatus{
	domain.StatusReceived:      {domain.StatusDiagnosing, domain.StatusCancelled},
	domain.StatusDiagnosing:    {domain.StatusAwaitingParts, domain.StatusRepairing, domain.StatusCancelled},
	domain.StatusAwaitingParts: {domain.StatusRepairing, domain.StatusDiagnosing, domain.StatusCancelled},
	domain.StatusRepairing:     {domain.StatusQualityCheck, domain.StatusAwaitingParts, domain.StatusCancelled},
	domain.StatusQualityCheck:  {domain.StatusReady, domain.StatusRepairing, domain.StatusCancelled},
	domain.StatusReady:         {domain.StatusCompleted, domain.StatusCancelled},
	domain.StatusCompleted:     {},
	domain.StatusCancelled:     {},
}

func isValidTransition(current, next domain.RepairStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
