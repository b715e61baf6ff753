package events

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "repair_ticket_created"
	EventTicketStatusChanged   EventType = "repair_status_changed"
	EventTicketPriorityChanged EventType = "repair_priority_changed"
	EventTicketCancelled       EventType = "repair_ticket_cancelled"
	EventTicketViewed          EventType = "repair_ticket_viewed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	CustomerName string                `json:"customer_name"`
	DeviceModel  string                `json:"device_model,omitempty"`
	Priority     domain.RepairPriority `json:"priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.RepairStatus `json:"old_status"`
	NewStatus domain.RepairStatus `json:"new_status"`
	Forced    bool                `json:"forced,omitempty"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.RepairPriority `json:"old_priority"`
	NewPriority domain.RepairPriority `json:"new_priority"`
}

// TicketCancelledPayload payload.
type TicketCancelledPayload struct {
	TicketNumber string `json:"ticket_number"`
	Reason       string `json:"reason,omitempty"`
}

// TicketViewedPayload payload. Emitted by the tracking layer when a public
// search resolves to exactly one ticket, never by the resolver itself.
type TicketViewedPayload struct {
	TicketNumber string `json:"ticket_number"`
	SearchType   string `json:"search_type"`
}
