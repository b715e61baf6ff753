package dto

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CustomerName        string                `json:"customer_name"`
	CustomerEmail       *string               `json:"customer_email"`
	CustomerPhone       *string               `json:"customer_phone"`
	DeviceType          string                `json:"device_type"`
	DeviceBrand         string                `json:"device_brand"`
	DeviceModel         string                `json:"device_model"`
	IssueDescription    string                `json:"issue_description"`
	Priority            domain.RepairPriority `json:"priority"`
	EstimatedCost       *float64              `json:"estimated_cost"`
	EstimatedCompletion *time.Time            `json:"estimated_completion"`
	CustomerNotes       *string               `json:"customer_notes"`
}

// UpdateTicketRequest carries staff edits; absent fields stay untouched.
type UpdateTicketRequest struct {
	CustomerName        *string    `json:"customer_name"`
	CustomerEmail       *string    `json:"customer_email"`
	CustomerPhone       *string    `json:"customer_phone"`
	DeviceType          *string    `json:"device_type"`
	DeviceBrand         *string    `json:"device_brand"`
	DeviceModel         *string    `json:"device_model"`
	IssueDescription    *string    `json:"issue_description"`
	EstimatedCost       *float64   `json:"estimated_cost"`
	FinalCost           *float64   `json:"final_cost"`
	EstimatedCompletion *time.Time `json:"estimated_completion"`
	CustomerNotes       *string    `json:"customer_notes"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status  domain.RepairStatus `json:"status"`
	Comment string              `json:"comment"`
	Force   bool                `json:"force"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.RepairPriority `json:"priority"`
}

// DeleteTicketRequest payload.
type DeleteTicketRequest struct {
	Reason string `json:"reason"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID                  string                `json:"id"`
	TicketNumber        string                `json:"ticket_number"`
	CustomerName        string                `json:"customer_name"`
	CustomerEmail       *string               `json:"customer_email,omitempty"`
	CustomerPhone       *string               `json:"customer_phone,omitempty"`
	DeviceType          string                `json:"device_type"`
	DeviceBrand         string                `json:"device_brand"`
	DeviceModel         string                `json:"device_model"`
	IssueDescription    string                `json:"issue_description"`
	Status              domain.RepairStatus   `json:"status"`
	Priority            domain.RepairPriority `json:"priority"`
	PriorityTier        domain.DisplayTier    `json:"priority_tier"`
	EstimatedCost       *float64              `json:"estimated_cost,omitempty"`
	FinalCost           *float64              `json:"final_cost,omitempty"`
	EstimatedCompletion *time.Time            `json:"estimated_completion,omitempty"`
	CustomerNotes       *string               `json:"customer_notes,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

// TimelineStepResponse is one rendered step of the repair progress bar.
type TimelineStepResponse struct {
	Status      domain.RepairStatus `json:"status"`
	IsCompleted bool                `json:"is_completed"`
	IsCurrent   bool                `json:"is_current"`
	IsFuture    bool                `json:"is_future"`
}

// TimelineResponse is the derived tracking view for one ticket.
type TimelineResponse struct {
	Steps       []TimelineStepResponse `json:"steps"`
	AgeInDays   int                    `json:"age_in_days"`
	IsOverdue   bool                   `json:"is_overdue"`
	IsCancelled bool                   `json:"is_cancelled"`
}

// TrackedTicketResponse pairs a ticket with its timeline.
type TrackedTicketResponse struct {
	Ticket   TicketResponse   `json:"ticket"`
	Timeline TimelineResponse `json:"timeline"`
}

// TrackResponse is the public tracking search result.
type TrackResponse struct {
	SearchType   string                  `json:"search_type"`
	TotalMatched int                     `json:"total_matched"`
	Results      []TrackedTicketResponse `json:"results"`
	Message      string                  `json:"message,omitempty"`
}
