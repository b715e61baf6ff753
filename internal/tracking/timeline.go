package tracking

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// overdueThreshold is how long an active ticket may sit before it counts
// as overdue. The boundary is strict: exactly seven days is not overdue.
const overdueThreshold = 7 * 24 * time.Hour

// TimelineStep is one of the seven ordered statuses with its rendering flags.
type TimelineStep struct {
	Status      domain.RepairStatus
	IsCompleted bool
	IsCurrent   bool
	IsFuture    bool
}

// TimelineView is the derived presentation state for one ticket.
type TimelineView struct {
	Steps       []TimelineStep
	AgeInDays   int
	IsOverdue   bool
	IsCancelled bool
}

// TicketView pairs a ticket with its projected timeline for batch rendering.
type TicketView struct {
	Ticket   domain.RepairTicket
	Timeline TimelineView
}

func projectTimeline(ticket *domain.RepairTicket, now time.Time) (*TimelineView, error) {
	if !ticket.Status.IsKnown() {
		return nil, apperrors.NewDataIntegrityError("ticket has unknown status", map[string]any{
			"ticket_id": ticket.ID,
			"status":    string(ticket.Status),
		})
	}

	cancelled := ticket.Status == domain.StatusCancelled
	index := domain.ProgressIndex(ticket.Status)

	steps := make([]TimelineStep, len(domain.StatusOrder))
	for i, status := range domain.StatusOrder {
		// A cancelled ticket renders no progress at all; the cancelled
		// marker on the view replaces the linear steps.
		step := TimelineStep{Status: status}
		switch {
		case cancelled:
		case i < index:
			step.IsCompleted = true
		case i == index:
			step.IsCurrent = true
		default:
			step.IsFuture = true
		}
		steps[i] = step
	}

	age := now.Sub(ticket.CreatedAt)
	view := &TimelineView{
		Steps:       steps,
		AgeInDays:   int(age / (24 * time.Hour)),
		IsOverdue:   age > overdueThreshold && !ticket.Status.IsTerminal(),
		IsCancelled: cancelled,
	}
	return view, nil
}
