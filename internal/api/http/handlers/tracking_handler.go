package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/service"
	"github.com/spec-kit/repair-service/internal/tracking"
)

// TrackingHandler serves the public repair tracking endpoint.
type TrackingHandler struct {
	service *service.TrackingService
}

// NewTrackingHandler constructs handler.
func NewTrackingHandler(trackingService *service.TrackingService) *TrackingHandler {
	return &TrackingHandler{service: trackingService}
}

// Track GET /track.
func (h *TrackingHandler) Track(c *fiber.Ctx) error {
	keyType := tracking.SearchKeyType(c.Query("type", string(tracking.KeyTicketNumber)))
	page := parseInt(c.Query("page"), tracking.DefaultPage)
	pageSize := parseInt(c.Query("page_size"), tracking.DefaultPageSize)

	result, err := h.service.Track(c.UserContext(), c.Query("q"), keyType, page, pageSize)
	if err != nil {
		return err
	}

	views := h.service.ProjectViews(result)
	resp := dto.TrackResponse{
		SearchType:   string(keyType),
		TotalMatched: result.TotalMatched,
		Results:      trackedTicketResponses(views),
	}
	if result.TotalMatched == 0 {
		resp.Message = emptyResultMessage(keyType)
	}
	return c.JSON(fiber.Map{"data": resp})
}

// emptyResultMessage phrases the no-match outcome per search type.
func emptyResultMessage(keyType tracking.SearchKeyType) string {
	if keyType == tracking.KeyCustomerName {
		return "no ticket found for that customer name"
	}
	return "no ticket found for that ticket number"
}

func trackedTicketResponses(views []tracking.TicketView) []dto.TrackedTicketResponse {
	resp := make([]dto.TrackedTicketResponse, 0, len(views))
	for i := range views {
		resp = append(resp, dto.TrackedTicketResponse{
			Ticket:   ticketResponse(&views[i].Ticket),
			Timeline: timelineResponse(&views[i].Timeline),
		})
	}
	return resp
}

func ticketResponse(ticket *domain.RepairTicket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                  ticket.ID,
		TicketNumber:        ticket.TicketNumber,
		CustomerName:        ticket.CustomerName,
		CustomerEmail:       ticket.CustomerEmail,
		CustomerPhone:       ticket.CustomerPhone,
		DeviceType:          ticket.DeviceType,
		DeviceBrand:         ticket.DeviceBrand,
		DeviceModel:         ticket.DeviceModel,
		IssueDescription:    ticket.IssueDescription,
		Status:              ticket.Status,
		Priority:            ticket.Priority,
		PriorityTier:        ticket.Priority.DisplayTier(),
		EstimatedCost:       ticket.EstimatedCost,
		FinalCost:           ticket.FinalCost,
		EstimatedCompletion: ticket.EstimatedCompletion,
		CustomerNotes:       ticket.CustomerNotes,
		CreatedAt:           ticket.CreatedAt,
		UpdatedAt:           ticket.UpdatedAt,
	}
}

func timelineResponse(view *tracking.TimelineView) dto.TimelineResponse {
	steps := make([]dto.TimelineStepResponse, 0, len(view.Steps))
	for _, step := range view.Steps {
		steps = append(steps, dto.TimelineStepResponse{
			Status:      step.Status,
			IsCompleted: step.IsCompleted,
			IsCurrent:   step.IsCurrent,
			IsFuture:    step.IsFuture,
		})
	}
	return dto.TimelineResponse{
		Steps:       steps,
		AgeInDays:   view.AgeInDays,
		IsOverdue:   view.IsOverdue,
		IsCancelled: view.IsCancelled,
	}
}
