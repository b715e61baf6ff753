package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/service"
	"github.com/spec-kit/repair-service/internal/tracking"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// TicketsHandler manages the staff-facing ticket endpoints.
type TicketsHandler struct {
	service  *service.TicketService
	resolver *tracking.Resolver
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, resolver *tracking.Resolver) *TicketsHandler {
	return &TicketsHandler{service: ticketService, resolver: resolver}
}

// CreateTicket POST /admin/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), service.TicketCreateInput{
		CustomerName:        req.CustomerName,
		CustomerEmail:       req.CustomerEmail,
		CustomerPhone:       req.CustomerPhone,
		DeviceType:          req.DeviceType,
		DeviceBrand:         req.DeviceBrand,
		DeviceModel:         req.DeviceModel,
		IssueDescription:    req.IssueDescription,
		Priority:            req.Priority,
		EstimatedCost:       req.EstimatedCost,
		EstimatedCompletion: req.EstimatedCompletion,
		CustomerNotes:       req.CustomerNotes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /admin/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := parseTicketListQuery(c)
	tickets, err := h.service.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	// The admin list renders the same derived view as the tracking page;
	// corrupt records are logged and dropped, not fatal.
	views := h.resolver.ProjectAll(tickets)
	return c.JSON(fiber.Map{"data": trackedTicketResponses(views)})
}

// GetTicket GET /admin/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	view, err := h.resolver.ProjectTimeline(ticket)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TrackedTicketResponse{
		Ticket:   ticketResponse(ticket),
		Timeline: timelineResponse(view),
	}})
}

// UpdateTicket PATCH /admin/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateDetails(c.UserContext(), c.Params("id"), service.TicketDetailsInput{
		CustomerName:        req.CustomerName,
		CustomerEmail:       req.CustomerEmail,
		CustomerPhone:       req.CustomerPhone,
		DeviceType:          req.DeviceType,
		DeviceBrand:         req.DeviceBrand,
		DeviceModel:         req.DeviceModel,
		IssueDescription:    req.IssueDescription,
		EstimatedCost:       req.EstimatedCost,
		FinalCost:           req.FinalCost,
		EstimatedCompletion: req.EstimatedCompletion,
		CustomerNotes:       req.CustomerNotes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateStatus PATCH /admin/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), req.Status, req.Comment, req.Force)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdatePriority PATCH /admin/tickets/:id/priority.
func (h *TicketsHandler) UpdatePriority(c *fiber.Ctx) error {
	var req dto.UpdatePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdatePriority(c.UserContext(), c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// DeleteTicket DELETE /admin/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	var req dto.DeleteTicketRequest
	_ = c.BodyParser(&req)
	if err := h.service.DeleteTicket(c.UserContext(), c.Params("id"), req.Reason); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func parseTicketListQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.RepairStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.RepairPriority(strings.TrimSpace(part)))
		}
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filter.SearchTerm = &q
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
