package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/internal/pkg/attachstore"
	"github.com/plexdev/plexaddons-api/internal/pkg/tickets"
	"github.com/plexdev/plexaddons-api/internal/pkg/usercontext"
)

type openTicketRequest struct {
	Subject  string `json:"subject"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

// HandleOpenTicket opens a new support ticket with an initial message.
func HandleOpenTicket(c *fiber.Ctx) error {
	var req openTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Malformed request body")
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}

	ticket, err := deps.Tickets.Open(user, req.Subject, req.Category, req.Content)
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_ticket", "Ticket subject or category is invalid")
	}

	return c.Status(fiber.StatusCreated).JSON(ticket)
}

// HandleListMyTickets lists the authenticated user's tickets.
func HandleListMyTickets(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	offset, limit := pagination(c, 25, 100)

	list, err := deps.Repos.Ticket.ListByUser(uc.UserID, offset, limit)
	if err != nil {
		return internalError(c, "Failed to list tickets")
	}

	return c.JSON(fiber.Map{
		"tickets": list,
		"offset":  offset,
		"limit":   limit,
	})
}

// HandleGetTicket returns a single ticket. Owner or admin only.
func HandleGetTicket(c *fiber.Ctx) error {
	ticket, ok := ticketFromParam(c)
	if !ok {
		return nil
	}
	return c.JSON(ticket)
}

type ticketReplyRequest struct {
	Content string `json:"content"`
}

// HandleReplyTicket appends a message to an open ticket.
func HandleReplyTicket(c *fiber.Ctx) error {
	ticket, ok := ticketFromParam(c)
	if !ok {
		return nil
	}

	var req ticketReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Malformed request body")
	}

	uc := usercontext.GetUserContext(c)
	staff := uc.IsAdmin && ticket.UserID != uc.UserID
	authorID := uc.UserID

	message, err := deps.Tickets.Reply(ticket, &authorID, req.Content, staff)
	if err != nil {
		if errors.Is(err, tickets.ErrTicketClosed) {
			return jsonError(c, fiber.StatusConflict, "ticket_closed", "This ticket no longer accepts replies")
		}
		return internalError(c, "Failed to add reply")
	}

	return c.Status(fiber.StatusCreated).JSON(message)
}

// HandleAttachFile uploads a file to a ticket. The multipart form carries
// the file plus an optional message text; attachment bytes count against
// the owner's storage quota.
func HandleAttachFile(c *fiber.Ctx) error {
	ticket, ok := ticketFromParam(c)
	if !ok {
		return nil
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Multipart field 'file' is required")
	}

	content := c.FormValue("content")
	if content == "" {
		content = "(attachment)"
	}
	uc := usercontext.GetUserContext(c)
	staff := uc.IsAdmin && ticket.UserID != uc.UserID
	authorID := uc.UserID

	message, err := deps.Tickets.Reply(ticket, &authorID, content, staff)
	if err != nil {
		if errors.Is(err, tickets.ErrTicketClosed) {
			return jsonError(c, fiber.StatusConflict, "ticket_closed", "This ticket no longer accepts replies")
		}
		return internalError(c, "Failed to add reply")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Could not read the uploaded file")
	}
	defer file.Close()

	// Quota is charged to the ticket owner, even when staff attach files.
	owner := user
	if ticket.UserID != user.ID {
		owner, err = deps.Repos.User.GetByID(ticket.UserID)
		if err != nil {
			return internalError(c, "Failed to load ticket owner")
		}
	}

	attachment, err := deps.Tickets.Attach(ticket, owner, message, file, fileHeader.Filename, fileHeader.Size)
	if err != nil {
		switch {
		case errors.Is(err, tickets.ErrStorageQuotaExceeded):
			return storageQuotaResponse(c, owner)
		case errors.Is(err, attachstore.ErrFileTooLarge):
			return jsonError(c, fiber.StatusRequestEntityTooLarge, "file_too_large", "Attachment exceeds the maximum file size")
		default:
			return internalError(c, "Failed to store attachment")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    message,
		"attachment": attachment,
	})
}

// HandleResolveTicket marks a ticket resolved. Admin only.
func HandleResolveTicket(c *fiber.Ctx) error {
	ticket, ok := ticketFromParam(c)
	if !ok {
		return nil
	}
	if err := deps.Tickets.Resolve(ticket); err != nil {
		return internalError(c, "Failed to resolve ticket")
	}
	return c.JSON(ticket)
}

// HandleCloseTicket closes a ticket for good.
func HandleCloseTicket(c *fiber.Ctx) error {
	ticket, ok := ticketFromParam(c)
	if !ok {
		return nil
	}
	if err := deps.Tickets.Close(ticket); err != nil {
		return internalError(c, "Failed to close ticket")
	}
	return c.JSON(ticket)
}

// ticketFromParam resolves the ticket id param and enforces that only the
// ticket owner or an admin can see it. Misses and denials both read as 404
// so ticket ids cannot be probed.
func ticketFromParam(c *fiber.Ctx) (*models.Ticket, bool) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		_ = jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid ticket id")
		return nil, false
	}

	ticket, err := deps.Tickets.Get(id)
	if err != nil {
		_ = jsonError(c, fiber.StatusNotFound, "not_found", "Ticket not found")
		return nil, false
	}

	uc := usercontext.GetUserContext(c)
	if ticket.UserID != uc.UserID && !uc.IsAdmin {
		_ = jsonError(c, fiber.StatusNotFound, "not_found", "Ticket not found")
		return nil, false
	}
	return ticket, true
}
