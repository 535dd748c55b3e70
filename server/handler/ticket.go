package handler

import (
	"github.com/gofiber/fiber/v2"
)

// TicketRequest is the request body for submitting or updating a ticket.
type TicketRequest struct {
	Latency float64 `json:"latency"`
}

// PostTicket submits a new ticket with a generated id.
func PostTicket(mm Matchmaker) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		lobbyID, err := parseID(ctx, "lobbyId")
		if err != nil {
			return err
		}
		var req TicketRequest
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		ticket, err := mm.QueueTicket(ctx.UserContext(), lobbyID, req.Latency)
		if err != nil {
			return httpError(err)
		}
		return ctx.Status(fiber.StatusCreated).JSON(ticket)
	}
}

// PutTicket updates the latency of an existing ticket. The registration time
// of the stored ticket is preserved.
func PutTicket(mm Matchmaker) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		lobbyID, err := parseID(ctx, "lobbyId")
		if err != nil {
			return err
		}
		ticketID, err := parseID(ctx, "ticketId")
		if err != nil {
			return err
		}
		var req TicketRequest
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		ticket, err := mm.UpdateTicket(ctx.UserContext(), lobbyID, ticketID, req.Latency)
		if err != nil {
			return httpError(err)
		}
		return ctx.JSON(ticket)
	}
}

// DeleteTicket cancels a ticket wherever it currently lives, pool or open
// session. Cancelling an unknown ticket succeeds.
func DeleteTicket(mm Matchmaker) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		lobbyID, err := parseID(ctx, "lobbyId")
		if err != nil {
			return err
		}
		ticketID, err := parseID(ctx, "ticketId")
		if err != nil {
			return err
		}

		if err := mm.CancelTicket(ctx.UserContext(), lobbyID, ticketID); err != nil {
			return httpError(err)
		}
		return ctx.SendStatus(fiber.StatusNoContent)
	}
}
