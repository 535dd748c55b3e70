package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// SessionRequest is the request body for forming a session.
type SessionRequest struct {
	MinPlayers     int `json:"minPlayers"`
	MaxPlayers     int `json:"maxPlayers"`
	MaxWaitSeconds int `json:"maxWaitSeconds"`
}

// PostSession runs session formation against the lobby's pool and returns the
// immediately available, possibly partial, result.
func PostSession(mm Matchmaker) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		lobbyID, err := parseID(ctx, "lobbyId")
		if err != nil {
			return err
		}
		var req SessionRequest
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		result, err := mm.CreateSession(
			ctx.UserContext(),
			lobbyID,
			req.MinPlayers,
			req.MaxPlayers,
			time.Duration(req.MaxWaitSeconds)*time.Second,
		)
		if err != nil {
			return httpError(err)
		}
		return ctx.Status(fiber.StatusCreated).JSON(result)
	}
}

// GetSession claims the tickets an open session has accumulated so far.
func GetSession(mm Matchmaker) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		lobbyID, err := parseID(ctx, "lobbyId")
		if err != nil {
			return err
		}
		sessionID, err := parseID(ctx, "sessionId")
		if err != nil {
			return err
		}

		result, err := mm.ClaimSession(ctx.UserContext(), lobbyID, sessionID)
		if err != nil {
			return httpError(err)
		}
		return ctx.JSON(result)
	}
}

// DeleteSession forces the session to close and return its tickets to the
// pool. Closing an unknown session succeeds.
func DeleteSession(mm Matchmaker) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		lobbyID, err := parseID(ctx, "lobbyId")
		if err != nil {
			return err
		}
		sessionID, err := parseID(ctx, "sessionId")
		if err != nil {
			return err
		}

		if err := mm.CloseSession(ctx.UserContext(), lobbyID, sessionID); err != nil {
			return httpError(err)
		}
		return ctx.SendStatus(fiber.StatusNoContent)
	}
}
