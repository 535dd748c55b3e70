package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/leafley/rovio-match-making/lobby"
	"github.com/leafley/rovio-match-making/types"
)

// validationErrs are rejected requests, not server faults.
var validationErrs = []error{
	types.ErrInvalidLobbyID,
	types.ErrInvalidTicketID,
	types.ErrNegativeLatency,
	lobby.ErrInvalidLobbyID,
	lobby.ErrInvalidMinPlayers,
	lobby.ErrInvalidMaxPlayers,
	lobby.ErrNegativeWaitTime,
	lobby.ErrInvalidHeartbeat,
}

// httpError maps a matchmaker error onto the fiber error the ErrorHandler
// will render.
func httpError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fiber.NewError(fiber.StatusRequestTimeout, "request timed out")
	}
	for _, sentinel := range validationErrs {
		if errors.Is(err, sentinel) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}

func parseID(ctx *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(param))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+param)
	}
	return id, nil
}
