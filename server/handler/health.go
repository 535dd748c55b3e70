package handler

import (
	"github.com/gofiber/fiber/v2"
)

type GetHealthResponse struct {
	IsServerRunning bool `json:"isServerRunning"`
}

func GetHealth() func(c *fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		return ctx.JSON(GetHealthResponse{
			IsServerRunning: true,
		})
	}
}
