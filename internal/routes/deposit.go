package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Muizzyranking/wallet-service/internal/deposit"
)

// RegisterDepositRoutes wires deposit endpoints. The webhook is registered
// separately since it sits outside token auth.
func RegisterDepositRoutes(r fiber.Router, h *deposit.Handler, rateLimiter fiber.Handler) {
	r.Post("/deposit", rateLimiter, h.Initiate)
	r.Get("/deposit/:reference/status", h.Status)
	r.Post("/deposit/:reference/verify", rateLimiter, h.Verify)
}
