package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Muizzyranking/wallet-service/internal/transfer"
)

// RegisterTransferRoutes wires the transfer endpoint.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler, rateLimiter fiber.Handler) {
	r.Post("/transfer", rateLimiter, h.Transfer)
}
