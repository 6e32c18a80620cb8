package deposit

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/Muizzyranking/wallet-service/internal/ledger"
	"github.com/Muizzyranking/wallet-service/internal/paystack"
)

// Handler exposes deposit endpoints including the gateway webhook.
type Handler struct {
	service       *Service
	webhookSecret string
	logger        *slog.Logger
}

// NewHandler constructs a deposit handler. webhookSecret is the shared key
// gateway deliveries are signed with.
func NewHandler(service *Service, webhookSecret string, logger *slog.Logger) *Handler {
	return &Handler{service: service, webhookSecret: webhookSecret, logger: logger}
}

// Initiate opens a deposit charge for the authenticated caller.
func (h *Handler) Initiate(c *fiber.Ctx) error {
	var req DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	ownerID, _ := c.Locals("account_id").(string)
	email, _ := c.Locals("email").(string)

	res, err := h.service.Initiate(c.UserContext(), InitiateInput{
		OwnerID: ownerID,
		Email:   email,
		Amount:  req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, paystack.ErrGateway):
			return fiber.NewError(http.StatusBadGateway, "payment gateway unavailable")
		case errors.Is(err, ledger.ErrDuplicateReference):
			return fiber.NewError(http.StatusConflict, "duplicate transaction reference")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusOK).JSON(DepositResponse{
		Reference:        res.Reference,
		AuthorizationURL: res.AuthorizationURL,
		Amount:           res.Amount,
	})
}

// Status reports the caller's deposit state without mutating anything.
func (h *Handler) Status(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("account_id").(string)
	reference := c.Params("reference")

	txn, err := h.service.Status(c.UserContext(), ownerID, reference)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "transaction not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(StatusResponse{Reference: txn.Reference, Status: txn.Status, Amount: txn.Amount})
}

// Verify re-checks a pending deposit with the gateway and settles it through
// the idempotent confirm path when the gateway reports success.
func (h *Handler) Verify(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("account_id").(string)
	reference := c.Params("reference")

	txn, err := h.service.VerifyAndConfirm(c.UserContext(), ownerID, reference)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "transaction not found")
		case errors.Is(err, paystack.ErrGateway):
			return fiber.NewError(http.StatusBadGateway, "payment gateway unavailable")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(StatusResponse{Reference: txn.Reference, Status: txn.Status, Amount: txn.Amount})
}

// Webhook receives signed gateway notifications. The signature gate runs over
// the raw body before anything is parsed; a bad signature mutates nothing.
func (h *Handler) Webhook(c *fiber.Ctx) error {
	body := c.Body()

	if err := paystack.VerifySignature(body, c.Get(paystack.SignatureHeader), h.webhookSecret); err != nil {
		h.logger.Warn("webhook rejected", "error", err)
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"status": false, "error": "invalid signature"})
	}

	var event paystack.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"status": false, "error": "malformed payload"})
	}

	h.logger.Info("webhook received", "event", event.Event, "reference", event.Data.Reference)

	switch event.Event {
	case paystack.EventChargeSuccess:
		if event.Data.Status == "success" && event.Data.Reference != "" {
			if _, err := h.service.Confirm(c.UserContext(), event.Data.Reference); err != nil {
				// Redelivery is the gateway's job; we log and answer without
				// crediting rather than retry internally.
				h.logger.Error("webhook confirm failed", "reference", event.Data.Reference, "error", err)
				return c.Status(http.StatusBadRequest).JSON(fiber.Map{"status": false, "error": err.Error()})
			}
		}
	case paystack.EventChargeFailed:
		if event.Data.Reference != "" {
			if _, err := h.service.Fail(c.UserContext(), event.Data.Reference); err != nil {
				h.logger.Error("webhook fail-mark failed", "reference", event.Data.Reference, "error", err)
				return c.Status(http.StatusBadRequest).JSON(fiber.Map{"status": false, "error": err.Error()})
			}
		}
	}

	return c.JSON(fiber.Map{"status": true})
}
