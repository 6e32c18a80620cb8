package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Muizzyranking/wallet-service/internal/ledger"
)

// Handler exposes wallet endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a wallet handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type provisionRequest struct {
	OwnerID string `json:"owner_id"`
}

type transactionView struct {
	Reference                string    `json:"reference"`
	Kind                     string    `json:"type"`
	Amount                   int64     `json:"amount"`
	Status                   string    `json:"status"`
	CounterpartyWalletNumber string    `json:"recipient_wallet_number,omitempty"`
	CreatedAt                time.Time `json:"created_at"`
}

// Provision creates the wallet for a newly registered account. Invoked by the
// account-creation collaborator, not by end users.
func (h *Handler) Provision(c *fiber.Ctx) error {
	var req provisionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.OwnerID == "" {
		return fiber.NewError(http.StatusBadRequest, "owner_id is required")
	}

	w, err := h.service.Provision(c.UserContext(), req.OwnerID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"owner_id":      w.OwnerID,
		"wallet_number": w.WalletNumber,
		"balance":       w.Balance,
	})
}

// Balance returns the authenticated caller's balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("account_id").(string)

	balance, err := h.service.Balance(c.UserContext(), ownerID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{"balance": balance})
}

// Transactions returns the caller's recent transaction history.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("account_id").(string)

	txns, err := h.service.History(c.UserContext(), ownerID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	views := make([]transactionView, 0, len(txns))
	for _, txn := range txns {
		views = append(views, transactionView{
			Reference:                txn.Reference,
			Kind:                     txn.Kind,
			Amount:                   txn.Amount,
			Status:                   txn.Status,
			CounterpartyWalletNumber: txn.CounterpartyWalletNumber,
			CreatedAt:                txn.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{"transactions": views, "count": len(views)})
}
