package deposit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Muizzyranking/wallet-service/internal/ledger"
	"github.com/Muizzyranking/wallet-service/internal/notification"
)

// Service orchestrates the deposit lifecycle: it opens charges with the
// gateway and applies idempotent crediting when the gateway confirms them.
type Service struct {
	ledger   ledger.Ledger
	gateway  Gateway
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a deposit orchestrator.
func NewService(ledgerBackend ledger.Ledger, gateway Gateway, notifier notification.Notifier, logger *slog.Logger) *Service {
	if gateway == nil {
		gateway = StaticGateway{}
	}
	return &Service{ledger: ledgerBackend, gateway: gateway, notifier: notifier, logger: logger}
}

// InitiateInput captures an authenticated deposit request. Email travels with
// the request because the gateway requires a payer address and the ledger
// treats owner identity as opaque.
type InitiateInput struct {
	OwnerID string
	Email   string
	Amount  int64
}

// InitiateResult is handed back to the caller so they can complete payment.
type InitiateResult struct {
	Reference        string
	AuthorizationURL string
	Amount           int64
}

// Initiate validates the amount, ensures the wallet exists, opens a charge
// with the gateway and only then records the pending transaction. The gateway
// call runs outside any row lock, and a gateway failure leaves no ledger
// state behind.
func (s *Service) Initiate(ctx context.Context, input InitiateInput) (InitiateResult, error) {
	if input.Amount < ledger.MinDepositAmount || input.Amount > ledger.MaxDepositAmount {
		return InitiateResult{}, fmt.Errorf("%w: deposit must be between %d and %d minor units",
			ledger.ErrInvalidAmount, ledger.MinDepositAmount, ledger.MaxDepositAmount)
	}

	if _, err := s.ledger.EnsureWallet(ctx, input.OwnerID); err != nil {
		return InitiateResult{}, err
	}

	reference := ledger.NewReference()

	charge, err := s.gateway.Initialize(ctx, input.Email, input.Amount, reference)
	if err != nil {
		s.logger.Error("gateway initialize failed", "owner", input.OwnerID, "reference", reference, "error", err)
		return InitiateResult{}, err
	}

	txn, err := s.ledger.CreateDeposit(ctx, ledger.Transaction{
		OwnerID:          input.OwnerID,
		Reference:        reference,
		Amount:           input.Amount,
		GatewayReference: charge.Reference,
		AuthorizationURL: charge.AuthorizationURL,
		AccessCode:       charge.AccessCode,
	})
	if err != nil {
		return InitiateResult{}, err
	}

	s.logger.Info("deposit initiated", "owner", input.OwnerID, "reference", txn.Reference, "amount", txn.Amount)

	return InitiateResult{
		Reference:        txn.Reference,
		AuthorizationURL: txn.AuthorizationURL,
		Amount:           txn.Amount,
	}, nil
}

// Confirm applies the idempotent crediting step for a gateway-confirmed
// charge. Redelivered confirmations return the existing record untouched.
func (s *Service) Confirm(ctx context.Context, reference string) (ledger.Transaction, error) {
	txn, credited, err := s.ledger.ConfirmDeposit(ctx, reference)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if !credited {
		s.logger.Warn("deposit already processed", "reference", reference)
		return txn, nil
	}

	s.logger.Info("deposit credited", "owner", txn.OwnerID, "reference", reference, "amount", txn.Amount)

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindDepositCredited,
			Destination: txn.OwnerID,
			Reference:   txn.Reference,
			Amount:      txn.Amount,
		})
	}
	return txn, nil
}

// Fail marks a pending deposit failed after the gateway reports the charge
// declined or abandoned. Terminal records are untouched.
func (s *Service) Fail(ctx context.Context, reference string) (ledger.Transaction, error) {
	txn, err := s.ledger.FailDeposit(ctx, reference)
	if err != nil {
		return ledger.Transaction{}, err
	}
	s.logger.Info("deposit marked failed", "owner", txn.OwnerID, "reference", reference)
	return txn, nil
}

// Status reads the current state of the caller's own deposit. A reference
// owned by someone else answers ErrNotFound rather than leaking existence.
func (s *Service) Status(ctx context.Context, ownerID, reference string) (ledger.Transaction, error) {
	txn, err := s.ledger.TransactionByReference(ctx, reference)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if txn.OwnerID != ownerID {
		return ledger.Transaction{}, ledger.ErrNotFound
	}
	return txn, nil
}

// VerifyAndConfirm asks the gateway for the charge state and funnels a
// success into the same idempotent confirm path the webhook uses, so a race
// between the two can never credit twice. Pending charges are returned as-is.
func (s *Service) VerifyAndConfirm(ctx context.Context, ownerID, reference string) (ledger.Transaction, error) {
	txn, err := s.Status(ctx, ownerID, reference)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if txn.Terminal() {
		return txn, nil
	}

	// Gateway I/O happens before any row lock is taken.
	state, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return ledger.Transaction{}, err
	}

	switch state.Status {
	case "success":
		return s.Confirm(ctx, reference)
	case "failed", "abandoned":
		return s.Fail(ctx, reference)
	default:
		return txn, nil
	}
}
