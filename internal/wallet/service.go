package wallet

import (
	"context"
	"log/slog"

	"github.com/Muizzyranking/wallet-service/internal/ledger"
)

// Service exposes wallet provisioning and read paths. Balance mutation always
// goes through the ledger's deposit and transfer units, never through here.
type Service struct {
	ledger ledger.Ledger
	logger *slog.Logger
}

// NewService builds a wallet service instance.
func NewService(ledgerBackend ledger.Ledger, logger *slog.Logger) *Service {
	return &Service{ledger: ledgerBackend, logger: logger}
}

// Provision creates (or returns) the wallet for an account. The account
// collaborator calls this explicitly at account creation instead of relying
// on an implicit hook, and any first-touch path gets the same wallet lazily.
func (s *Service) Provision(ctx context.Context, ownerID string) (ledger.Wallet, error) {
	w, err := s.ledger.EnsureWallet(ctx, ownerID)
	if err != nil {
		return ledger.Wallet{}, err
	}
	s.logger.Info("wallet ready", "owner", ownerID, "wallet_number", w.WalletNumber)
	return w, nil
}

// Balance returns the owner's current balance in minor units.
func (s *Service) Balance(ctx context.Context, ownerID string) (int64, error) {
	w, err := s.ledger.WalletByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}

// History returns the owner's most recent transactions, newest first, capped
// at the ledger's page limit.
func (s *Service) History(ctx context.Context, ownerID string) ([]ledger.Transaction, error) {
	return s.ledger.ListByOwner(ctx, ownerID, ledger.MaxHistoryLimit)
}
