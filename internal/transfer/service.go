package transfer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Muizzyranking/wallet-service/internal/ledger"
	"github.com/Muizzyranking/wallet-service/internal/notification"
)

// Service moves funds between wallets. The ledger backend owns the locking
// discipline; this layer validates before any lock is taken and notifies the
// recipient afterwards.
type Service struct {
	ledger   ledger.Ledger
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a transfer service.
func NewService(ledgerBackend ledger.Ledger, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{ledger: ledgerBackend, notifier: notifier, logger: logger}
}

// Input captures a transfer request from an authenticated sender.
type Input struct {
	SenderID              string
	RecipientWalletNumber string
	Amount                int64
}

// Transfer validates the amount, mints the reference pair and executes the
// atomic two-party move. The result is the sender-perspective transaction,
// successful from creation since transfers are synchronous.
func (s *Service) Transfer(ctx context.Context, input Input) (ledger.Transaction, error) {
	if input.Amount < ledger.MinTransferAmount || input.Amount > ledger.MaxTransferAmount {
		return ledger.Transaction{}, fmt.Errorf("%w: transfer must be between %d and %d minor units",
			ledger.ErrInvalidAmount, ledger.MinTransferAmount, ledger.MaxTransferAmount)
	}

	reference := ledger.NewReference()

	txn, err := s.ledger.Transfer(ctx, input.SenderID, input.RecipientWalletNumber, input.Amount, reference)
	if err != nil {
		return ledger.Transaction{}, err
	}

	s.logger.Info("transfer completed",
		"sender", txn.OwnerID,
		"recipient_wallet", txn.CounterpartyWalletNumber,
		"reference", txn.Reference,
		"amount", txn.Amount)

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferReceived,
			Destination: txn.CounterpartyID,
			Reference:   ledger.RecvReference(txn.Reference),
			Amount:      txn.Amount,
		})
	}

	return txn, nil
}
