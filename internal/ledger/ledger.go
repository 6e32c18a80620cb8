package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidAmount occurs when an amount is non-positive or outside the
	// configured deposit/transfer bounds.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientBalance occurs when a debit would take a wallet below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNotFound indicates the requested wallet or transaction does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRecipient indicates the recipient wallet number resolved to nothing.
	ErrInvalidRecipient = errors.New("recipient wallet not found")

	// ErrInvalidOperation indicates an operation that is never legal, such as a
	// self-transfer or reusing a transaction already in a terminal state.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrDuplicateReference indicates a transaction reference or gateway
	// reference collided with an existing record. References carry enough
	// randomness that this is treated as an integrity fault, not a retry case.
	ErrDuplicateReference = errors.New("duplicate transaction reference")
)

const (
	// KindDeposit marks a gateway-funded credit.
	KindDeposit = "deposit"
	// KindTransfer marks a wallet-to-wallet move.
	KindTransfer = "transfer"

	// StatusPending is the initial state of a deposit awaiting confirmation.
	StatusPending = "pending"
	// StatusSuccess is terminal.
	StatusSuccess = "success"
	// StatusFailed is terminal.
	StatusFailed = "failed"
)

// Amount bounds in minor currency units, mirroring the gateway's charge limits.
const (
	MinDepositAmount  = 100
	MaxDepositAmount  = 100_000_000
	MinTransferAmount = 100
	MaxTransferAmount = 100_000_000
)

// MaxHistoryLimit caps a transaction history page.
const MaxHistoryLimit = 50

// Wallet holds the spendable balance for one account owner. Balance is an
// integer in minor currency units and never goes negative.
type Wallet struct {
	ID           string
	OwnerID      string
	WalletNumber string
	Balance      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Transaction is the append-mostly audit record of one ledger event. Once its
// status reaches success or failed it never transitions again.
type Transaction struct {
	ID                       string
	OwnerID                  string
	Reference                string
	Kind                     string
	Amount                   int64
	Status                   string
	CounterpartyWalletNumber string
	CounterpartyID           string
	GatewayReference         string
	AuthorizationURL         string
	AccessCode               string
	Metadata                 map[string]string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Terminal reports whether the transaction reached a final state.
func (t Transaction) Terminal() bool {
	return t.Status == StatusSuccess || t.Status == StatusFailed
}

// Ledger is the contract implemented by storage backends (Postgres in
// production, in-memory for tests). Every mutating operation is a
// self-contained atomic unit: it acquires the row locks it needs, commits or
// rolls back as a whole, and never holds a lock across external I/O.
type Ledger interface {
	// EnsureWallet returns the owner's wallet, creating it with a zero balance
	// and a fresh wallet number on first access. Concurrent calls for the same
	// owner yield one wallet; the unique constraint on owner_id is the source
	// of truth.
	EnsureWallet(ctx context.Context, ownerID string) (Wallet, error)

	// WalletByOwner fetches a wallet by its owner identifier.
	WalletByOwner(ctx context.Context, ownerID string) (Wallet, error)

	// WalletByNumber fetches a wallet by its public wallet number.
	WalletByNumber(ctx context.Context, walletNumber string) (Wallet, error)

	// CreateDeposit inserts a pending deposit transaction carrying the gateway
	// handles. Reference or gateway-reference collisions return
	// ErrDuplicateReference.
	CreateDeposit(ctx context.Context, txn Transaction) (Transaction, error)

	// ConfirmDeposit credits the owning wallet and marks the deposit
	// successful, all under the transaction and wallet row locks. Confirming a
	// deposit that already succeeded is a no-op returning the existing record
	// with credited=false; this is the idempotency guarantee for redelivered
	// gateway notifications. Unknown references return ErrNotFound, failed
	// deposits ErrInvalidOperation.
	ConfirmDeposit(ctx context.Context, reference string) (txn Transaction, credited bool, err error)

	// FailDeposit marks a pending deposit failed. Terminal records are
	// returned unchanged.
	FailDeposit(ctx context.Context, reference string) (Transaction, error)

	// Transfer atomically moves amount from the sender's wallet to the wallet
	// addressed by recipientWalletNumber and writes the two cross-referencing
	// transaction records. Wallet rows are locked in ascending wallet-id order
	// so concurrent opposite-direction transfers cannot deadlock. Returns the
	// sender-perspective record.
	Transfer(ctx context.Context, senderID, recipientWalletNumber string, amount int64, reference string) (Transaction, error)

	// TransactionByReference fetches a transaction by its unique reference.
	TransactionByReference(ctx context.Context, reference string) (Transaction, error)

	// ListByOwner returns the owner's most recent transactions, newest first,
	// capped at MaxHistoryLimit.
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]Transaction, error)
}
