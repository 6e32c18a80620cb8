package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memWallet pairs a wallet record with its own lock. Balance mutations happen
// only while the wallet lock is held, matching the row-lock discipline of the
// Postgres backend.
type memWallet struct {
	mu sync.Mutex
	w  Wallet
}

type inMemoryLedger struct {
	// mu guards the maps and all transaction records. It may be acquired
	// while holding wallet locks, never the other way around.
	mu       sync.Mutex
	byOwner  map[string]*memWallet
	byNumber map[string]*memWallet
	txns     map[string]*Transaction // keyed by reference
	gwRefs   map[string]struct{}
	history  map[string][]string // owner -> references, oldest first
}

// NewInMemory creates a concurrency-safe in-memory ledger backend useful for
// unit tests. It honors the same locking semantics as the Postgres backend,
// including ordered acquisition of the two wallet locks during a transfer.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		byOwner:  make(map[string]*memWallet),
		byNumber: make(map[string]*memWallet),
		txns:     make(map[string]*Transaction),
		gwRefs:   make(map[string]struct{}),
		history:  make(map[string][]string),
	}
}

func (l *inMemoryLedger) EnsureWallet(_ context.Context, ownerID string) (Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if mw, ok := l.byOwner[ownerID]; ok {
		return mw.w, nil
	}

	number := NewWalletNumber()
	for {
		if _, taken := l.byNumber[number]; !taken {
			break
		}
		number = NewWalletNumber()
	}

	now := time.Now().UTC()
	mw := &memWallet{w: Wallet{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		WalletNumber: number,
		CreatedAt:    now,
		UpdatedAt:    now,
	}}
	l.byOwner[ownerID] = mw
	l.byNumber[number] = mw
	return mw.w, nil
}

func (l *inMemoryLedger) WalletByOwner(_ context.Context, ownerID string) (Wallet, error) {
	l.mu.Lock()
	mw, ok := l.byOwner[ownerID]
	l.mu.Unlock()
	if !ok {
		return Wallet{}, ErrNotFound
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.w, nil
}

func (l *inMemoryLedger) WalletByNumber(_ context.Context, walletNumber string) (Wallet, error) {
	l.mu.Lock()
	mw, ok := l.byNumber[walletNumber]
	l.mu.Unlock()
	if !ok {
		return Wallet{}, ErrNotFound
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.w, nil
}

func (l *inMemoryLedger) CreateDeposit(_ context.Context, txn Transaction) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.txns[txn.Reference]; exists {
		return Transaction{}, ErrDuplicateReference
	}
	if txn.GatewayReference != "" {
		if _, exists := l.gwRefs[txn.GatewayReference]; exists {
			return Transaction{}, ErrDuplicateReference
		}
	}

	now := time.Now().UTC()
	txn.ID = uuid.NewString()
	txn.Kind = KindDeposit
	txn.Status = StatusPending
	txn.CreatedAt = now
	txn.UpdatedAt = now

	stored := txn
	l.txns[txn.Reference] = &stored
	if txn.GatewayReference != "" {
		l.gwRefs[txn.GatewayReference] = struct{}{}
	}
	l.history[txn.OwnerID] = append(l.history[txn.OwnerID], txn.Reference)
	return txn, nil
}

func (l *inMemoryLedger) ConfirmDeposit(_ context.Context, reference string) (Transaction, bool, error) {
	l.mu.Lock()
	txn, ok := l.txns[reference]
	if !ok || txn.Kind != KindDeposit {
		l.mu.Unlock()
		return Transaction{}, false, ErrNotFound
	}
	mw := l.byOwner[txn.OwnerID]
	l.mu.Unlock()
	if mw == nil {
		return Transaction{}, false, ErrNotFound
	}

	// Wallet lock first, then the record lock, same order as Transfer.
	// Concurrent confirmations of one reference serialize on the wallet lock,
	// so the status re-check below makes redelivery a strict no-op.
	mw.mu.Lock()
	defer mw.mu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()

	switch txn.Status {
	case StatusSuccess:
		return *txn, false, nil
	case StatusFailed:
		return *txn, false, ErrInvalidOperation
	}

	now := time.Now().UTC()
	mw.w.Balance += txn.Amount
	mw.w.UpdatedAt = now
	txn.Status = StatusSuccess
	txn.UpdatedAt = now
	return *txn, true, nil
}

func (l *inMemoryLedger) FailDeposit(_ context.Context, reference string) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn, ok := l.txns[reference]
	if !ok || txn.Kind != KindDeposit {
		return Transaction{}, ErrNotFound
	}
	if txn.Terminal() {
		return *txn, nil
	}
	txn.Status = StatusFailed
	txn.UpdatedAt = time.Now().UTC()
	return *txn, nil
}

func (l *inMemoryLedger) Transfer(_ context.Context, senderID, recipientWalletNumber string, amount int64, reference string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}

	l.mu.Lock()
	sender, ok := l.byOwner[senderID]
	if !ok {
		l.mu.Unlock()
		return Transaction{}, ErrNotFound
	}
	recipient, ok := l.byNumber[recipientWalletNumber]
	if !ok {
		l.mu.Unlock()
		return Transaction{}, ErrInvalidRecipient
	}
	l.mu.Unlock()

	if sender.w.ID == recipient.w.ID {
		return Transaction{}, ErrInvalidOperation
	}

	// Deterministic lock order by wallet id, never sender-first, so two
	// opposite-direction transfers between the same pair cannot deadlock.
	first, second := sender, recipient
	if second.w.ID < first.w.ID {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.txns[reference]; exists {
		return Transaction{}, ErrDuplicateReference
	}
	if sender.w.Balance < amount {
		return Transaction{}, ErrInsufficientBalance
	}

	now := time.Now().UTC()
	sender.w.Balance -= amount
	sender.w.UpdatedAt = now
	recipient.w.Balance += amount
	recipient.w.UpdatedAt = now

	out := Transaction{
		ID:                       uuid.NewString(),
		OwnerID:                  sender.w.OwnerID,
		Reference:                reference,
		Kind:                     KindTransfer,
		Amount:                   amount,
		Status:                   StatusSuccess,
		CounterpartyWalletNumber: recipient.w.WalletNumber,
		CounterpartyID:           recipient.w.OwnerID,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	in := Transaction{
		ID:                       uuid.NewString(),
		OwnerID:                  recipient.w.OwnerID,
		Reference:                RecvReference(reference),
		Kind:                     KindTransfer,
		Amount:                   amount,
		Status:                   StatusSuccess,
		CounterpartyWalletNumber: sender.w.WalletNumber,
		CounterpartyID:           sender.w.OwnerID,
		Metadata:                 map[string]string{"sender": sender.w.OwnerID},
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	outStored, inStored := out, in
	l.txns[out.Reference] = &outStored
	l.txns[in.Reference] = &inStored
	l.history[out.OwnerID] = append(l.history[out.OwnerID], out.Reference)
	l.history[in.OwnerID] = append(l.history[in.OwnerID], in.Reference)
	return out, nil
}

func (l *inMemoryLedger) TransactionByReference(_ context.Context, reference string) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	txn, ok := l.txns[reference]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return *txn, nil
}

func (l *inMemoryLedger) ListByOwner(_ context.Context, ownerID string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	refs := l.history[ownerID]
	out := make([]Transaction, 0, limit)
	for i := len(refs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *l.txns[refs[i]])
	}
	return out, nil
}
