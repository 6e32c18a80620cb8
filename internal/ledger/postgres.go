package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists wallets and transactions in PostgreSQL. Row-level
// locks (SELECT ... FOR UPDATE) inside explicit transactions provide the
// mutual exclusion for every balance mutation.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

const walletColumns = `id, owner_id, wallet_number, balance, created_at, updated_at`

const txnColumns = `id, owner_id, reference, kind, amount, status,
        counterparty_wallet_number, counterparty_id, gateway_reference,
        authorization_url, access_code, metadata, created_at, updated_at`

// EnsureWallet returns the owner's wallet, creating it on first access. The
// insert races safely on the owner_id unique constraint; a wallet-number
// collision retries with a fresh number.
func (l *PostgresLedger) EnsureWallet(ctx context.Context, ownerID string) (Wallet, error) {
	for attempt := 0; attempt < 3; attempt++ {
		now := time.Now().UTC()
		_, err := l.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, wallet_number, balance, created_at, updated_at)
            VALUES ($1, $2, $3, 0, $4, $4)
            ON CONFLICT (owner_id) DO NOTHING`, uuid.New(), ownerID, NewWalletNumber(), now)
		if err != nil {
			if isUniqueViolation(err) {
				continue // wallet_number collision, mint another
			}
			return Wallet{}, fmt.Errorf("ensure wallet: %w", err)
		}
		return l.WalletByOwner(ctx, ownerID)
	}
	return Wallet{}, fmt.Errorf("ensure wallet: could not allocate wallet number")
}

// WalletByOwner fetches a wallet by owner identifier.
func (l *PostgresLedger) WalletByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	row := l.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE owner_id = $1`, ownerID)
	return scanWallet(row)
}

// WalletByNumber fetches a wallet by its public wallet number.
func (l *PostgresLedger) WalletByNumber(ctx context.Context, walletNumber string) (Wallet, error) {
	row := l.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE wallet_number = $1`, walletNumber)
	return scanWallet(row)
}

// CreateDeposit inserts a pending deposit record.
func (l *PostgresLedger) CreateDeposit(ctx context.Context, txn Transaction) (Transaction, error) {
	now := time.Now().UTC()
	txn.ID = uuid.NewString()
	txn.Kind = KindDeposit
	txn.Status = StatusPending
	txn.CreatedAt = now
	txn.UpdatedAt = now
	if txn.Metadata == nil {
		txn.Metadata = map[string]string{}
	}

	_, err := l.db.Exec(ctx, `INSERT INTO transactions
        (id, owner_id, reference, kind, amount, status, counterparty_wallet_number,
         counterparty_id, gateway_reference, authorization_url, access_code, metadata,
         created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
		txn.ID, txn.OwnerID, txn.Reference, txn.Kind, txn.Amount, txn.Status,
		nullable(txn.CounterpartyWalletNumber), nullable(txn.CounterpartyID),
		nullable(txn.GatewayReference), nullable(txn.AuthorizationURL),
		nullable(txn.AccessCode), txn.Metadata, now)
	if err != nil {
		if isUniqueViolation(err) {
			return Transaction{}, ErrDuplicateReference
		}
		return Transaction{}, fmt.Errorf("create deposit: %w", err)
	}
	return txn, nil
}

// ConfirmDeposit applies the idempotent crediting step: transaction row lock,
// status short-circuit, wallet row lock, credit, mark success, commit.
func (l *PostgresLedger) ConfirmDeposit(ctx context.Context, reference string) (Transaction, bool, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, false, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	txn, err := lockTransaction(ctx, tx, reference, KindDeposit)
	if err != nil {
		return Transaction{}, false, err
	}

	switch txn.Status {
	case StatusSuccess:
		return txn, false, nil
	case StatusFailed:
		return txn, false, ErrInvalidOperation
	}

	var walletID uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM wallets WHERE owner_id = $1 FOR UPDATE`, txn.OwnerID).Scan(&walletID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, false, ErrNotFound
		}
		return Transaction{}, false, err
	}

	now := time.Now().UTC()
	if err := creditWallet(ctx, tx, walletID, txn.Amount, now); err != nil {
		return Transaction{}, false, err
	}
	if _, err := tx.Exec(ctx, `UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3`,
		StatusSuccess, now, txn.ID); err != nil {
		return Transaction{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, false, err
	}

	txn.Status = StatusSuccess
	txn.UpdatedAt = now
	return txn, true, nil
}

// FailDeposit transitions a pending deposit to failed. Terminal records come
// back unchanged so redelivered failure notifications stay harmless.
func (l *PostgresLedger) FailDeposit(ctx context.Context, reference string) (Transaction, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	txn, err := lockTransaction(ctx, tx, reference, KindDeposit)
	if err != nil {
		return Transaction{}, err
	}
	if txn.Terminal() {
		return txn, nil
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3`,
		StatusFailed, now, txn.ID); err != nil {
		return Transaction{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}

	txn.Status = StatusFailed
	txn.UpdatedAt = now
	return txn, nil
}

// Transfer performs the atomic two-party move. Both wallet rows are locked in
// ascending wallet-id order regardless of direction.
func (l *PostgresLedger) Transfer(ctx context.Context, senderID, recipientWalletNumber string, amount int64, reference string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	sender, err := walletByKey(ctx, tx, `owner_id`, senderID)
	if err != nil {
		return Transaction{}, err
	}

	recipient, err := walletByKey(ctx, tx, `wallet_number`, recipientWalletNumber)
	if errors.Is(err, ErrNotFound) {
		return Transaction{}, ErrInvalidRecipient
	} else if err != nil {
		return Transaction{}, err
	}

	if sender.ID == recipient.ID {
		return Transaction{}, ErrInvalidOperation
	}

	// Lock both rows in ascending id order, then re-read balances under lock.
	first, second := sender, recipient
	if second.ID < first.ID {
		first, second = second, first
	}
	balances := map[string]int64{}
	for _, w := range []Wallet{first, second} {
		var balance int64
		if err := tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE id = $1 FOR UPDATE`, w.ID).Scan(&balance); err != nil {
			return Transaction{}, err
		}
		balances[w.ID] = balance
	}

	if balances[sender.ID] < amount {
		return Transaction{}, ErrInsufficientBalance
	}

	now := time.Now().UTC()
	if err := debitWallet(ctx, tx, uuid.MustParse(sender.ID), amount, now); err != nil {
		return Transaction{}, err
	}
	if err := creditWallet(ctx, tx, uuid.MustParse(recipient.ID), amount, now); err != nil {
		return Transaction{}, err
	}

	out := Transaction{
		ID:                       uuid.NewString(),
		OwnerID:                  sender.OwnerID,
		Reference:                reference,
		Kind:                     KindTransfer,
		Amount:                   amount,
		Status:                   StatusSuccess,
		CounterpartyWalletNumber: recipient.WalletNumber,
		CounterpartyID:           recipient.OwnerID,
		Metadata:                 map[string]string{},
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	in := Transaction{
		ID:                       uuid.NewString(),
		OwnerID:                  recipient.OwnerID,
		Reference:                RecvReference(reference),
		Kind:                     KindTransfer,
		Amount:                   amount,
		Status:                   StatusSuccess,
		CounterpartyWalletNumber: sender.WalletNumber,
		CounterpartyID:           sender.OwnerID,
		Metadata:                 map[string]string{"sender": sender.OwnerID},
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	for _, rec := range []Transaction{out, in} {
		if _, err := tx.Exec(ctx, `INSERT INTO transactions
            (id, owner_id, reference, kind, amount, status, counterparty_wallet_number,
             counterparty_id, metadata, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
			rec.ID, rec.OwnerID, rec.Reference, rec.Kind, rec.Amount, rec.Status,
			nullable(rec.CounterpartyWalletNumber), nullable(rec.CounterpartyID),
			rec.Metadata, now); err != nil {
			if isUniqueViolation(err) {
				return Transaction{}, ErrDuplicateReference
			}
			return Transaction{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}
	return out, nil
}

// TransactionByReference fetches one transaction by reference.
func (l *PostgresLedger) TransactionByReference(ctx context.Context, reference string) (Transaction, error) {
	row := l.db.QueryRow(ctx, `SELECT `+txnColumns+` FROM transactions WHERE reference = $1`, reference)
	txn, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	return txn, err
}

// ListByOwner returns the owner's most recent transactions, newest first.
func (l *PostgresLedger) ListByOwner(ctx context.Context, ownerID string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	rows, err := l.db.Query(ctx, `SELECT `+txnColumns+` FROM transactions
        WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Transaction, 0, limit)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}

// creditWallet increases a locked wallet's balance. The caller must hold the
// row lock for walletID.
func creditWallet(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64, now time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	_, err := tx.Exec(ctx, `UPDATE wallets SET balance = balance + $1, updated_at = $2 WHERE id = $3`,
		amount, now, walletID)
	return err
}

// debitWallet decreases a locked wallet's balance. The guard in the WHERE
// clause backstops the caller's balance check; zero rows affected means the
// debit would have gone negative.
func debitWallet(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64, now time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	tag, err := tx.Exec(ctx, `UPDATE wallets SET balance = balance - $1, updated_at = $2
        WHERE id = $3 AND balance >= $1`, amount, now, walletID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func lockTransaction(ctx context.Context, tx pgx.Tx, reference, kind string) (Transaction, error) {
	row := tx.QueryRow(ctx, `SELECT `+txnColumns+` FROM transactions
        WHERE reference = $1 AND kind = $2 FOR UPDATE`, reference, kind)
	txn, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	return txn, err
}

func walletByKey(ctx context.Context, tx pgx.Tx, column, value string) (Wallet, error) {
	// Resolution only; the FOR UPDATE locks happen afterwards in id order.
	row := tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE `+column+` = $1`, value)
	return scanWallet(row)
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	var id uuid.UUID
	if err := row.Scan(&id, &w.OwnerID, &w.WalletNumber, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	w.ID = id.String()
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	var id uuid.UUID
	var counterpartyNumber, counterpartyID, gatewayRef, authURL, accessCode *string
	if err := row.Scan(&id, &t.OwnerID, &t.Reference, &t.Kind, &t.Amount, &t.Status,
		&counterpartyNumber, &counterpartyID, &gatewayRef, &authURL, &accessCode,
		&t.Metadata, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	t.ID = id.String()
	t.CounterpartyWalletNumber = deref(counterpartyNumber)
	t.CounterpartyID = deref(counterpartyID)
	t.GatewayReference = deref(gatewayRef)
	t.AuthorizationURL = deref(authURL)
	t.AccessCode = deref(accessCode)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
