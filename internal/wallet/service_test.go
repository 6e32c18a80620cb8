package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/Muizzyranking/wallet-service/internal/ledger"
	"github.com/Muizzyranking/wallet-service/internal/logging"
)

func TestProvisionIsIdempotent(t *testing.T) {
	svc := NewService(ledger.NewInMemory(), logging.Discard())
	ctx := context.Background()

	first, err := svc.Provision(ctx, "owner-a")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if len(first.WalletNumber) != 13 {
		t.Fatalf("expected 13-digit wallet number, got %q", first.WalletNumber)
	}
	if first.Balance != 0 {
		t.Fatalf("new wallet must start at zero, got %d", first.Balance)
	}

	second, err := svc.Provision(ctx, "owner-a")
	if err != nil {
		t.Fatalf("second provision: %v", err)
	}
	if second.ID != first.ID || second.WalletNumber != first.WalletNumber {
		t.Fatal("repeat provisioning must return the same wallet")
	}
}

func TestBalanceUnknownOwner(t *testing.T) {
	svc := NewService(ledger.NewInMemory(), logging.Discard())

	if _, err := svc.Balance(context.Background(), "owner-missing"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHistoryReflectsBothSidesOfTransfer(t *testing.T) {
	l := ledger.NewInMemory()
	svc := NewService(l, logging.Discard())
	ctx := context.Background()

	svc.Provision(ctx, "owner-a")
	b, _ := l.EnsureWallet(ctx, "owner-b")
	ledger.SeedBalance(l, "owner-a", 10_000)

	txn, err := l.Transfer(ctx, "owner-a", b.WalletNumber, 1_000, ledger.NewReference())
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	sent, err := svc.History(ctx, "owner-a")
	if err != nil {
		t.Fatalf("sender history: %v", err)
	}
	if len(sent) != 1 || sent[0].Reference != txn.Reference {
		t.Fatalf("unexpected sender history %+v", sent)
	}

	received, err := svc.History(ctx, "owner-b")
	if err != nil {
		t.Fatalf("recipient history: %v", err)
	}
	if len(received) != 1 || received[0].Reference != ledger.RecvReference(txn.Reference) {
		t.Fatalf("unexpected recipient history %+v", received)
	}

	balance, err := svc.Balance(ctx, "owner-b")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 1_000 {
		t.Fatalf("expected 1000, got %d", balance)
	}
}
