package deposit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Muizzyranking/wallet-service/internal/ledger"
	"github.com/Muizzyranking/wallet-service/internal/logging"
	"github.com/Muizzyranking/wallet-service/internal/notification"
	"github.com/Muizzyranking/wallet-service/internal/paystack"
)

type failingGateway struct{}

func (failingGateway) Initialize(context.Context, string, int64, string) (paystack.InitializeResult, error) {
	return paystack.InitializeResult{}, paystack.ErrGateway
}

func (failingGateway) Verify(context.Context, string) (paystack.VerifyResult, error) {
	return paystack.VerifyResult{}, paystack.ErrGateway
}

// scriptedGateway answers Verify with a fixed charge state.
type scriptedGateway struct {
	StaticGateway
	verifyStatus string
}

func (g scriptedGateway) Verify(_ context.Context, reference string) (paystack.VerifyResult, error) {
	return paystack.VerifyResult{Reference: reference, Status: g.verifyStatus}, nil
}

type capturingNotifier struct {
	messages []notification.Message
}

func (n *capturingNotifier) Send(_ context.Context, message notification.Message) error {
	n.messages = append(n.messages, message)
	return nil
}

func TestInitiateCreatesPendingTransaction(t *testing.T) {
	l := ledger.NewInMemory()
	svc := NewService(l, nil, nil, logging.Discard())
	ctx := context.Background()

	res, err := svc.Initiate(ctx, InitiateInput{OwnerID: "owner-a", Email: "a@example.com", Amount: 5_000})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if !strings.HasPrefix(res.Reference, "TXN-") {
		t.Fatalf("unexpected reference %q", res.Reference)
	}
	if res.AuthorizationURL == "" {
		t.Fatal("expected an authorization url from the gateway")
	}

	txn, err := l.TransactionByReference(ctx, res.Reference)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if txn.Status != ledger.StatusPending {
		t.Fatalf("expected pending, got %s", txn.Status)
	}
	if txn.Kind != ledger.KindDeposit || txn.Amount != 5_000 {
		t.Fatalf("unexpected record %+v", txn)
	}
	if txn.GatewayReference == "" || txn.AccessCode == "" {
		t.Fatal("gateway handles must be persisted with the pending record")
	}

	w, err := l.WalletByOwner(ctx, "owner-a")
	if err != nil {
		t.Fatalf("wallet must exist after initiate: %v", err)
	}
	if w.Balance != 0 {
		t.Fatalf("initiation must not credit, balance=%d", w.Balance)
	}
}

func TestInitiateAmountBounds(t *testing.T) {
	svc := NewService(ledger.NewInMemory(), nil, nil, logging.Discard())
	ctx := context.Background()

	for _, amount := range []int64{0, -1, ledger.MinDepositAmount - 1, ledger.MaxDepositAmount + 1} {
		_, err := svc.Initiate(ctx, InitiateInput{OwnerID: "owner-a", Email: "a@example.com", Amount: amount})
		if !errors.Is(err, ledger.ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestInitiateGatewayFailureLeavesNoRecord(t *testing.T) {
	l := ledger.NewInMemory()
	svc := NewService(l, failingGateway{}, nil, logging.Discard())
	ctx := context.Background()

	_, err := svc.Initiate(ctx, InitiateInput{OwnerID: "owner-a", Email: "a@example.com", Amount: 5_000})
	if !errors.Is(err, paystack.ErrGateway) {
		t.Fatalf("expected gateway error, got %v", err)
	}

	txns, err := l.ListByOwner(ctx, "owner-a", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txns) != 0 {
		t.Fatalf("gateway failure must not persist a transaction, got %d", len(txns))
	}
}

func TestConfirmNotifiesOnceAcrossRedelivery(t *testing.T) {
	l := ledger.NewInMemory()
	notifier := &capturingNotifier{}
	svc := NewService(l, nil, notifier, logging.Discard())
	ctx := context.Background()

	res, err := svc.Initiate(ctx, InitiateInput{OwnerID: "owner-a", Email: "a@example.com", Amount: 4_000})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Confirm(ctx, res.Reference); err != nil {
			t.Fatalf("confirm %d: %v", i, err)
		}
	}

	w, _ := l.WalletByOwner(ctx, "owner-a")
	if w.Balance != 4_000 {
		t.Fatalf("expected 4000 after redeliveries, got %d", w.Balance)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.messages))
	}
	if notifier.messages[0].Kind != notification.KindDepositCredited {
		t.Fatalf("unexpected notification kind %s", notifier.messages[0].Kind)
	}
}

func TestStatusHidesForeignReferences(t *testing.T) {
	l := ledger.NewInMemory()
	svc := NewService(l, nil, nil, logging.Discard())
	ctx := context.Background()

	res, err := svc.Initiate(ctx, InitiateInput{OwnerID: "owner-a", Email: "a@example.com", Amount: 2_000})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	if _, err := svc.Status(ctx, "owner-b", res.Reference); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("foreign owner must see not found, got %v", err)
	}
	if _, err := svc.Status(ctx, "owner-a", res.Reference); err != nil {
		t.Fatalf("owner status: %v", err)
	}
}

func TestVerifyAndConfirmSettlesSuccess(t *testing.T) {
	l := ledger.NewInMemory()
	svc := NewService(l, scriptedGateway{verifyStatus: "success"}, nil, logging.Discard())
	ctx := context.Background()

	res, err := svc.Initiate(ctx, InitiateInput{OwnerID: "owner-a", Email: "a@example.com", Amount: 1_500})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	txn, err := svc.VerifyAndConfirm(ctx, "owner-a", res.Reference)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if txn.Status != ledger.StatusSuccess {
		t.Fatalf("expected success, got %s", txn.Status)
	}

	w, _ := l.WalletByOwner(ctx, "owner-a")
	if w.Balance != 1_500 {
		t.Fatalf("expected 1500, got %d", w.Balance)
	}

	// Terminal record short-circuits before the gateway is consulted again.
	again, err := svc.VerifyAndConfirm(ctx, "owner-a", res.Reference)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if again.Status != ledger.StatusSuccess {
		t.Fatalf("expected success, got %s", again.Status)
	}
	w, _ = l.WalletByOwner(ctx, "owner-a")
	if w.Balance != 1_500 {
		t.Fatalf("second verify must not credit again, got %d", w.Balance)
	}
}

func TestVerifyAndConfirmMarksAbandonedFailed(t *testing.T) {
	l := ledger.NewInMemory()
	svc := NewService(l, scriptedGateway{verifyStatus: "abandoned"}, nil, logging.Discard())
	ctx := context.Background()

	res, err := svc.Initiate(ctx, InitiateInput{OwnerID: "owner-a", Email: "a@example.com", Amount: 1_500})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	txn, err := svc.VerifyAndConfirm(ctx, "owner-a", res.Reference)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if txn.Status != ledger.StatusFailed {
		t.Fatalf("expected failed, got %s", txn.Status)
	}

	w, _ := l.WalletByOwner(ctx, "owner-a")
	if w.Balance != 0 {
		t.Fatalf("abandoned charge must not credit, got %d", w.Balance)
	}
}

func TestVerifyAndConfirmLeavesPendingAlone(t *testing.T) {
	l := ledger.NewInMemory()
	svc := NewService(l, scriptedGateway{verifyStatus: "ongoing"}, nil, logging.Discard())
	ctx := context.Background()

	res, err := svc.Initiate(ctx, InitiateInput{OwnerID: "owner-a", Email: "a@example.com", Amount: 1_500})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	txn, err := svc.VerifyAndConfirm(ctx, "owner-a", res.Reference)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if txn.Status != ledger.StatusPending {
		t.Fatalf("expected pending, got %s", txn.Status)
	}
}
