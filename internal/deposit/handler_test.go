package deposit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/Muizzyranking/wallet-service/internal/ledger"
	"github.com/Muizzyranking/wallet-service/internal/logging"
	"github.com/Muizzyranking/wallet-service/internal/paystack"
)

const testWebhookSecret = "sk_test_webhook"

func newWebhookApp(t *testing.T) (*fiber.App, *Service, ledger.Ledger) {
	t.Helper()

	l := ledger.NewInMemory()
	svc := NewService(l, nil, nil, logging.Discard())
	handler := NewHandler(svc, testWebhookSecret, logging.Discard())

	app := fiber.New()
	app.Post("/api/v1/wallet/paystack/webhook", handler.Webhook)
	return app, svc, l
}

func chargeEvent(event, reference, status string, amount int64) []byte {
	body, _ := json.Marshal(map[string]any{
		"event": event,
		"data": map[string]any{
			"reference": reference,
			"status":    status,
			"amount":    amount,
		},
	})
	return body
}

func deliverWebhook(t *testing.T, app *fiber.App, body []byte, signature string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/paystack/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(paystack.SignatureHeader, signature)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("webhook request: %v", err)
	}
	return resp
}

func TestWebhookCreditsSignedChargeSuccess(t *testing.T) {
	app, svc, l := newWebhookApp(t)
	ctx := context.Background()

	res, err := svc.Initiate(ctx, InitiateInput{OwnerID: "owner-a", Email: "a@example.com", Amount: 7_500})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	body := chargeEvent(paystack.EventChargeSuccess, res.Reference, "success", 7_500)
	resp := deliverWebhook(t, app, body, paystack.Sign(body, testWebhookSecret))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var ack struct {
		Status bool `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if !ack.Status {
		t.Fatal("expected a positive acknowledgement")
	}

	w, err := l.WalletByOwner(ctx, "owner-a")
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w.Balance != 7_500 {
		t.Fatalf("expected 7500, got %d", w.Balance)
	}
}

func TestWebhookRedeliveryAcknowledgedWithoutDoubleCredit(t *testing.T) {
	app, svc, l := newWebhookApp(t)
	ctx := context.Background()

	res, err := svc.Initiate(ctx, InitiateInput{OwnerID: "owner-a", Email: "a@example.com", Amount: 3_000})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	body := chargeEvent(paystack.EventChargeSuccess, res.Reference, "success", 3_000)
	signature := paystack.Sign(body, testWebhookSecret)

	for i := 0; i < 3; i++ {
		resp := deliverWebhook(t, app, body, signature)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d", i, resp.StatusCode)
		}
	}

	w, _ := l.WalletByOwner(ctx, "owner-a")
	if w.Balance != 3_000 {
		t.Fatalf("redelivery credited more than once: %d", w.Balance)
	}
}

func TestWebhookInvalidSignatureMutatesNothing(t *testing.T) {
	app, svc, l := newWebhookApp(t)
	ctx := context.Background()

	res, err := svc.Initiate(ctx, InitiateInput{OwnerID: "owner-a", Email: "a@example.com", Amount: 5_000})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	body := chargeEvent(paystack.EventChargeSuccess, res.Reference, "success", 5_000)

	cases := []struct {
		name      string
		signature string
	}{
		{"missing", ""},
		{"wrong secret", paystack.Sign(body, "sk_other_secret")},
		{"tampered body", paystack.Sign(chargeEvent(paystack.EventChargeSuccess, res.Reference, "success", 1), testWebhookSecret)},
	}
	for _, tc := range cases {
		resp := deliverWebhook(t, app, body, tc.signature)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s signature: expected 401, got %d", tc.name, resp.StatusCode)
		}
	}

	w, _ := l.WalletByOwner(ctx, "owner-a")
	if w.Balance != 0 {
		t.Fatalf("rejected webhook must not credit, got %d", w.Balance)
	}
	txn, _ := l.TransactionByReference(ctx, res.Reference)
	if txn.Status != ledger.StatusPending {
		t.Fatalf("rejected webhook must not change status, got %s", txn.Status)
	}
}

func TestWebhookChargeFailedMarksTransactionFailed(t *testing.T) {
	app, svc, l := newWebhookApp(t)
	ctx := context.Background()

	res, err := svc.Initiate(ctx, InitiateInput{OwnerID: "owner-a", Email: "a@example.com", Amount: 2_000})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	body := chargeEvent(paystack.EventChargeFailed, res.Reference, "failed", 2_000)
	resp := deliverWebhook(t, app, body, paystack.Sign(body, testWebhookSecret))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	txn, _ := l.TransactionByReference(ctx, res.Reference)
	if txn.Status != ledger.StatusFailed {
		t.Fatalf("expected failed, got %s", txn.Status)
	}
	w, _ := l.WalletByOwner(ctx, "owner-a")
	if w.Balance != 0 {
		t.Fatalf("failed charge must not credit, got %d", w.Balance)
	}
}

func TestWebhookUnknownReferenceAnswersBadRequest(t *testing.T) {
	app, _, _ := newWebhookApp(t)

	body := chargeEvent(paystack.EventChargeSuccess, "TXN-DOESNOTEXIST0001", "success", 1_000)
	resp := deliverWebhook(t, app, body, paystack.Sign(body, testWebhookSecret))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestWebhookIgnoresUnknownEvents(t *testing.T) {
	app, _, _ := newWebhookApp(t)

	body := []byte(fmt.Sprintf(`{"event":"transfer.success","data":{"reference":"%s"}}`, "TXN-IGNORED"))
	resp := deliverWebhook(t, app, body, paystack.Sign(body, testWebhookSecret))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for unhandled event, got %d", resp.StatusCode)
	}
}

func TestWebhookMalformedBody(t *testing.T) {
	app, _, _ := newWebhookApp(t)

	body := []byte("{not json")
	resp := deliverWebhook(t, app, body, paystack.Sign(body, testWebhookSecret))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}
