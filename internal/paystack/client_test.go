package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Muizzyranking/wallet-service/internal/logging"
)

func TestInitializeSendsChargeRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transaction/initialize" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_key" {
			t.Errorf("unexpected authorization header %q", got)
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload["email"] != "a@example.com" || payload["reference"] != "TXN-TEST" {
			t.Errorf("unexpected payload %v", payload)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/abc",
				"access_code":       "code-123",
				"reference":         "TXN-TEST",
			},
		})
	}))
	defer srv.Close()

	client := NewClient("sk_test_key", srv.URL, logging.Discard())

	res, err := client.Initialize(context.Background(), "a@example.com", 5_000, "TXN-TEST")
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if res.AuthorizationURL != "https://checkout.paystack.com/abc" || res.AccessCode != "code-123" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestVerifyReportsChargeState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/TXN-TEST" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"reference": "TXN-TEST",
				"status":    "success",
				"amount":    5000,
			},
		})
	}))
	defer srv.Close()

	client := NewClient("sk_test_key", srv.URL, logging.Discard())

	res, err := client.Verify(context.Background(), "TXN-TEST")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Status != "success" || res.Amount != 5000 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestClientWrapsFailuresInErrGateway(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"declined envelope", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "Invalid key"})
		}},
		{"garbage body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(tc.handler)
		client := NewClient("sk_test_key", srv.URL, logging.Discard())

		_, err := client.Initialize(context.Background(), "a@example.com", 5_000, "TXN-TEST")
		srv.Close()
		if !errors.Is(err, ErrGateway) {
			t.Fatalf("%s: expected ErrGateway, got %v", tc.name, err)
		}
	}
}

func TestVerifySignatureRoundTrip(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)

	if err := VerifySignature(body, Sign(body, "secret"), "secret"); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
	if err := VerifySignature(body, Sign(body, "other"), "secret"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("wrong key accepted: %v", err)
	}
	if err := VerifySignature([]byte(`{"event":"tampered"}`), Sign(body, "secret"), "secret"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("tampered body accepted: %v", err)
	}
	if err := VerifySignature(body, "", "secret"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("empty signature accepted: %v", err)
	}
}
