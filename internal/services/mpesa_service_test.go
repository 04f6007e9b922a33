package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type darajaStub struct {
	authStatus int
	pushStatus int
	pushBody   string
	lastPush   stkPushRequest
	pushAuth   string
}

func (d *darajaStub) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		if d.authStatus != 0 {
			w.WriteHeader(d.authStatus)
			return
		}
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("key:secret"))
		if r.Header.Get("Authorization") != want {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok123","expires_in":"3599"}`))
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		d.pushAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&d.lastPush); err != nil {
			t.Errorf("decode push body: %v", err)
		}
		status := d.pushStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(d.pushBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newMpesaClientForTest(baseURL string) *MpesaClient {
	client := NewMpesaClient(MpesaConfig{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "https://example.com/api/mpesa/callback",
		BaseURL:        baseURL,
	})
	client.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return client
}

func TestSTKPushSuccess(t *testing.T) {
	stub := &darajaStub{pushBody: `{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":"ws_CO_191220191020363925","ResponseCode":"0","ResponseDescription":"Success. Request accepted for processing","CustomerMessage":"Success. Request accepted for processing"}`}
	srv := stub.server(t)
	client := newMpesaClientForTest(srv.URL)

	result := client.STKPush(context.Background(), "254712345678", 10.6, "TOKENS-u-p")
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.CheckoutRequestID != "ws_CO_191220191020363925" || result.MerchantRequestID != "29115-34620561-1" {
		t.Fatalf("unexpected ids %+v", result)
	}

	if stub.pushAuth != "Bearer tok123" {
		t.Fatalf("unexpected push auth %q", stub.pushAuth)
	}
	push := stub.lastPush
	if push.Amount != 11 {
		t.Fatalf("expected amount rounded to 11, got %d", push.Amount)
	}
	if push.Timestamp != "20260102030405" {
		t.Fatalf("unexpected timestamp %q", push.Timestamp)
	}
	wantPassword := base64.StdEncoding.EncodeToString([]byte("174379passkey20260102030405"))
	if push.Password != wantPassword {
		t.Fatalf("unexpected password %q", push.Password)
	}
	if push.PartyA != "254712345678" || push.PhoneNumber != "254712345678" || push.PartyB != "174379" {
		t.Fatalf("unexpected parties %+v", push)
	}
	if push.TransactionType != "CustomerPayBillOnline" || push.AccountReference != "TOKENS-u-p" {
		t.Fatalf("unexpected push body %+v", push)
	}
	if push.CallBackURL != "https://example.com/api/mpesa/callback" {
		t.Fatalf("unexpected callback url %q", push.CallBackURL)
	}
}

func TestSTKPushProviderRejection(t *testing.T) {
	stub := &darajaStub{
		pushStatus: http.StatusBadRequest,
		pushBody:   `{"requestId":"1","errorCode":"400.002.02","errorMessage":"Bad Request - Invalid PhoneNumber"}`,
	}
	srv := stub.server(t)

	result := newMpesaClientForTest(srv.URL).STKPush(context.Background(), "254712345678", 1, "ref")
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error != "Bad Request - Invalid PhoneNumber" {
		t.Fatalf("expected provider message, got %q", result.Error)
	}
}

func TestSTKPushNonZeroResponseCode(t *testing.T) {
	stub := &darajaStub{pushBody: `{"CheckoutRequestID":"ws_CO_x","ResponseCode":"1","ResponseDescription":"Rejected"}`}
	srv := stub.server(t)

	result := newMpesaClientForTest(srv.URL).STKPush(context.Background(), "254712345678", 1, "ref")
	if result.Success || result.Error != "Rejected" || result.ResponseCode != "1" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestSTKPushAuthFailure(t *testing.T) {
	stub := &darajaStub{authStatus: http.StatusUnauthorized}
	srv := stub.server(t)

	client := newMpesaClientForTest(srv.URL)
	_, err := client.AccessToken(context.Background())
	var authErr *GatewayAuthError
	if !errors.As(err, &authErr) || authErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected GatewayAuthError with 401, got %v", err)
	}

	result := client.STKPush(context.Background(), "254712345678", 1, "ref")
	if result.Success || result.Error != "Failed to get M-Pesa token" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestSTKPushTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	result := newMpesaClientForTest(url).STKPush(context.Background(), "254712345678", 1, "ref")
	if result.Success {
		t.Fatal("expected failure against a closed server")
	}
}

func TestMpesaBaseURLByEnvironment(t *testing.T) {
	if got := NewMpesaClient(MpesaConfig{Environment: "sandbox"}).BaseURL(); got != mpesaSandboxURL {
		t.Fatalf("sandbox: got %q", got)
	}
	if got := NewMpesaClient(MpesaConfig{Environment: "production"}).BaseURL(); got != mpesaProductionURL {
		t.Fatalf("production: got %q", got)
	}
	if got := NewMpesaClient(MpesaConfig{Environment: "production", BaseURL: "http://stub/"}).BaseURL(); got != "http://stub" {
		t.Fatalf("override: got %q", got)
	}
}
