package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFormatPrice(t *testing.T) {
	cases := map[int64]string{
		0:       "0 KES",
		999:     "999 KES",
		1000:    "1,000 KES",
		1234567: "1,234,567 KES",
		-2500:   "-2,500 KES",
	}
	for amount, want := range cases {
		if got := FormatPrice(amount, ""); got != want {
			t.Fatalf("FormatPrice(%d) = %q, want %q", amount, got, want)
		}
	}
}

func TestNotifyTokenPurchaseSendsToAdminChat(t *testing.T) {
	var (
		path string
		msg  telegramMessage
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&msg)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := NewTelegramService("bot-token", "42")
	svc.apiURL = srv.URL

	err := svc.NotifyTokenPurchase(TokenPurchaseNotification{
		PaymentID:    "pay-1",
		Email:        "buyer@example.com",
		Tokens:       5,
		Amount:       5000,
		MpesaReceipt: "NLJ7RT61SV",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	if path != "/botbot-token/sendMessage" {
		t.Fatalf("unexpected path %q", path)
	}
	if msg.ChatID != "42" || msg.ParseMode != "HTML" {
		t.Fatalf("unexpected message %+v", msg)
	}
	for _, want := range []string{"pay-1", "buyer@example.com", "5,000 KES", "NLJ7RT61SV"} {
		if !strings.Contains(msg.Text, want) {
			t.Fatalf("message missing %q: %s", want, msg.Text)
		}
	}
}

func TestNotifyTokenPurchaseWithoutCredentialsIsNoop(t *testing.T) {
	svc := NewTelegramService("", "")
	svc.apiURL = "http://127.0.0.1:0"
	if err := svc.NotifyTokenPurchase(TokenPurchaseNotification{PaymentID: "p"}); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestSendMessageReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	svc := NewTelegramService("bot-token", "42")
	svc.apiURL = srv.URL
	if err := svc.SendToAdmin("hello"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestNotifyTokenPurchaseEscapesHTML(t *testing.T) {
	var msg telegramMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&msg)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := NewTelegramService("bot-token", "42")
	svc.apiURL = srv.URL

	err := svc.NotifyTokenPurchase(TokenPurchaseNotification{
		PaymentID:    "pay-1",
		Email:        "<b>x</b>&y@example.com",
		Tokens:       1,
		Amount:       1,
		MpesaReceipt: "R<1>",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	if !strings.Contains(msg.Text, "&lt;b&gt;x&lt;/b&gt;&amp;y@example.com") {
		t.Fatalf("email not escaped: %s", msg.Text)
	}
	if !strings.Contains(msg.Text, "R&lt;1&gt;") {
		t.Fatalf("receipt not escaped: %s", msg.Text)
	}
	if strings.Contains(msg.Text, "<b>x</b>") {
		t.Fatalf("raw markup leaked into message: %s", msg.Text)
	}
}
