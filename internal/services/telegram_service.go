package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/http"
	"strings"
	"time"
)

const telegramAPIURL = "https://api.telegram.org"

// TelegramService handles sending notifications to Telegram.
type TelegramService struct {
	botToken    string
	adminChatID string
	apiURL      string
	httpClient  *http.Client
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		apiURL:      telegramAPIURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiURL, s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// TokenPurchaseNotification describes a completed token sale.
type TokenPurchaseNotification struct {
	PaymentID    string
	Email        string
	Tokens       int64
	Amount       int64
	MpesaReceipt string
}

// FormatPrice formats an amount with thousand separators and a currency code.
func FormatPrice(amount int64, currency string) string {
	if currency == "" {
		currency = "KES"
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	str := fmt.Sprintf("%d", amount)

	var result strings.Builder
	length := len(str)
	for i, digit := range str {
		if i > 0 && (length-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}

	return sign + result.String() + " " + currency
}

// NotifyTokenPurchase tells the admin chat about a completed payment.
func (s *TelegramService) NotifyTokenPurchase(n TokenPurchaseNotification) error {
	if s.botToken == "" || s.adminChatID == "" {
		return nil
	}

	message := fmt.Sprintf(`<b>✅ TOKEN PURCHASE</b>
<b>Payment:</b> %s
<b>Customer:</b> %s
<b>Tokens:</b> %d
<b>Amount:</b> %s
<b>M-Pesa receipt:</b> %s`,
		html.EscapeString(n.PaymentID),
		html.EscapeString(n.Email),
		n.Tokens,
		FormatPrice(n.Amount, "KES"),
		html.EscapeString(n.MpesaReceipt),
	)

	if err := s.SendToAdmin(strings.TrimSpace(message)); err != nil {
		log.Printf("[Telegram] purchase notification failed: %v", err)
		return err
	}
	return nil
}
