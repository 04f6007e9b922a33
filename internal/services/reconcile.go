package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/example/docstore/internal/models"
	"github.com/example/docstore/internal/store"
)

// Callback metadata item names sent by the gateway.
const (
	MetaReceiptNumber   = "MpesaReceiptNumber"
	MetaTransactionDate = "TransactionDate"
	MetaAmount          = "Amount"
	MetaPhoneNumber     = "PhoneNumber"
)

// CallbackAck is the fixed acknowledgment body returned to the gateway.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

const accountMissingDesc = "Paid but account no longer exists"

var (
	ackAccepted = CallbackAck{ResultCode: 0, ResultDesc: "Accepted"}
	ackRetry    = CallbackAck{ResultCode: 1, ResultDesc: "Error processing callback"}
)

// MetadataItem is one Name/Value pair of CallbackMetadata. Values arrive as
// numbers or strings, so the raw JSON is kept.
type MetadataItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value,omitempty"`
}

// String renders the value without quotes and without float formatting, so
// 20191219102115 stays 20191219102115.
func (m MetadataItem) String() string {
	raw := strings.TrimSpace(string(m.Value))
	if raw == "" || raw == "null" {
		return ""
	}
	if strings.HasPrefix(raw, `"`) {
		if s, err := strconv.Unquote(raw); err == nil {
			return s
		}
	}
	return raw
}

// STKCallback is the body.stkCallback object of a gateway notification.
type STKCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  *struct {
		Item []MetadataItem `json:"Item"`
	} `json:"CallbackMetadata,omitempty"`
}

// CallbackEnvelope is the full notification payload.
type CallbackEnvelope struct {
	Body struct {
		STKCallback STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

// Items returns the metadata list, or nil when the gateway sent none.
func (c STKCallback) Items() []MetadataItem {
	if c.CallbackMetadata == nil {
		return nil
	}
	return c.CallbackMetadata.Item
}

// LookupMetadata finds an item by name. A missing item is not an error.
func LookupMetadata(items []MetadataItem, name string) (string, bool) {
	for _, item := range items {
		if item.Name == name {
			return item.String(), true
		}
	}
	return "", false
}

// Reconcile applies a gateway notification to its payment exactly once and
// returns the acknowledgment to send back. It only asks the gateway to retry
// (ResultCode 1) when storage failed, which is safe because a resolved
// payment is never touched again.
func (s *PaymentService) Reconcile(ctx context.Context, cb STKCallback, raw []byte) CallbackAck {
	outcome, payment, err := s.reconcile(ctx, cb)

	callbacksTotal.WithLabelValues(string(outcome)).Inc()
	s.logNotification(ctx, cb, raw, payment, outcome)

	if err != nil {
		log.Printf("[Callback] checkout %s: %v", cb.CheckoutRequestID, err)
		return ackRetry
	}

	switch outcome {
	case models.PaymentLogUnmatched:
		log.Printf("[Callback] payment not found for checkout %s", cb.CheckoutRequestID)
	case models.PaymentLogDuplicate:
		log.Printf("[Callback] duplicate notification for payment %s (status %s)", payment.ID, payment.Status)
	case models.PaymentLogCompleted:
		log.Printf("[Callback] payment %s completed, added %d tokens to user %s", payment.ID, payment.TokensPurchased, payment.UserID)
		s.notifyCompleted(payment)
	case models.PaymentLogFailed:
		log.Printf("[Callback] payment %s failed: %s", payment.ID, cb.ResultDesc)
	case models.PaymentLogOrphaned:
		log.Printf("[Callback] payment %s paid for missing account %s, needs refund", payment.ID, payment.UserID)
	}

	return ackAccepted
}

func (s *PaymentService) reconcile(ctx context.Context, cb STKCallback) (models.PaymentLogOutcome, *models.Payment, error) {
	payment, err := s.payments.FindByCheckoutRequestID(ctx, cb.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, store.ErrPaymentNotFound) {
			return models.PaymentLogUnmatched, nil, nil
		}
		return models.PaymentLogError, nil, fmt.Errorf("find payment: %w", err)
	}

	if payment.Status.Terminal() {
		return models.PaymentLogDuplicate, payment, nil
	}

	if cb.ResultCode != MpesaResultSuccess {
		err := s.payments.MarkFailed(ctx, payment.ID, cb.ResultDesc)
		switch {
		case errors.Is(err, store.ErrNotPending):
			return models.PaymentLogDuplicate, payment, nil
		case err != nil:
			return models.PaymentLogError, payment, fmt.Errorf("mark failed: %w", err)
		}
		payment.Status = models.PaymentStatusFailed
		payment.ResultDesc = cb.ResultDesc
		return models.PaymentLogFailed, payment, nil
	}

	items := cb.Items()
	receipt, _ := LookupMetadata(items, MetaReceiptNumber)
	txDate, _ := LookupMetadata(items, MetaTransactionDate)
	if paid, ok := LookupMetadata(items, MetaAmount); ok {
		if v, err := strconv.ParseFloat(paid, 64); err == nil && int64(v) != payment.Amount {
			log.Printf("[Callback] payment %s: paid amount %s differs from charge %d", payment.ID, paid, payment.Amount)
		}
	}
	completedAt := time.Now().UTC()

	// The status flip and the credit commit together or not at all. The
	// pending guard inside MarkCompleted makes a redelivered notification
	// roll back without crediting.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.payments.WithTx(tx).MarkCompleted(ctx, payment.ID, receipt, txDate, cb.ResultDesc, completedAt); err != nil {
			return err
		}
		return s.accounts.WithTx(tx).Credit(ctx, payment.UserID, payment.TokensPurchased)
	})
	switch {
	case errors.Is(err, store.ErrNotPending):
		return models.PaymentLogDuplicate, payment, nil
	case errors.Is(err, store.ErrAccountNotFound):
		return s.orphan(ctx, payment)
	case err != nil:
		return models.PaymentLogError, payment, fmt.Errorf("complete payment: %w", err)
	}

	tokensCreditedTotal.Add(float64(payment.TokensPurchased))
	payment.Status = models.PaymentStatusCompleted
	payment.MpesaReceipt = receipt
	payment.TransactionDate = txDate
	payment.CompletedAt = &completedAt
	return models.PaymentLogCompleted, payment, nil
}

// orphan closes out a paid payment whose account no longer exists. Retrying
// cannot succeed, so the payment is failed; the logged notification keeps
// the receipt for a manual refund.
func (s *PaymentService) orphan(ctx context.Context, payment *models.Payment) (models.PaymentLogOutcome, *models.Payment, error) {
	err := s.payments.MarkFailed(ctx, payment.ID, accountMissingDesc)
	switch {
	case errors.Is(err, store.ErrNotPending):
		return models.PaymentLogDuplicate, payment, nil
	case err != nil:
		return models.PaymentLogError, payment, fmt.Errorf("fail orphaned payment: %w", err)
	}
	payment.Status = models.PaymentStatusFailed
	payment.ResultDesc = accountMissingDesc
	return models.PaymentLogOrphaned, payment, nil
}

// logNotification is best effort: a failure here must not change the ack.
func (s *PaymentService) logNotification(ctx context.Context, cb STKCallback, raw []byte, payment *models.Payment, outcome models.PaymentLogOutcome) {
	entry := &models.PaymentLog{
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		Outcome:           outcome,
	}
	if payment != nil {
		id := payment.ID
		entry.PaymentID = &id
	}
	if json.Valid(raw) {
		entry.Payload = datatypes.JSON(raw)
	} else if encoded, err := json.Marshal(cb); err == nil {
		entry.Payload = datatypes.JSON(encoded)
	}

	if err := s.payments.LogNotification(ctx, entry); err != nil {
		log.Printf("[Callback] failed to store notification for checkout %s: %v", cb.CheckoutRequestID, err)
	}
}

func (s *PaymentService) notifyCompleted(payment *models.Payment) {
	if s.notifier == nil {
		return
	}
	n := TokenPurchaseNotification{
		PaymentID:    payment.ID.String(),
		Tokens:       payment.TokensPurchased,
		Amount:       payment.Amount,
		MpesaReceipt: payment.MpesaReceipt,
	}
	userID := payment.UserID
	go func() {
		if user, err := s.accounts.Get(context.Background(), userID); err == nil {
			n.Email = user.Email
		}
		_ = s.notifier.NotifyTokenPurchase(n)
	}()
}
