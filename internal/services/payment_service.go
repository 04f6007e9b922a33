package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/docstore/internal/models"
	"github.com/example/docstore/internal/store"
	"github.com/example/docstore/internal/utils"
)

var ErrInvalidTokenQuantity = errors.New("invalid number of tokens")

// DefaultMaxCharge is the largest single STK push amount Daraja accepts.
const DefaultMaxCharge int64 = 250000

// PushGateway submits STK push requests. *MpesaClient implements it.
type PushGateway interface {
	STKPush(ctx context.Context, phone string, amount float64, reference string) PushResult
}

// PurchaseNotifier is told about completed payments. *TelegramService implements it.
type PurchaseNotifier interface {
	NotifyTokenPurchase(n TokenPurchaseNotification) error
}

// PurchaseFailedError is returned when the gateway refuses the push request.
// The payment has already been marked failed when this is returned.
type PurchaseFailedError struct {
	PaymentID uuid.UUID
	Reason    string
}

func (e *PurchaseFailedError) Error() string {
	return "payment initiation failed: " + e.Reason
}

// PurchaseResult is what the caller needs to poll for the outcome.
type PurchaseResult struct {
	PaymentID         uuid.UUID
	CheckoutRequestID string
	Amount            int64
}

// PaymentService runs the token purchase lifecycle: initiation against the
// gateway and reconciliation of its asynchronous callback.
type PaymentService struct {
	db         *gorm.DB
	accounts   *store.AccountStore
	payments   *store.PaymentStore
	gateway    PushGateway
	notifier   PurchaseNotifier
	tokenPrice int64
	maxCharge  int64
}

// NewPaymentService builds the purchase lifecycle. A maxCharge of zero or less
// falls back to DefaultMaxCharge.
func NewPaymentService(db *gorm.DB, gateway PushGateway, notifier PurchaseNotifier, tokenPrice, maxCharge int64) *PaymentService {
	if maxCharge <= 0 {
		maxCharge = DefaultMaxCharge
	}
	return &PaymentService{
		db:         db,
		accounts:   store.NewAccountStore(db),
		payments:   store.NewPaymentStore(db),
		gateway:    gateway,
		notifier:   notifier,
		tokenPrice: tokenPrice,
		maxCharge:  maxCharge,
	}
}

// AccountReference builds the reference sent with the push request. It embeds
// both the account and the payment so a notification can be traced by hand
// even if its correlation id never got stored.
func AccountReference(userID, paymentID uuid.UUID) string {
	return fmt.Sprintf("TOKENS-%s-%s", userID, paymentID)
}

// InitiatePurchase creates a pending payment for tokens and asks the gateway
// to prompt phone for the charge. The payment row is committed before the
// gateway is contacted.
func (s *PaymentService) InitiatePurchase(ctx context.Context, userID uuid.UUID, tokens int64, phone string) (*PurchaseResult, error) {
	amount, err := s.charge(tokens)
	if err != nil {
		return nil, err
	}
	formattedPhone, err := utils.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	if _, err := s.accounts.Get(ctx, userID); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		UserID:          userID,
		Amount:          amount,
		TokensPurchased: tokens,
		PhoneNumber:     formattedPhone,
	}
	payment.ID = uuid.New()
	payment.AccountReference = AccountReference(userID, payment.ID)

	if err := s.payments.Create(ctx, payment); err != nil {
		purchasesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("create payment: %w", err)
	}

	result := s.gateway.STKPush(ctx, formattedPhone, float64(amount), payment.AccountReference)
	if !result.Success {
		reason := result.Error
		if reason == "" {
			reason = "Payment initiation failed"
		}
		// Kept as failed rather than deleted so the attempt stays auditable.
		if err := s.payments.MarkFailed(ctx, payment.ID, reason); err != nil && !errors.Is(err, store.ErrNotPending) {
			log.Printf("[Payment] mark payment %s failed: %v", payment.ID, err)
		}
		purchasesTotal.WithLabelValues("rejected").Inc()
		return nil, &PurchaseFailedError{PaymentID: payment.ID, Reason: reason}
	}

	if err := s.payments.AttachCheckout(ctx, payment.ID, result.CheckoutRequestID, result.MerchantRequestID); err != nil {
		purchasesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("attach checkout %s to payment %s: %w", result.CheckoutRequestID, payment.ID, err)
	}

	purchasesTotal.WithLabelValues("accepted").Inc()
	log.Printf("[Payment] STK push accepted for payment %s (checkout %s)", payment.ID, result.CheckoutRequestID)

	return &PurchaseResult{
		PaymentID:         payment.ID,
		CheckoutRequestID: result.CheckoutRequestID,
		Amount:            amount,
	}, nil
}

// charge prices tokens, refusing quantities whose product would overflow or
// exceed what the gateway can collect in one push.
func (s *PaymentService) charge(tokens int64) (int64, error) {
	if tokens < 1 || s.tokenPrice < 1 {
		return 0, ErrInvalidTokenQuantity
	}
	if tokens > math.MaxInt64/s.tokenPrice {
		return 0, ErrInvalidTokenQuantity
	}
	amount := tokens * s.tokenPrice
	if amount > s.maxCharge {
		return 0, ErrInvalidTokenQuantity
	}
	return amount, nil
}

// Status returns the caller's payment in whatever state it is in. A payment
// that never receives a callback simply stays pending.
func (s *PaymentService) Status(ctx context.Context, userID, paymentID uuid.UUID) (*models.Payment, error) {
	return s.payments.GetForUser(ctx, paymentID, userID)
}

// History lists the caller's payments, newest first.
func (s *PaymentService) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, int64, error) {
	return s.payments.ListForUser(ctx, userID, limit, offset)
}

// SalesByDay aggregates completed payments for the analytics endpoint.
func (s *PaymentService) SalesByDay(ctx context.Context, days int) ([]store.DailySales, error) {
	return s.payments.SalesByDay(ctx, days)
}
