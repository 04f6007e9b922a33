package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/docstore/internal/models"
)

// PaymentStore owns payment records and the raw notification log.
//
// Every status change goes through a conditional UPDATE guarded by
// status = 'pending', so at most one caller ever resolves a given record.
type PaymentStore struct {
	db *gorm.DB
}

func NewPaymentStore(db *gorm.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

// WithTx returns a copy of the store bound to an open transaction.
func (s *PaymentStore) WithTx(tx *gorm.DB) *PaymentStore {
	return &PaymentStore{db: tx}
}

// Create persists a new payment. The status is always forced to pending.
func (s *PaymentStore) Create(ctx context.Context, payment *models.Payment) error {
	payment.Status = models.PaymentStatusPending
	payment.CheckoutRequestID = nil
	payment.CompletedAt = nil
	return s.db.WithContext(ctx).Create(payment).Error
}

// Get loads a payment by id.
func (s *PaymentStore) Get(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return s.first(s.db.WithContext(ctx).Where("id = ?", id))
}

// GetForUser loads a payment only if it belongs to userID.
func (s *PaymentStore) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Payment, error) {
	return s.first(s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID))
}

// FindByCheckoutRequestID resolves the gateway correlation id to its payment.
func (s *PaymentStore) FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Payment, error) {
	if checkoutRequestID == "" {
		return nil, ErrPaymentNotFound
	}
	return s.first(s.db.WithContext(ctx).Where("checkout_request_id = ?", checkoutRequestID))
}

// AttachCheckout links a pending payment to the ids the gateway assigned.
// The status is left untouched.
func (s *PaymentStore) AttachCheckout(ctx context.Context, id uuid.UUID, checkoutRequestID, merchantRequestID string) error {
	res := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ? AND checkout_request_id IS NULL", id, models.PaymentStatusPending).
		Updates(map[string]any{
			"checkout_request_id": checkoutRequestID,
			"merchant_request_id": merchantRequestID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}

// MarkFailed moves a pending payment to failed. ErrNotPending means another
// caller already resolved it.
func (s *PaymentStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return s.transition(ctx, id, map[string]any{
		"status":      models.PaymentStatusFailed,
		"result_desc": reason,
	})
}

// MarkCompleted moves a pending payment to completed with the receipt data.
func (s *PaymentStore) MarkCompleted(ctx context.Context, id uuid.UUID, receipt, transactionDate, desc string, at time.Time) error {
	return s.transition(ctx, id, map[string]any{
		"status":           models.PaymentStatusCompleted,
		"mpesa_receipt":    receipt,
		"transaction_date": transactionDate,
		"result_desc":      desc,
		"completed_at":     at,
	})
}

// ListForUser returns the user's payments, newest first.
func (s *PaymentStore) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Payment{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []models.Payment
	if err := query.
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// DailySales aggregates one row of completed-payment totals per day.
type DailySales struct {
	Date              string `gorm:"column:day" json:"date"`
	TotalTransactions int64  `json:"total_transactions"`
	TotalRevenue      int64  `json:"total_revenue"`
	TotalTokensSold   int64  `json:"total_tokens_sold"`
}

// SalesByDay groups completed payments by completion day, newest day first.
func (s *PaymentStore) SalesByDay(ctx context.Context, days int) ([]DailySales, error) {
	dayExpr := "to_char(completed_at, 'YYYY-MM-DD')"
	if s.db.Dialector.Name() == "sqlite" {
		dayExpr = "strftime('%Y-%m-%d', completed_at)"
	}

	var rows []DailySales
	err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Select(dayExpr+" AS day, COUNT(*) AS total_transactions, COALESCE(SUM(amount), 0) AS total_revenue, COALESCE(SUM(tokens_purchased), 0) AS total_tokens_sold").
		Where("status = ? AND completed_at IS NOT NULL", models.PaymentStatusCompleted).
		Group("day").
		Order("day desc").
		Limit(days).
		Scan(&rows).Error
	return rows, err
}

// LogNotification appends a raw gateway notification to the payment log.
func (s *PaymentStore) LogNotification(ctx context.Context, entry *models.PaymentLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *PaymentStore) transition(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentStatusPending).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}

func (s *PaymentStore) first(query *gorm.DB) (*models.Payment, error) {
	var payment models.Payment
	if err := query.First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}
