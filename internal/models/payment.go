package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the lifecycle state of a token purchase.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// Payment records one STK push attempt and its outcome.
type Payment struct {
	BaseModel
	UserID            uuid.UUID     `gorm:"type:uuid;index;not null" json:"user_id"`
	Amount            int64         `gorm:"not null" json:"amount"`
	TokensPurchased   int64         `gorm:"not null" json:"tokens_purchased"`
	PhoneNumber       string        `json:"phone_number"`
	Status            PaymentStatus `gorm:"type:varchar(16);index;not null;default:pending" json:"status"`
	AccountReference  string        `json:"account_reference"`
	CheckoutRequestID *string       `gorm:"uniqueIndex" json:"checkout_request_id"`
	MerchantRequestID string        `json:"merchant_request_id"`
	MpesaReceipt      string        `json:"mpesa_receipt"`
	TransactionDate   string        `json:"transaction_date"`
	ResultDesc        string        `json:"result_desc"`
	CompletedAt       *time.Time    `gorm:"index" json:"completed_at"`
}
