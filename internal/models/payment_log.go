package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PaymentLogOutcome describes what the reconciler did with a notification.
type PaymentLogOutcome string

const (
	PaymentLogCompleted PaymentLogOutcome = "completed"
	PaymentLogFailed    PaymentLogOutcome = "failed"
	PaymentLogDuplicate PaymentLogOutcome = "duplicate"
	PaymentLogUnmatched PaymentLogOutcome = "unmatched"
	PaymentLogOrphaned  PaymentLogOutcome = "orphaned"
	PaymentLogError     PaymentLogOutcome = "error"
)

// PaymentLog keeps every gateway notification as it was received.
type PaymentLog struct {
	BaseModel
	PaymentID         *uuid.UUID        `gorm:"type:uuid;index" json:"payment_id"`
	CheckoutRequestID string            `gorm:"index" json:"checkout_request_id"`
	ResultCode        int               `json:"result_code"`
	Payload           datatypes.JSON    `json:"payload"`
	Outcome           PaymentLogOutcome `gorm:"type:varchar(16)" json:"outcome"`
}
