package models

// User is an account holder. Tokens is the spendable balance and is only ever
// changed with an atomic increment or a guarded decrement.
type User struct {
	BaseModel
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	FullName     string `json:"full_name"`
	PhoneNumber  string `json:"phone_number"`
	PasswordHash string `json:"-"`
	Tokens       int64  `gorm:"not null;default:0;index;check:tokens >= 0" json:"tokens"`
}
