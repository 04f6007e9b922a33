package models

import (
	"time"

	"github.com/google/uuid"
)

// Download is a paid grant to fetch one document once.
type Download struct {
	BaseModel
	UserID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"-"`
	DocumentID   string     `gorm:"index;not null" json:"document_id"`
	FileID       string     `json:"file_id"`
	TokensUsed   int64      `json:"tokens_used"`
	DownloadedAt *time.Time `json:"downloaded_at"`
}
