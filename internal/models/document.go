package models

// Document is a purchasable catalog entry. It is configuration, not a table.
type Document struct {
	Key            string `json:"id"`
	FileID         string `json:"file_id"`
	Name           string `json:"name"`
	DriveURL       string `json:"-"`
	TokensRequired int64  `json:"tokens_required"`
	Category       string `json:"category"`
	Year           string `json:"year"`
}
