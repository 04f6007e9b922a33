package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/docstore/internal/models"
)

// DownloadStore records download grants and their fulfillment.
type DownloadStore struct {
	db *gorm.DB
}

func NewDownloadStore(db *gorm.DB) *DownloadStore {
	return &DownloadStore{db: db}
}

// WithTx returns a copy of the store bound to an open transaction.
func (s *DownloadStore) WithTx(tx *gorm.DB) *DownloadStore {
	return &DownloadStore{db: tx}
}

func (s *DownloadStore) Create(ctx context.Context, download *models.Download) error {
	download.DownloadedAt = nil
	return s.db.WithContext(ctx).Create(download).Error
}

// MarkFulfilled stamps the grant as downloaded. A grant can be fulfilled once.
func (s *DownloadStore) MarkFulfilled(ctx context.Context, id, userID uuid.UUID, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Download{}).
		Where("id = ? AND user_id = ? AND downloaded_at IS NULL", id, userID).
		Update("downloaded_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var existing models.Download
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDownloadNotFound
		}
		return err
	}
	return ErrDownloadFulfilled
}

// ListForUser returns the most recent grants for userID.
func (s *DownloadStore) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Download, error) {
	var downloads []models.Download
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&downloads).Error
	return downloads, err
}
