package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/docstore/internal/models"
	"github.com/example/docstore/internal/store"
	"github.com/example/docstore/internal/utils"
)

// InsufficientTokensError carries the numbers shown to the user.
type InsufficientTokensError struct {
	Required  int64
	Available int64
}

func (e *InsufficientTokensError) Error() string {
	return fmt.Sprintf("insufficient tokens: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientTokensError) Unwrap() error { return store.ErrInsufficientTokens }

// DownloadGrant is returned after a successful unlock.
type DownloadGrant struct {
	DownloadID      uuid.UUID
	DownloadURL     string
	ExpiresIn       time.Duration
	TokensRemaining int64
}

// EntitlementService debits tokens for documents and redeems download links.
type EntitlementService struct {
	db        *gorm.DB
	accounts  *store.AccountStore
	downloads *store.DownloadStore
	catalog   *Catalog
	secret    string
	linkTTL   time.Duration
	baseURL   string
}

func NewEntitlementService(db *gorm.DB, catalog *Catalog, secret string, linkTTL time.Duration, baseURL string) *EntitlementService {
	return &EntitlementService{
		db:        db,
		accounts:  store.NewAccountStore(db),
		downloads: store.NewDownloadStore(db),
		catalog:   catalog,
		secret:    secret,
		linkTTL:   linkTTL,
		baseURL:   baseURL,
	}
}

// Unlock charges the document's price and records a grant in one
// transaction, then signs a link scoped to that grant.
func (s *EntitlementService) Unlock(ctx context.Context, userID uuid.UUID, documentKey string) (*DownloadGrant, error) {
	doc, err := s.catalog.Get(documentKey)
	if err != nil {
		return nil, err
	}

	download := &models.Download{
		UserID:     userID,
		DocumentID: doc.Key,
		FileID:     doc.FileID,
		TokensUsed: doc.TokensRequired,
	}
	var remaining int64

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accounts := s.accounts.WithTx(tx)
		if err := accounts.Debit(ctx, userID, doc.TokensRequired); err != nil {
			if errors.Is(err, store.ErrInsufficientTokens) {
				available, balErr := accounts.Balance(ctx, userID)
				if balErr != nil {
					return balErr
				}
				return &InsufficientTokensError{Required: doc.TokensRequired, Available: available}
			}
			return err
		}
		if err := s.downloads.WithTx(tx).Create(ctx, download); err != nil {
			return err
		}
		balance, err := accounts.Balance(ctx, userID)
		if err != nil {
			return err
		}
		remaining = balance
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrInsufficientTokens) {
			unlocksTotal.WithLabelValues("insufficient").Inc()
		} else {
			unlocksTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	token, err := utils.GenerateDownloadToken(s.secret, utils.DownloadClaims{
		UserID:     userID.String(),
		FileID:     doc.FileID,
		DocumentID: doc.Key,
		DownloadID: download.ID.String(),
	}, s.linkTTL)
	if err != nil {
		unlocksTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("sign download token: %w", err)
	}

	unlocksTotal.WithLabelValues("granted").Inc()
	return &DownloadGrant{
		DownloadID:      download.ID,
		DownloadURL:     fmt.Sprintf("%s/download/%s", s.baseURL, token),
		ExpiresIn:       s.linkTTL,
		TokensRemaining: remaining,
	}, nil
}

// Redeem validates a download link and returns the storage URL to redirect
// to. Each link works once.
func (s *EntitlementService) Redeem(ctx context.Context, token string) (string, error) {
	claims, err := utils.ParseDownloadToken(s.secret, token)
	if err != nil {
		return "", err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return "", utils.ErrInvalidToken
	}
	downloadID, err := uuid.Parse(claims.DownloadID)
	if err != nil {
		return "", utils.ErrInvalidToken
	}

	doc, err := s.catalog.Get(claims.DocumentID)
	if err != nil {
		return "", err
	}

	if err := s.downloads.MarkFulfilled(ctx, downloadID, userID, time.Now().UTC()); err != nil {
		return "", err
	}

	log.Printf("[Download] user %s fetched %s", userID, doc.Key)
	return doc.DriveURL, nil
}

// History lists the user's recent download grants.
func (s *EntitlementService) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Download, error) {
	return s.downloads.ListForUser(ctx, userID, limit)
}

// Documents exposes the catalog listing.
func (s *EntitlementService) Documents() []models.Document {
	return s.catalog.List()
}
