package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/docstore/internal/models"
)

// AccountStore owns the users table and its token balances.
type AccountStore struct {
	db *gorm.DB
}

func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

// WithTx returns a copy of the store bound to an open transaction.
func (s *AccountStore) WithTx(tx *gorm.DB) *AccountStore {
	return &AccountStore{db: tx}
}

// Create inserts a new account with a zero balance.
func (s *AccountStore) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Tokens = 0

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", user.Email).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// Get loads an account by id.
func (s *AccountStore) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByEmail loads an account by its login email.
func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Balance reads the current token balance straight from storage.
func (s *AccountStore) Balance(ctx context.Context, id uuid.UUID) (int64, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("tokens").Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return user.Tokens, nil
}

// Credit adds tokens with a single atomic increment.
func (s *AccountStore) Credit(ctx context.Context, id uuid.UUID, tokens int64) error {
	if tokens <= 0 {
		return fmt.Errorf("credit %d tokens: amount must be positive", tokens)
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"tokens":     gorm.Expr("tokens + ?", tokens),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Debit removes tokens only if the balance covers them. The check and the
// decrement are one statement, so concurrent debits cannot overdraw.
func (s *AccountStore) Debit(ctx context.Context, id uuid.UUID, tokens int64) error {
	if tokens <= 0 {
		return fmt.Errorf("debit %d tokens: amount must be positive", tokens)
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND tokens >= ?", id, tokens).
		Updates(map[string]any{
			"tokens":     gorm.Expr("tokens - ?", tokens),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	if _, err := s.Balance(ctx, id); err != nil {
		return err
	}
	return ErrInsufficientTokens
}
