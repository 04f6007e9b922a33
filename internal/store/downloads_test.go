package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/docstore/internal/models"
)

func TestDownloadMarkFulfilledOnce(t *testing.T) {
	db := newStoreDBForTest(t)
	downloads := NewDownloadStore(db)
	ctx := context.Background()
	user := createUserForTest(t, db, "d@example.com")

	download := &models.Download{UserID: user.ID, DocumentID: "agric-paper-1", FileID: "f", TokensUsed: 1}
	if err := downloads.Create(ctx, download); err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now().UTC()
	if err := downloads.MarkFulfilled(ctx, download.ID, user.ID, now); err != nil {
		t.Fatalf("first fulfil: %v", err)
	}
	if err := downloads.MarkFulfilled(ctx, download.ID, user.ID, now); !errors.Is(err, ErrDownloadFulfilled) {
		t.Fatalf("second fulfil: expected ErrDownloadFulfilled, got %v", err)
	}
	if err := downloads.MarkFulfilled(ctx, download.ID, uuid.New(), now); !errors.Is(err, ErrDownloadNotFound) {
		t.Fatalf("other user: expected ErrDownloadNotFound, got %v", err)
	}
}

func TestDownloadListForUserRespectsLimit(t *testing.T) {
	db := newStoreDBForTest(t)
	downloads := NewDownloadStore(db)
	ctx := context.Background()
	user := createUserForTest(t, db, "d@example.com")
	other := createUserForTest(t, db, "e@example.com")

	for i := 0; i < 3; i++ {
		if err := downloads.Create(ctx, &models.Download{UserID: user.ID, DocumentID: "doc", TokensUsed: 1}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := downloads.Create(ctx, &models.Download{UserID: other.ID, DocumentID: "doc", TokensUsed: 1}); err != nil {
		t.Fatalf("create other: %v", err)
	}

	list, err := downloads.ListForUser(ctx, user.ID, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 downloads, got %d", len(list))
	}
	for _, d := range list {
		if d.UserID != user.ID {
			t.Fatalf("listed another user's download: %+v", d)
		}
	}
}
