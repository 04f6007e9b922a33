package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/docstore/internal/database"
	"github.com/example/docstore/internal/models"
	"github.com/example/docstore/internal/store"
)

func newServiceDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB: %v", err)
	}
	// One connection serializes transactions the way row locks would.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}

func createAccountForTest(t *testing.T, db *gorm.DB, email string, tokens int64) *models.User {
	t.Helper()
	accounts := store.NewAccountStore(db)
	user := &models.User{Email: email, PasswordHash: "x"}
	if err := accounts.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if tokens > 0 {
		if err := accounts.Credit(context.Background(), user.ID, tokens); err != nil {
			t.Fatalf("credit user: %v", err)
		}
	}
	return user
}

func balanceForTest(t *testing.T, db *gorm.DB, user *models.User) int64 {
	t.Helper()
	balance, err := store.NewAccountStore(db).Balance(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return balance
}

type fakeGateway struct {
	mu     sync.Mutex
	result PushResult
	calls  []fakePush
}

type fakePush struct {
	Phone     string
	Amount    float64
	Reference string
}

func (g *fakeGateway) STKPush(_ context.Context, phone string, amount float64, reference string) PushResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, fakePush{Phone: phone, Amount: amount, Reference: reference})
	return g.result
}

type fakeNotifier struct {
	sent chan TokenPurchaseNotification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(chan TokenPurchaseNotification, 4)}
}

func (n *fakeNotifier) NotifyTokenPurchase(msg TokenPurchaseNotification) error {
	n.sent <- msg
	return nil
}
