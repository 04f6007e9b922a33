package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/docstore/internal/models"
	"github.com/example/docstore/internal/services"
)

// AnalyticsHandler serves sales reporting endpoints.
type AnalyticsHandler struct {
	db       *gorm.DB
	payments *services.PaymentService
}

// NewAnalyticsHandler constructs AnalyticsHandler.
func NewAnalyticsHandler(db *gorm.DB, payments *services.PaymentService) *AnalyticsHandler {
	return &AnalyticsHandler{db: db, payments: payments}
}

// Sales returns completed-payment totals for the 30 most recent selling days.
func (h *AnalyticsHandler) Sales(c *fiber.Ctx) error {
	sales, err := h.payments.SalesByDay(c.UserContext(), 30)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "sales": sales})
}

// Summary returns aggregate counters for a dashboard.
func (h *AnalyticsHandler) Summary(c *fiber.Ctx) error {
	db := h.db.WithContext(c.UserContext())

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return err
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var statusCounts []statusCount
	if err := db.Model(&models.Payment{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return err
	}

	paymentsByStatus := map[string]int64{
		string(models.PaymentStatusPending):   0,
		string(models.PaymentStatusCompleted): 0,
		string(models.PaymentStatusFailed):    0,
	}
	for _, sc := range statusCounts {
		paymentsByStatus[sc.Status] = sc.Count
	}

	var sold struct {
		Revenue int64
		Tokens  int64
	}
	if err := db.Model(&models.Payment{}).
		Where("status = ?", models.PaymentStatusCompleted).
		Select("COALESCE(SUM(amount), 0) as revenue, COALESCE(SUM(tokens_purchased), 0) as tokens").
		Scan(&sold).Error; err != nil {
		return err
	}

	// Tokens bought but not yet spent.
	var outstanding int64
	if err := db.Model(&models.User{}).
		Select("COALESCE(SUM(tokens), 0)").
		Scan(&outstanding).Error; err != nil {
		return err
	}

	var totalDownloads int64
	if err := db.Model(&models.Download{}).Count(&totalDownloads).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_users":        totalUsers,
			"payments_by_status": paymentsByStatus,
			"total_revenue":      sold.Revenue,
			"tokens_sold":        sold.Tokens,
			"tokens_outstanding": outstanding,
			"total_downloads":    totalDownloads,
		},
	})
}
