package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/docstore/internal/middleware"
	"github.com/example/docstore/internal/services"
	"github.com/example/docstore/internal/store"
	"github.com/example/docstore/internal/utils"
)

// PaymentHandler manages token purchase endpoints.
type PaymentHandler struct {
	payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type purchaseRequest struct {
	NumberOfTokens int64  `json:"numberOfTokens"`
	PhoneNumber    string `json:"phoneNumber"`
}

// Purchase starts an STK push for the requested number of tokens.
func (h *PaymentHandler) Purchase(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.NumberOfTokens < 1 {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid number of tokens")
	}
	if req.PhoneNumber == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Phone number required")
	}

	result, err := h.payments.InitiatePurchase(c.UserContext(), userID, req.NumberOfTokens, req.PhoneNumber)
	if err != nil {
		var failed *services.PurchaseFailedError
		switch {
		case errors.As(err, &failed):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success":   false,
				"error":     failed.Reason,
				"paymentId": failed.PaymentID,
			})
		case errors.Is(err, services.ErrInvalidTokenQuantity):
			return fiber.NewError(fiber.StatusBadRequest, "Invalid number of tokens")
		case errors.Is(err, utils.ErrInvalidPhone):
			return fiber.NewError(fiber.StatusBadRequest, "Invalid phone number")
		case errors.Is(err, store.ErrAccountNotFound):
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success":           true,
		"message":           "Payment request sent. Please check your phone.",
		"paymentId":         result.PaymentID,
		"checkoutRequestId": result.CheckoutRequestID,
		"amount":            result.Amount,
	})
}

// Status reports the current state of one of the caller's payments.
func (h *PaymentHandler) Status(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	paymentID, err := uuid.Parse(c.Params("paymentId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payment id")
	}

	payment, err := h.payments.Status(c.UserContext(), userID, paymentID)
	if err != nil {
		if errors.Is(err, store.ErrPaymentNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Payment not found")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"status":          payment.Status,
		"tokensPurchased": payment.TokensPurchased,
		"amount":          payment.Amount,
		"resultDesc":      payment.ResultDesc,
		"completedAt":     payment.CompletedAt,
	})
}

// History lists the caller's payments.
func (h *PaymentHandler) History(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c, 20)
	payments, total, err := h.payments.History(c.UserContext(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    payments,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}
