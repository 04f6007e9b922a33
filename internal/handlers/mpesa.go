package handlers

import (
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/example/docstore/internal/services"
)

// MpesaHandler receives STK push result notifications.
type MpesaHandler struct {
	payments *services.PaymentService
}

func NewMpesaHandler(payments *services.PaymentService) *MpesaHandler {
	return &MpesaHandler{payments: payments}
}

// Callback always answers 200 with {"ResultCode", "ResultDesc"}. A body that
// cannot be parsed is acknowledged, since redelivery would not fix it.
func (h *MpesaHandler) Callback(c *fiber.Ctx) error {
	raw := append([]byte(nil), c.Body()...)

	var envelope services.CallbackEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		log.Printf("[Callback] unparseable notification: %v", err)
		return c.JSON(services.CallbackAck{ResultCode: 0, ResultDesc: "Accepted"})
	}

	ack := h.payments.Reconcile(c.UserContext(), envelope.Body.STKCallback, raw)
	return c.JSON(ack)
}
