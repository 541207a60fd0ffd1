package payment_api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Davayme/chasquigo-backend-sub000/internal/logger"
	"github.com/Davayme/chasquigo-backend-sub000/internal/payment"
	"github.com/Davayme/chasquigo-backend-sub000/internal/utils"
)

// 64KB is well above any Stripe event body.
const maxWebhookBody = int64(65536)

type WebhookProcessor interface {
	Handle(ctx context.Context, payload []byte, signature string) (*payment.Result, error)
}

type Handler struct {
	Processor WebhookProcessor
	Logger    *logger.Logger
}

func NewHandler(processor WebhookProcessor, log *logger.Logger) *Handler {
	return &Handler{Processor: processor, Logger: log}
}

// StripeWebhook acknowledges every verified event with 200, including the
// ones that change nothing.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "StripeWebhook: received webhook event")

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("StripeWebhook: failed to read payload: %v", err))
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid webhook payload", "could not read body"))
		return
	}

	result, err := h.Processor.Handle(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("StripeWebhook: failed to process webhook: %v", err))
		utils.WriteError(w, "Webhook processing failed", err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("StripeWebhook: event %s -> %s", result.EventID, result.Outcome))
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Webhook received", result))
}
