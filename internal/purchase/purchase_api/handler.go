package purchase_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Davayme/chasquigo-backend-sub000/internal/auth"
	"github.com/Davayme/chasquigo-backend-sub000/internal/logger"
	"github.com/Davayme/chasquigo-backend-sub000/internal/purchase"
	"github.com/Davayme/chasquigo-backend-sub000/internal/seats"
	"github.com/Davayme/chasquigo-backend-sub000/internal/utils"
)

const maxBody = int64(1 << 20)

type PurchaseService interface {
	Initiate(ctx context.Context, req purchase.InitiateRequest) (*purchase.PurchaseResult, error)
	GetStatus(ctx context.Context, transactionID string) (*purchase.StatusResult, error)
	ConfirmCash(ctx context.Context, req purchase.ConfirmCashRequest) (*purchase.StatusResult, error)
	Cancel(ctx context.Context, req purchase.CancelRequest) (*purchase.CancelResult, error)
}

type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, departureID string, seatIDs []string) (*seats.Availability, error)
}

type Handler struct {
	Purchases PurchaseService
	Seats     AvailabilityChecker
	Logger    *logger.Logger
}

func NewHandler(purchases PurchaseService, checker AvailabilityChecker, log *logger.Logger) *Handler {
	return &Handler{Purchases: purchases, Seats: checker, Logger: log}
}

// decode reads a JSON body. An empty body is accepted when optional is set.
func decode(r *http.Request, dst interface{}, optional bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(dst)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	return err
}

func (h *Handler) InitiatePurchase(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "InitiatePurchase: received request")

	var req purchase.InitiateRequest
	if err := decode(r, &req, false); err != nil {
		h.Logger.Error("API", fmt.Sprintf("InitiatePurchase: failed to decode request body: %v", err))
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	req.BuyerID = auth.UserID(r.Context())

	result, err := h.Purchases.Initiate(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("InitiatePurchase: %v", err))
		utils.WriteError(w, "Purchase failed", err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("InitiatePurchase: transaction %s is %s", result.Transaction.ID, result.Transaction.Status))
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Purchase created", result))
}

func (h *Handler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")
	h.Logger.Info("API", fmt.Sprintf("GetPurchase: transactionId=%s", transactionID))

	status, err := h.Purchases.GetStatus(r.Context(), transactionID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetPurchase: %v", err))
		utils.WriteError(w, "Could not load purchase", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Purchase retrieved", status))
}

func (h *Handler) ConfirmCash(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")
	h.Logger.Info("API", fmt.Sprintf("ConfirmCash: transactionId=%s", transactionID))

	var req purchase.ConfirmCashRequest
	if err := decode(r, &req, false); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ConfirmCash: failed to decode request body: %v", err))
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	req.TransactionID = transactionID
	req.StaffID = auth.UserID(r.Context())

	status, err := h.Purchases.ConfirmCash(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ConfirmCash: %v", err))
		utils.WriteError(w, "Cash confirmation failed", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Cash payment confirmed", status))
}

func (h *Handler) CancelPurchase(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")
	h.Logger.Info("API", fmt.Sprintf("CancelPurchase: transactionId=%s", transactionID))

	var req purchase.CancelRequest
	if err := decode(r, &req, true); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CancelPurchase: failed to decode request body: %v", err))
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	req.TransactionID = transactionID

	result, err := h.Purchases.Cancel(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CancelPurchase: %v", err))
		utils.WriteError(w, "Cancellation failed", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Purchase cancelled", result))
}

// SeatAvailability answers ?seat_ids=a,b for a departure.
func (h *Handler) SeatAvailability(w http.ResponseWriter, r *http.Request) {
	departureID := chi.URLParam(r, "departureId")

	var seatIDs []string
	for _, raw := range r.URL.Query()["seat_ids"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				seatIDs = append(seatIDs, id)
			}
		}
	}
	h.Logger.Info("API", fmt.Sprintf("SeatAvailability: departureId=%s seats=%v", departureID, seatIDs))

	availability, err := h.Seats.CheckAvailability(r.Context(), departureID, seatIDs)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("SeatAvailability: %v", err))
		utils.WriteError(w, "Could not check availability", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Seat availability", availability))
}

// RegisterRoutes mounts the purchase and availability routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/purchases", func(r chi.Router) {
		r.Post("/", h.InitiatePurchase)
		r.Get("/{transactionId}", h.GetPurchase)
		r.Post("/{transactionId}/cash-confirmation", h.ConfirmCash)
		r.Post("/{transactionId}/cancel", h.CancelPurchase)
	})
	r.Get("/departures/{departureId}/seats/availability", h.SeatAvailability)
}
