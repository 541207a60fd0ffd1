package ticket_api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Davayme/chasquigo-backend-sub000/internal/logger"
	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
	tickets "github.com/Davayme/chasquigo-backend-sub000/internal/tickets/service"
	"github.com/Davayme/chasquigo-backend-sub000/internal/utils"
)

type TicketIssuer interface {
	Issue(ctx context.Context, ticketID string) (*models.TicketPayload, error)
	QRCode(ctx context.Context, ticketID string) ([]byte, error)
	Validate(ctx context.Context, ticketID, presentedHash string) (*tickets.ValidationResult, error)
}

type Handler struct {
	TicketService TicketIssuer
	Logger        *logger.Logger
}

func NewHandler(ticketService TicketIssuer, log *logger.Logger) *Handler {
	return &Handler{TicketService: ticketService, Logger: log}
}

func (h *Handler) GetPayload(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")
	h.Logger.Info("API", fmt.Sprintf("GetPayload: ticketId=%s", ticketID))

	payload, err := h.TicketService.Issue(r.Context(), ticketID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetPayload: %v", err))
		utils.WriteError(w, "Could not issue ticket", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket payload", payload))
}

func (h *Handler) GetQRCode(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")
	h.Logger.Info("API", fmt.Sprintf("GetQRCode: ticketId=%s", ticketID))

	png, err := h.TicketService.QRCode(r.Context(), ticketID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetQRCode: %v", err))
		utils.WriteError(w, "Could not render ticket", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetQRCode: failed to write image: %v", err))
	}
}

// ValidateTicket expects {"ticket_id": "...", "hash": "..."} from the
// scanned payload. A rejected scan is still a 200 with valid=false.
func (h *Handler) ValidateTicket(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TicketID string `json:"ticket_id"`
		Hash     string `json:"hash"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	body.TicketID = strings.TrimSpace(body.TicketID)
	body.Hash = strings.TrimSpace(body.Hash)
	if body.TicketID == "" || body.Hash == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "ticket_id and hash are required"))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("ValidateTicket: ticketId=%s", body.TicketID))

	result, err := h.TicketService.Validate(r.Context(), body.TicketID, body.Hash)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ValidateTicket: %v", err))
		utils.WriteError(w, "Could not validate ticket", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(result.Message, result))
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tickets", func(r chi.Router) {
		r.Get("/{ticketId}/payload", h.GetPayload)
		r.Get("/{ticketId}/qr", h.GetQRCode)
		r.Post("/validate", h.ValidateTicket)
	})
}
