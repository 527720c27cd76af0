package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/beneficio-backend/internal/domain"
	"github.com/simaogato/beneficio-backend/internal/usecase/benefit"
	"github.com/simaogato/beneficio-backend/internal/usecase/transfer"
)

// BasePath is where the benefit API is mounted
const BasePath = "/api/benefits"

type Handler struct {
	transfers transfer.Executor
	benefits  *benefit.BenefitService
	logger    *zap.Logger
	now       func() time.Time
}

func NewHandler(transfers transfer.Executor, benefits *benefit.BenefitService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		transfers: transfers,
		benefits:  benefits,
		logger:    logger,
		now:       time.Now,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.Health)
	r.Route(BasePath, func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/active", h.ListActive)
		r.Get("/summary", h.Summary)
		r.Post("/", h.Create)
		r.Post("/transfer", h.Transfer)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

type benefitRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Balance     decimal.Decimal `json:"balance"`
	Active      *bool           `json:"active"`
	Version     *int64          `json:"version"`
}

type benefitResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Balance     decimal.Decimal `json:"balance"`
	Active      bool            `json:"active"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type summaryResponse struct {
	Count        int             `json:"count"`
	ActiveCount  int             `json:"activeCount"`
	TotalBalance decimal.Decimal `json:"totalBalance"`
}

type transferRequest struct {
	OriginID      int64           `json:"originId"`
	DestinationID int64           `json:"destinationId"`
	Amount        decimal.Decimal `json:"amount"`
}

type transactionInfo struct {
	TransactionID string          `json:"transactionId"`
	OriginID      int64           `json:"originId"`
	DestinationID int64           `json:"destinationId"`
	Amount        decimal.Decimal `json:"amount"`
	Timestamp     time.Time       `json:"timestamp"`
}

type endpointInfo struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	BalanceBefore decimal.Decimal `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
}

type transferResponse struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	Transaction transactionInfo `json:"transaction"`
	Origin      endpointInfo    `json:"origin"`
	Destination endpointInfo    `json:"destination"`
}

type errorResponse struct {
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Kind      string    `json:"kind,omitempty"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

func toResponse(b *domain.Benefit) benefitResponse {
	return benefitResponse{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		Balance:     b.Balance,
		Active:      b.Active,
		Version:     b.Version,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toResponses(benefits []*domain.Benefit) []benefitResponse {
	out := make([]benefitResponse, 0, len(benefits))
	for _, b := range benefits {
		out = append(out, toResponse(b))
	}
	return out
}

func (req benefitRequest) input() benefit.Input {
	return benefit.Input{
		Name:        req.Name,
		Description: req.Description,
		Balance:     req.Balance,
		Active:      req.Active,
		Version:     req.Version,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	benefits, err := h.benefits.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toResponses(benefits))
}

func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	benefits, err := h.benefits.ListActive(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toResponses(benefits))
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.benefits.Summary(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, summaryResponse{
		Count:        summary.Count,
		ActiveCount:  summary.ActiveCount,
		TotalBalance: summary.TotalBalance,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	b, err := h.benefits.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toResponse(b))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req benefitRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.benefits.Create(r.Context(), req.input())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", BasePath+"/"+strconv.FormatInt(b.ID, 10))
	h.respondJSON(w, http.StatusCreated, toResponse(b))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req benefitRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.benefits.Update(r.Context(), id, req.input())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toResponse(b))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.benefits.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.OriginID <= 0 || req.DestinationID <= 0 {
		h.respondStatus(w, r, http.StatusBadRequest, string(domain.FailureInvalidRequest), "originId and destinationId are required")
		return
	}

	result, err := h.transfers.Execute(r.Context(), domain.TransferRequest{
		OriginID:      req.OriginID,
		DestinationID: req.DestinationID,
		Amount:        req.Amount,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, transferResponse{
		Success: true,
		Message: "Transfer completed successfully",
		Transaction: transactionInfo{
			TransactionID: result.TransactionID.String(),
			OriginID:      result.OriginID,
			DestinationID: result.DestinationID,
			Amount:        result.Amount,
			Timestamp:     result.Timestamp,
		},
		Origin: endpointInfo{
			ID:            result.Origin.ID,
			Name:          result.Origin.Name,
			BalanceBefore: result.Origin.BalanceBefore,
			BalanceAfter:  result.Origin.BalanceAfter,
		},
		Destination: endpointInfo{
			ID:            result.Destination.ID,
			Name:          result.Destination.Name,
			BalanceBefore: result.Destination.BalanceBefore,
			BalanceAfter:  result.Destination.BalanceAfter,
		},
	})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondStatus(w, r, http.StatusBadRequest, "", "invalid benefit id")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.respondStatus(w, r, http.StatusBadRequest, "", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError maps domain failures to HTTP statuses
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	h.respondStatus(w, r, status, kind, err.Error())
}

func (h *Handler) respondStatus(w http.ResponseWriter, r *http.Request, status int, kind string, message string) {
	h.respondJSON(w, status, errorResponse{
		Status:    status,
		Error:     http.StatusText(status),
		Kind:      kind,
		Message:   message,
		Path:      r.URL.Path,
		Timestamp: h.now().UTC(),
	})
}

func statusFor(err error) (int, string) {
	if kind := domain.KindOf(err); kind != "" {
		switch kind {
		case domain.FailureNotFound:
			return http.StatusNotFound, string(kind)
		case domain.FailureInvalidRequest, domain.FailureInvalidState, domain.FailureInsufficientFunds:
			return http.StatusBadRequest, string(kind)
		case domain.FailureConflict:
			return http.StatusConflict, string(kind)
		default:
			return http.StatusInternalServerError, string(kind)
		}
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ""
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, ""
	case errors.Is(err, domain.ErrDuplicateName), errors.Is(err, domain.ErrVersionMismatch):
		return http.StatusConflict, ""
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ""
	default:
		return http.StatusInternalServerError, ""
	}
}
