package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v5"
	"github.com/perpsim/perpsim/internal/config"
	"github.com/perpsim/perpsim/internal/entity"
	"github.com/shopspring/decimal"
)

var (
	errAPIKeyMissing  = errors.New("api key is required")
	errAPIKeyInvalid  = errors.New("invalid api key")
	errAPIKeyInactive = errors.New("api key is inactive")
	errAPIKeyExpired  = errors.New("api key is expired")
)

type SubmitOrderRequest struct {
	ApiKey   string      `json:"api_key"`
	Side     string      `json:"side"`
	Quantity string      `json:"quantity"`
	Price    null.String `json:"price"` // absent means market order
}

type CancelOrderRequest struct {
	ApiKey  string `json:"api_key"`
	OrderID int64  `json:"order_id"`
}

type SetLeverageRequest struct {
	ApiKey   string `json:"api_key"`
	Leverage int64  `json:"leverage"`
}

type ClosePositionRequest struct {
	ApiKey string      `json:"api_key"`
	Price  null.String `json:"price"` // absent means close at market
}

type CommandAcceptedResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Status    string `json:"status"`
}

// Handler fronts the Redis command and snapshot boundary over HTTP. It
// never touches the engine directly: commands land in the single-slot
// store and are picked up on the engine's next tick.
type Handler struct {
	commands  entity.CommandStore
	snapshots entity.SnapshotStore
}

func NewGatewayHTTPHandler(commands entity.CommandStore, snapshots entity.SnapshotStore) *Handler {
	return &Handler{commands: commands, snapshots: snapshots}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/gateway/v1/orders", h.SubmitOrder)
	mux.HandleFunc("/gateway/v1/orders/cancel", h.CancelOrder)
	mux.HandleFunc("/gateway/v1/leverage", h.SetLeverage)
	mux.HandleFunc("/gateway/v1/position/close", h.ClosePosition)
	mux.HandleFunc("/gateway/v1/snapshot", h.GetSnapshot)
}

func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	defer r.Body.Close()

	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
		return
	}

	if err := validateAPIKey(resolveAPIKey(r, req.ApiKey)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": err.Error()})
		return
	}

	orderReq, err := mapHTTPRequestToOrderRequest(&req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	if err := h.commands.SubmitOrder(r.Context(), orderReq); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusAccepted, CommandAcceptedResponse{
		RequestID: orderReq.RequestID,
		Status:    "queued",
	})
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	defer r.Body.Close()

	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
		return
	}

	if err := validateAPIKey(resolveAPIKey(r, req.ApiKey)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": err.Error()})
		return
	}

	if req.OrderID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "order_id is required"})
		return
	}

	if err := h.commands.RequestCancel(r.Context(), entity.CancelRequest{OrderID: req.OrderID}); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusAccepted, CommandAcceptedResponse{Status: "queued"})
}

func (h *Handler) SetLeverage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	defer r.Body.Close()

	var req SetLeverageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
		return
	}

	if err := validateAPIKey(resolveAPIKey(r, req.ApiKey)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": err.Error()})
		return
	}

	if req.Leverage < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "leverage must be at least 1"})
		return
	}

	if err := h.commands.RequestLeverage(r.Context(), entity.LeverageRequest{Leverage: req.Leverage}); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusAccepted, CommandAcceptedResponse{Status: "queued"})
}

func (h *Handler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	defer r.Body.Close()

	var req ClosePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
		return
	}

	if err := validateAPIKey(resolveAPIKey(r, req.ApiKey)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": err.Error()})
		return
	}

	snapshot, found, err := h.snapshots.Load(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		return
	}
	if !found || !snapshot.HasPosition() {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "no open position"})
		return
	}

	orderReq, err := buildCloseOrderRequest(snapshot, req.Price)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	if err := h.commands.SubmitOrder(r.Context(), orderReq); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusAccepted, CommandAcceptedResponse{
		RequestID: orderReq.RequestID,
		Status:    "queued",
	})
}

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	if err := validateAPIKey(resolveAPIKey(r, "")); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": err.Error()})
		return
	}

	snapshot, found, err := h.snapshots.Load(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "no snapshot yet"})
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func mapHTTPRequestToOrderRequest(req *SubmitOrderRequest) (entity.OrderRequest, error) {
	quantity, err := decimal.NewFromString(strings.TrimSpace(req.Quantity))
	if err != nil {
		return entity.OrderRequest{}, errors.New("invalid quantity")
	}

	var limitPrice *decimal.Decimal
	if req.Price.Valid && strings.TrimSpace(req.Price.String) != "" {
		price, err := decimal.NewFromString(strings.TrimSpace(req.Price.String))
		if err != nil {
			return entity.OrderRequest{}, errors.New("invalid price")
		}
		limitPrice = &price
	}

	orderReq := entity.OrderRequest{
		RequestID:   uuid.NewString(),
		Side:        entity.OrderSide(strings.ToUpper(strings.TrimSpace(req.Side))),
		Quantity:    quantity,
		LimitPrice:  limitPrice,
		SubmittedAt: time.Now().UTC().UnixMilli(),
	}

	if err := orderReq.Validate(); err != nil {
		return entity.OrderRequest{}, err
	}

	return orderReq, nil
}

func buildCloseOrderRequest(snapshot entity.Snapshot, price null.String) (entity.OrderRequest, error) {
	side := entity.OrderSideSell
	if snapshot.Position.Side == entity.PositionSideShort.String() {
		side = entity.OrderSideBuy
	}

	var limitPrice *decimal.Decimal
	if price.Valid && strings.TrimSpace(price.String) != "" {
		parsed, err := decimal.NewFromString(strings.TrimSpace(price.String))
		if err != nil {
			return entity.OrderRequest{}, errors.New("invalid price")
		}
		limitPrice = &parsed
	}

	orderReq := entity.OrderRequest{
		RequestID:   uuid.NewString(),
		Side:        side,
		Quantity:    snapshot.Position.Quantity,
		LimitPrice:  limitPrice,
		SubmittedAt: time.Now().UTC().UnixMilli(),
	}

	if err := orderReq.Validate(); err != nil {
		return entity.OrderRequest{}, err
	}

	return orderReq, nil
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func resolveAPIKey(r *http.Request, bodyKey string) string {
	if headerKey := strings.TrimSpace(r.Header.Get("X-API-Key")); headerKey != "" {
		return headerKey
	}

	return strings.TrimSpace(bodyKey)
}

func validateAPIKey(rawAPIKey string) error {
	apiKey := strings.TrimSpace(rawAPIKey)
	if apiKey == "" {
		return errAPIKeyMissing
	}

	if config.Env == nil || len(config.Env.APIKeys) == 0 {
		return errAPIKeyInvalid
	}

	now := time.Now().UTC()
	for _, candidate := range config.Env.APIKeys {
		if subtle.ConstantTimeCompare([]byte(candidate.Key), []byte(apiKey)) != 1 {
			continue
		}

		if !candidate.Active {
			return errAPIKeyInactive
		}

		if expiredAt, ok := candidate.ExpiredAt.(string); ok && strings.TrimSpace(expiredAt) != "" {
			parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(expiredAt))
			if err == nil && parsed.Before(now) {
				return errAPIKeyExpired
			}
		}

		return nil
	}

	return errAPIKeyInvalid
}
