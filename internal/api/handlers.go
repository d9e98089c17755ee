// Package api exposes product management and price history over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/maltedev/price-monitor/internal/database"
	"github.com/maltedev/price-monitor/internal/history"
	"github.com/maltedev/price-monitor/internal/models"
	"github.com/maltedev/price-monitor/internal/monitor"
	"github.com/maltedev/price-monitor/internal/registry"
)

const maxHistoryLimit = 1000

// Monitor is the subset of the checker used by the handlers.
type Monitor interface {
	Track(ctx context.Context, rawURL, name string) (*models.Product, monitor.Outcome, error)
	RunCycle(ctx context.Context) (monitor.CycleReport, error)
}

// OutboxStats reports alert delivery backlog. Optional.
type OutboxStats interface {
	Stats(ctx context.Context) (database.AlertBacklog, error)
}

type Handlers struct {
	registry registry.Registry
	history  history.Store
	monitor  Monitor
	outbox   OutboxStats
	logger   *slog.Logger
}

func NewHandlers(reg registry.Registry, hist history.Store, mon Monitor, outbox OutboxStats, logger *slog.Logger) *Handlers {
	return &Handlers{
		registry: reg,
		history:  hist,
		monitor:  mon,
		outbox:   outbox,
		logger:   logger.With("component", "api"),
	}
}

// CreateProductRequest registers a product page.
type CreateProductRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

type CreateProductResponse struct {
	Product    *models.Product          `json:"product"`
	Record     *models.PriceRecord      `json:"record,omitempty"`
	Extraction *models.ExtractionResult `json:"extraction,omitempty"`
}

type HistoryResponse struct {
	Product *models.Product      `json:"product"`
	Records []models.PriceRecord `json:"records"`
}

// Health reports product count and outbox backlog.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{"status": "ok"}
	status := http.StatusOK

	products, err := h.registry.ListActive(r.Context())
	if err != nil {
		h.logger.Error("health check failed to list products", "error", err)
		health["status"] = "error"
		health["message"] = "product registry unavailable"
		h.respondJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	health["products"] = len(products)

	if h.outbox != nil {
		stats, err := h.outbox.Stats(r.Context())
		if err != nil {
			h.logger.Warn("failed to read outbox stats", "error", err)
		} else {
			health["outbox"] = stats
			if stats.Pending > 1000 {
				health["status"] = "warning"
				health["message"] = "High number of pending alerts"
			}
			if stats.Dead > 100 {
				health["status"] = "error"
				health["message"] = "High number of dead alerts"
				status = http.StatusServiceUnavailable
			}
		}
	}

	h.respondJSON(w, status, health)
}

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.registry.ListActive(r.Context())
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []*models.Product{}
	}

	h.respondJSON(w, http.StatusOK, products)
}

// CreateProduct registers a product and records its first price.
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	product, out, err := h.monitor.Track(r.Context(), req.URL, req.Name)
	var extErr *models.ExtractionError
	switch {
	case errors.Is(err, monitor.ErrInvalidURL):
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.As(err, &extErr):
		h.respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":      extErr.Error(),
			"extraction": out.Result,
		})
		return
	case err != nil && product == nil:
		h.logger.Error("failed to track product", "error", err, "url", req.URL)
		h.respondError(w, http.StatusInternalServerError, "failed to track product")
		return
	case err != nil:
		// Registered, but the first observation could not be stored.
		h.logger.Error("failed to record first observation", "error", err, "product_id", product.ID)
	}

	resp := CreateProductResponse{Product: product, Record: out.Record}
	if !out.Result.Success {
		resp.Extraction = &out.Result
	}
	h.respondJSON(w, http.StatusCreated, resp)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	if err := h.registry.Remove(r.Context(), id); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to remove product", "error", err, "product_id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to remove product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetHistory returns the most recent records, oldest first.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	limit := history.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	product, err := h.registry.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to get product", "error", err, "product_id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	records, err := h.history.Recent(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("failed to read history", "error", err, "product_id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if records == nil {
		records = []models.PriceRecord{}
	}

	h.respondJSON(w, http.StatusOK, HistoryResponse{Product: product, Records: records})
}

// RunCheck runs one check cycle synchronously and returns its report.
func (h *Handlers) RunCheck(w http.ResponseWriter, r *http.Request) {
	report, err := h.monitor.RunCycle(r.Context())
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		h.logger.Error("check cycle failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "check cycle failed")
		return
	}

	h.respondJSON(w, http.StatusOK, report)
}

func (h *Handlers) productID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid product ID")
		return uuid.Nil, false
	}
	return id, true
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
