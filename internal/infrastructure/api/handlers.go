package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"fragrance-sync-layer/internal/domain"
	"fragrance-sync-layer/internal/ports"

	"github.com/rs/zerolog"
)

// SyncRunner is the slice of the sync service the handlers need.
type SyncRunner interface {
	CreateFromRecord(ctx context.Context, recordID string, fields map[string]any) (*domain.SyncReport, error)
	UpdateBySKU(ctx context.Context, fields map[string]any) (*domain.SyncReport, error)
}

// CopyGenerator is the slice of the copy service the handlers need.
type CopyGenerator interface {
	Generate(ctx context.Context, perfumeName, brandName string) (string, error)
}

// TopologyRefresher invalidates the cached platform topology.
type TopologyRefresher interface {
	Invalidate(ctx context.Context) error
}

// Handler carries the HTTP handlers for the service's endpoints.
type Handler struct {
	sync          SyncRunner
	copy          CopyGenerator
	topology      TopologyRefresher
	repo          ports.SyncLogRepository
	webhookSecret string
	logger        zerolog.Logger
}

// NewHandler creates the HTTP handler set.
func NewHandler(sync SyncRunner, copy CopyGenerator, topology TopologyRefresher, repo ports.SyncLogRepository, webhookSecret string, logger zerolog.Logger) *Handler {
	return &Handler{
		sync:          sync,
		copy:          copy,
		topology:      topology,
		repo:          repo,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

type generateRequest struct {
	PerfumeName string `json:"perfume_name"`
	BrandName   string `json:"brand_name,omitempty"`
}

// Generate handles POST /generate: research, draft, validate, sanitize.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PerfumeName == "" {
		writeError(w, http.StatusBadRequest, "perfume_name is required")
		return
	}

	description, err := h.copy.Generate(r.Context(), req.PerfumeName, req.BrandName)
	if err != nil {
		h.logger.Error().Err(err).Str("perfume", req.PerfumeName).Msg("Description generation failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"description": description})
}

type createRequest struct {
	RecordID string         `json:"record_id"`
	Fields   map[string]any `json:"fields"`
}

// CreateProduct handles POST /create-shopify-item: the full creation
// workflow from an inventory record.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	report, err := h.sync.CreateFromRecord(r.Context(), req.RecordID, req.Fields)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}

	status := http.StatusCreated
	if report.Workflow == "create_existing" {
		status = http.StatusOK
	}
	writeJSON(w, status, createResponse(report))
}

// Webhook handles POST /airtable-webhook: a flat field update pushed by the
// inventory store for an existing SKU. The shared secret is checked before
// anything else; no downstream call happens on a mismatch.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Secret-Token")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.webhookSecret)) != 1 {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	h.logWebhook(r.Context(), body)

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	report, err := h.sync.UpdateBySKU(r.Context(), fields)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse(report))
}

// webhookResponse flattens the step report into the response contract the
// inventory store's automation consumes: inventory_update is the outcome of
// the stock write, price_list_updates maps each market to its outcome.
func webhookResponse(report *domain.SyncReport) map[string]any {
	inventory := string(domain.StepSkipped)
	priceUpdates := map[string]string{}
	for _, s := range report.Steps {
		switch {
		case s.Step == domain.StepInventory:
			inventory = string(s.Status)
		case strings.HasPrefix(s.Step, domain.StepPrices+"."):
			priceUpdates[strings.TrimPrefix(s.Step, domain.StepPrices+".")] = string(s.Status)
		}
	}
	return map[string]any{
		"status":             report.Overall(),
		"variant_id":         report.VariantID,
		"product_id":         report.ProductID,
		"inventory_update":   inventory,
		"price_list_updates": priceUpdates,
		"steps":              report.Steps,
	}
}

// RequireSecret guards a route subtree with the same shared-secret header
// check the webhook performs.
func (h *Handler) RequireSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get("X-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(secret), []byte(h.webhookSecret)) != 1 {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RefreshTopology handles POST /admin/cache/refresh: drops the cached
// location and price-list topology so the next sync refetches it.
func (h *Handler) RefreshTopology(w http.ResponseWriter, r *http.Request) {
	if err := h.topology.Invalidate(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// RecentRuns handles GET /admin/sync-reports: the latest persisted runs.
func (h *Handler) RecentRuns(w http.ResponseWriter, r *http.Request) {
	reports, err := h.repo.RecentReports(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reports == nil {
		reports = []*domain.SyncReport{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeWorkflowError maps the error taxonomy onto HTTP statuses: validation
// to 400, unknown SKU to 404, upstream failures echo the upstream status,
// anything else is a 500.
func (h *Handler) writeWorkflowError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	var notFound *domain.NotFoundError
	var upstream *domain.UpstreamError

	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &upstream):
		// Some upstream failures carry no HTTP status (a malformed or
		// empty platform response); those must not reach WriteHeader.
		status := upstream.Status
		if status < 100 || status > 599 {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, map[string]any{
			"error":   "upstream error",
			"status":  status,
			"details": upstream.Body,
		})
	default:
		h.logger.Error().Err(err).Msg("Workflow failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) logWebhook(ctx context.Context, payload []byte) {
	if err := h.repo.LogWebhookEvent(ctx, "airtable", payload); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to log webhook event")
	}
}

func createResponse(report *domain.SyncReport) map[string]any {
	resp := map[string]any{
		"success":    report.Overall() != domain.ResultFailed,
		"status":     report.Overall(),
		"shopify_id": report.ProductID,
		"steps":      report.Steps,
	}
	if report.VariantID != "" {
		resp["variant_id"] = report.VariantID
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Headers are already sent; nothing useful left to do.
		return
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
