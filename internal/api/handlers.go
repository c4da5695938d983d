package api

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Luca1234105/torren/internal/config"
	"github.com/Luca1234105/torren/internal/models"
	"github.com/Luca1234105/torren/internal/providers"
	"github.com/Luca1234105/torren/internal/services/streams"
)

// Addon identity advertised in the manifest
const (
	AddonID          = "org.ita.torrentiofilter.heavy"
	AddonVersion     = "2.0.0"
	AddonName        = "Torrentio ITA [Heavy Check]"
	AddonDescription = "Filtra i risultati italiani di Torrentio e verifica la cache debrid."
)

const healthTimeout = 2 * time.Second

//go:embed templates/configure.html
var templateFS embed.FS

var configureTemplate = template.Must(template.ParseFS(templateFS, "templates/configure.html"))

// Manifest is the addon descriptor served to players.
type Manifest struct {
	ID            string                `json:"id"`
	Version       string                `json:"version"`
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	Resources     []string              `json:"resources"`
	Types         []string              `json:"types"`
	Catalogs      []any                 `json:"catalogs"`
	IDPrefixes    []string              `json:"idPrefixes"`
	BehaviorHints ManifestBehaviorHints `json:"behaviorHints"`
}

// ManifestBehaviorHints marks the addon as configurable.
type ManifestBehaviorHints struct {
	Configurable          bool `json:"configurable"`
	ConfigurationRequired bool `json:"configurationRequired"`
}

// NewManifest returns the static addon manifest.
func NewManifest() Manifest {
	return Manifest{
		ID:          AddonID,
		Version:     AddonVersion,
		Name:        AddonName,
		Description: AddonDescription,
		Resources:   []string{"stream"},
		Types:       []string{"movie", "series"},
		Catalogs:    []any{},
		IDPrefixes:  []string{"tt", "kitsu"},
		BehaviorHints: ManifestBehaviorHints{
			Configurable: true,
		},
	}
}

// StreamsResponse is the body of every stream request.
type StreamsResponse struct {
	Streams []models.Candidate `json:"streams"`
}

// BatchRunner annotates one upstream batch.
type BatchRunner interface {
	RunBatch(ctx context.Context, candidates []models.Candidate, account streams.Account, requested streams.Mode) []streams.AnnotatedCandidate
}

// OrphanLedger is the read side of the orphan store.
type OrphanLedger interface {
	ListRecent(ctx context.Context, limit int) ([]models.OrphanedResource, error)
	Ping(ctx context.Context) error
}

// BreakerReporter exposes a prober's circuit state.
type BreakerReporter interface {
	Name() string
	BreakerState() string
}

// Handler serves the addon endpoints.
type Handler struct {
	provider providers.StreamProvider
	batches  BatchRunner
	ledger   OrphanLedger
	breakers []BreakerReporter
	logger   *slog.Logger
}

// Option configures optional Handler dependencies.
type Option func(*Handler)

// WithOrphanLedger enables /api/orphans and the ledger health check.
func WithOrphanLedger(ledger OrphanLedger) Option {
	return func(h *Handler) { h.ledger = ledger }
}

// WithBreakers reports prober circuit states on /health.
func WithBreakers(breakers ...BreakerReporter) Option {
	return func(h *Handler) { h.breakers = append(h.breakers, breakers...) }
}

// NewHandler creates the addon handler.
func NewHandler(provider providers.StreamProvider, batches BatchRunner, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		provider: provider,
		batches:  batches,
		logger:   logger.With("component", "api"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Configure renders the install page. A config segment in the path pre-fills the form.
func (h *Handler) Configure(w http.ResponseWriter, r *http.Request) {
	var current config.UserConfig
	if segment := mux.Vars(r)["config"]; segment != "" {
		if decoded, err := config.DecodeUserConfig(segment); err == nil {
			current = decoded
		}
	}

	data := struct {
		Name    string
		Version string
		Current config.UserConfig
	}{
		Name:    AddonName,
		Version: AddonVersion,
		Current: current,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := configureTemplate.Execute(w, data); err != nil {
		h.logger.Error("render configure page", "error", err)
	}
}

// Manifest serves the addon descriptor.
func (h *Handler) Manifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewManifest())
}

// Streams serves the filtered and annotated stream list. It always answers
// 200; failures degrade to fewer or unannotated streams.
func (h *Handler) Streams(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	mediaType, id := vars["type"], vars["id"]
	logger := h.logger.With("type", mediaType, "id", id)

	userCfg, err := config.DecodeUserConfig(vars["config"])
	if err != nil {
		logger.Warn("undecodable user config, serving p2p", "error", err)
		userCfg = config.UserConfig{}
	}

	if err := providers.ValidateRequest(mediaType, id); err != nil {
		logger.Warn("rejected stream request", "error", err)
		writeJSON(w, http.StatusOK, StreamsResponse{Streams: []models.Candidate{}})
		return
	}

	candidates, err := h.provider.GetStreams(r.Context(), mediaType, id, userCfg.Options)
	if err != nil {
		logger.Warn("upstream fetch failed", "error", err)
	}
	if len(candidates) == 0 {
		writeJSON(w, http.StatusOK, StreamsResponse{Streams: []models.Candidate{}})
		return
	}

	account := streams.Account{Service: userCfg.Service, Credential: userCfg.Key}
	annotated := h.batches.RunBatch(r.Context(), candidates, account, streams.ParseMode(userCfg.Mode))

	writeJSON(w, http.StatusOK, StreamsResponse{Streams: FormatStreams(annotated)})
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Ledger   string            `json:"ledger,omitempty"`
	Breakers map[string]string `json:"breakers,omitempty"`
}

// Health reports liveness, ledger connectivity and circuit states.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	status := http.StatusOK

	if h.ledger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.ledger.Ping(ctx); err != nil {
			h.logger.Warn("orphan ledger unreachable", "error", err)
			resp.Status = "degraded"
			resp.Ledger = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Ledger = "ok"
		}
	}

	if len(h.breakers) > 0 {
		resp.Breakers = make(map[string]string, len(h.breakers))
		for _, b := range h.breakers {
			resp.Breakers[b.Name()] = b.BreakerState()
		}
	}

	writeJSON(w, status, resp)
}

// Orphans lists recent orphan-risk records.
func (h *Handler) Orphans(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		WriteError(w, r, http.StatusNotFound, "Not Found", "orphan ledger is not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteError(w, r, http.StatusBadRequest, "Bad Request", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	orphans, err := h.ledger.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("list orphaned resources", "error", err)
		WriteError(w, r, http.StatusServiceUnavailable, "Service Unavailable", "orphan ledger unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"orphans": orphans})
}
