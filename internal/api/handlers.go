// Package api exposes HTTP handlers for the playdate matcher.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"example.com/playdate/internal/auth"
	"example.com/playdate/internal/catalog"
	"example.com/playdate/internal/domain"
	"example.com/playdate/internal/matcher"
)

const maxBodyBytes = 1 << 20

// Matcher ranks candidates for a selection.
type Matcher interface {
	PerformMatching(ctx context.Context, sel domain.Selection, session matcher.Session) (domain.MatchResult, error)
}

// Vocabulary lists the values a user can pick from.
type Vocabulary interface {
	Vocabulary(ctx context.Context) (catalog.PickerVocabulary, error)
	Materials(ctx context.Context) ([]domain.Material, error)
}

// Invalidator drops the cached candidate snapshot.
type Invalidator interface {
	Invalidate()
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used to report failed requests.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Handler handles HTTP interactions.
type Handler struct {
	matcher     Matcher
	vocabulary  Vocabulary
	invalidator Invalidator
	logger      *zap.Logger
}

// NewHandler constructs Handler.
func NewHandler(m Matcher, vocabulary Vocabulary, invalidator Invalidator, opts ...Option) *Handler {
	h := &Handler{matcher: m, vocabulary: vocabulary, invalidator: invalidator, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes sets up routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/matcher", h.match)
	mux.HandleFunc("/v1/matcher/picker", h.picker)
	mux.HandleFunc("/v1/matcher/cache/invalidate", h.invalidate)
	mux.HandleFunc("/healthz", healthz)
}

// healthz returns an OK response for readiness probes.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) match(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeMatcherRead)
	if !ok {
		return
	}

	var req MatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	sel, err := req.Selection()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := h.matcher.PerformMatching(r.Context(), sel, matcher.Session{OrgID: claims.OrgID})
	if err != nil {
		h.writeFailure(w, r, "match", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) picker(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if _, ok := requireScope(w, r, auth.ScopeMatcherRead); !ok {
		return
	}

	vocab, err := h.vocabulary.Vocabulary(r.Context())
	if err != nil {
		h.writeFailure(w, r, "picker", err)
		return
	}
	materials, err := h.vocabulary.Materials(r.Context())
	if err != nil {
		h.writeFailure(w, r, "picker", err)
		return
	}
	writeJSON(w, http.StatusOK, PickerResponse{
		Forms:     vocab.Forms,
		Slots:     vocab.Slots,
		Contexts:  vocab.Contexts,
		Materials: materials,
	})
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeMatcherAdmin)
	if !ok {
		return
	}
	h.invalidator.Invalidate()
	h.logger.Info("candidate cache invalidated by request",
		zap.String("subject", claims.Subject),
		zap.String("request_id", auth.RequestID(r.Context())),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("request_id", auth.RequestID(r.Context())),
		zap.Error(err),
	}
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		h.logger.Error("candidate store unavailable", fields...)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "candidate store unavailable")
	case errors.Is(err, domain.ErrEntitlementLookupFailed):
		h.logger.Error("entitlement lookup failed", fields...)
		writeError(w, http.StatusBadGateway, "entitlement_lookup_failed", "entitlement lookup failed")
	default:
		h.logger.Error("request failed", fields...)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func requireScope(w http.ResponseWriter, r *http.Request, scope string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if !claims.HasScope(scope) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return nil, false
	}
	return claims, true
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{"type": code, "detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
