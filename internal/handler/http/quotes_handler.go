package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/oddslab/odds-intel-service/internal/service"
	"github.com/oddslab/odds-intel-service/pkg/discovery"
)

// QuotesHandler handles HTTP requests for aggregated market quotes
type QuotesHandler struct {
	service *service.PipelineService
	logger  zerolog.Logger
}

// NewQuotesHandler creates a new quotes HTTP handler
func NewQuotesHandler(service *service.PipelineService, logger zerolog.Logger) *QuotesHandler {
	return &QuotesHandler{
		service: service,
		logger:  logger.With().Str("component", "quotes_handler").Logger(),
	}
}

// RegisterRoutes registers HTTP routes with the provided mux
func (h *QuotesHandler) RegisterRoutes(mux *http.ServeMux) {
	// GET /api/v1/quotes/:sport - Run an aggregation cycle for a sport
	mux.HandleFunc("/api/v1/quotes/", h.handleGetQuotes)

	// POST /api/v1/sources/:id/discover - Run discovery against a source
	mux.HandleFunc("/api/v1/sources/", h.handleDiscoverSource)

	// GET /api/v1/teams/:team/fixtures - Recent fixtures involving a team
	mux.HandleFunc("/api/v1/teams/", h.handleGetTeamFixtures)
}

// handleGetQuotes handles GET /api/v1/quotes/:sport
func (h *QuotesHandler) handleGetQuotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sport := strings.TrimPrefix(r.URL.Path, "/api/v1/quotes/")
	if sport == "" || strings.Contains(sport, "/") {
		h.errorResponse(w, http.StatusBadRequest, "invalid path: expected /api/v1/quotes/:sport")
		return
	}

	league := r.URL.Query().Get("league")
	fixtureID := r.URL.Query().Get("fixture")

	view, err := h.service.MarketQuotes(r.Context(), sport, league, fixtureID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("sport", sport).
			Str("league", league).
			Msg("aggregation cycle failed")
		h.errorResponse(w, http.StatusInternalServerError, "aggregation failed")
		return
	}

	h.jsonResponse(w, http.StatusOK, view)
}

// handleDiscoverSource handles POST /api/v1/sources/:id/discover
func (h *QuotesHandler) handleDiscoverSource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Parse path: /api/v1/sources/:id/discover
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/sources/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[1] != "discover" {
		h.errorResponse(w, http.StatusBadRequest, "invalid path: expected /api/v1/sources/:id/discover")
		return
	}

	sourceID := parts[0]
	if sourceID == "" {
		h.errorResponse(w, http.StatusBadRequest, "source id is required")
		return
	}

	sport := r.URL.Query().Get("sport")
	league := r.URL.Query().Get("league")

	mapping, err := h.service.RunDiscovery(r.Context(), sourceID, sport, league)
	if err != nil {
		var discErr *discovery.Error
		if errors.As(err, &discErr) {
			// Discovery failed on a well-formed payload. The near-miss
			// candidates go back to the caller for manual review.
			h.jsonResponse(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":      discErr.Reason,
				"candidates": discErr.Candidates,
			})
			return
		}
		h.logger.Warn().
			Err(err).
			Str("source_id", sourceID).
			Msg("discovery failed")
		h.errorResponse(w, http.StatusBadGateway, err.Error())
		return
	}

	h.jsonResponse(w, http.StatusOK, mapping)
}

// handleGetTeamFixtures handles GET /api/v1/teams/:team/fixtures
func (h *QuotesHandler) handleGetTeamFixtures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Parse path: /api/v1/teams/:team/fixtures
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/teams/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[1] != "fixtures" {
		h.errorResponse(w, http.StatusBadRequest, "invalid path: expected /api/v1/teams/:team/fixtures")
		return
	}

	team := parts[0]
	if team == "" {
		h.errorResponse(w, http.StatusBadRequest, "team is required")
		return
	}

	league := r.URL.Query().Get("league")

	fixtures, err := h.service.TeamRecentFixtures(r.Context(), league, team)
	if err != nil {
		h.logger.Debug().
			Err(err).
			Str("team", team).
			Msg("no fixtures found")
		h.errorResponse(w, http.StatusNotFound, "no fixtures found")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"team":     team,
		"count":    len(fixtures),
		"fixtures": fixtures,
	})
}

// jsonResponse writes a JSON response
func (h *QuotesHandler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// errorResponse writes a JSON error response
func (h *QuotesHandler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{
		"error": message,
	})
}
