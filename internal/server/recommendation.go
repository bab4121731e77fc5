package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"Cyclepulse/internal/cycle"
	"Cyclepulse/internal/utility"
	"github.com/labstack/echo/v4"
)

/* =================================================================================
							DTOs (Data Transfer Objects)
=================================================================================*/

// CycleInput is one cycle as sent by the client.
type CycleInput struct {
	StartDate      string   `json:"start_date"` // YYYY-MM-DD
	CycleLength    int      `json:"cycle_length"`
	PeriodDuration int      `json:"period_duration"`
	Symptoms       []string `json:"symptoms,omitempty"`
}

// RecommendationRequest carries the full cycle history in the body.
type RecommendationRequest struct {
	Cycles         []CycleInput `json:"cycles"`
	RecentSymptoms []string     `json:"recent_symptoms,omitempty"`
	ForceRefresh   bool         `json:"force_refresh,omitempty"`
}

// StoredHistoryRequest asks for recommendations over the user's stored cycles.
type StoredHistoryRequest struct {
	RecentSymptoms []string `json:"recent_symptoms,omitempty"`
	ForceRefresh   bool     `json:"force_refresh,omitempty"`
}

/*=================================================================================
									HANDLERS
=================================================================================*/

// GetRecommendationsHandler analyzes the cycles supplied in the request body.
func (s *Server) GetRecommendationsHandler(c echo.Context) error {
	logger := utility.GetLogger(c)

	// 1. Parse and Validate Request Body
	var req RecommendationRequest
	if err := c.Bind(&req); err != nil {
		logger.Warn().Err(err).Msg("Failed to bind request body")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	cycles, err := toCycleSummaries(req.Cycles)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	// 2. Throttle cache bypass
	if req.ForceRefresh && !s.refreshLimiter.Allow(c.RealIP()) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{
			"error": "Too many refresh requests, please try again later",
		})
	}

	logger.Info().
		Int("cycles", len(cycles)).
		Int("recent_symptoms", len(req.RecentSymptoms)).
		Msg("Processing recommendation request")

	// 3. Run the engine; it always produces a result
	result := s.engine.GetRecommendations(
		c.Request().Context(),
		cycle.NewRecommendationRequest(cycles, trimLabels(req.RecentSymptoms)),
		req.ForceRefresh,
	)

	return c.JSON(http.StatusOK, result)
}

// GetStoredHistoryRecommendationsHandler analyzes the cycles stored for a user.
func (s *Server) GetStoredHistoryRecommendationsHandler(c echo.Context) error {
	logger := utility.GetLogger(c)

	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing user ID"})
	}

	if s.db == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Cycle history storage is not configured"})
	}

	var req StoredHistoryRequest
	if err := c.Bind(&req); err != nil {
		logger.Warn().Err(err).Msg("Failed to bind request body")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	if req.ForceRefresh && !s.refreshLimiter.Allow(c.RealIP()) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{
			"error": "Too many refresh requests, please try again later",
		})
	}

	cycles, err := s.db.CycleHistory(c.Request().Context(), userID)
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load cycle history")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load cycle history"})
	}

	logger.Info().Str("user_id", userID).Int("cycles", len(cycles)).Msg("Processing stored-history recommendation request")

	result := s.engine.GetRecommendations(
		c.Request().Context(),
		cycle.NewRecommendationRequest(cycles, trimLabels(req.RecentSymptoms)),
		req.ForceRefresh,
	)

	return c.JSON(http.StatusOK, result)
}

// ClearRecommendationCacheHandler invalidates every cached result, for callers
// that know the underlying data changed.
func (s *Server) ClearRecommendationCacheHandler(c echo.Context) error {
	s.engine.ClearCache()
	utility.GetLogger(c).Info().Msg("Recommendation cache cleared on request")
	return c.NoContent(http.StatusNoContent)
}

/*=================================================================================
								HELPER FUNCTIONS
=================================================================================*/

func toCycleSummaries(inputs []CycleInput) ([]cycle.CycleSummary, error) {
	cycles := make([]cycle.CycleSummary, 0, len(inputs))
	for i, in := range inputs {
		start, err := time.Parse("2006-01-02", in.StartDate)
		if err != nil {
			return nil, fmt.Errorf("cycles[%d]: start_date must be YYYY-MM-DD", i)
		}
		if in.CycleLength <= 0 || in.PeriodDuration <= 0 {
			return nil, fmt.Errorf("cycles[%d]: cycle_length and period_duration must be positive", i)
		}

		cycles = append(cycles, cycle.CycleSummary{
			StartDate:      start,
			CycleLength:    in.CycleLength,
			PeriodDuration: in.PeriodDuration,
			Symptoms:       trimLabels(in.Symptoms),
		})
	}
	return cycles, nil
}

// trimLabels strips surrounding whitespace and drops blank labels.
func trimLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
