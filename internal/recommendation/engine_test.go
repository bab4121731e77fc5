package recommendation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"Cyclepulse/internal/cache"
	"Cyclepulse/internal/cycle"
	"Cyclepulse/internal/geminiservice"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCompleter replays canned answers and records prompts.
type stubCompleter struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
}

func (s *stubCompleter) Send(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	return s.text, s.err
}

func (s *stubCompleter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func newTestEngine(t *testing.T, completer Completer) *Engine {
	t.Helper()
	c, err := cache.New(0, 0)
	require.NoError(t, err)
	return NewEngine(zerolog.Nop(), c, completer)
}

func requestWithCycle(length int, recent ...string) cycle.RecommendationRequest {
	return cycle.NewRecommendationRequest(
		[]cycle.CycleSummary{{
			StartDate:      time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			CycleLength:    length,
			PeriodDuration: 5,
		}},
		recent,
	)
}

const aiAnswer = `HEALTH_ANALYSIS_START
HEALTH_CONCERNS: YES
STI_TESTING_NEEDED: YES
HEALTH_ISSUE_DESCRIPTION: Symptoms suggest an infection.
HEALTH_ANALYSIS_END
RECOMMENDATIONS_START
1. [Medical Care]: Book an STI test.
2. [Hygiene]: Wear breathable cotton underwear.
RECOMMENDATIONS_END`

func TestGetRecommendations_AIPath(t *testing.T) {
	stub := &stubCompleter{text: aiAnswer}
	engine := newTestEngine(t, stub)

	result := engine.GetRecommendations(context.Background(), requestWithCycle(30, "itching"), false)

	assert.True(t, result.HealthConcerns)
	assert.True(t, result.NeedsSTITesting)
	assert.Equal(t, "Symptoms suggest an infection.", result.HealthIssueDescription)
	assert.Equal(t, []string{"Medical Care: Book an STI test.", "Hygiene: Wear breathable cotton underwear."}, result.Recommendations)
	require.Equal(t, 1, stub.calls())
	assert.Contains(t, stub.prompts[0], "itching")
}

func TestGetRecommendations_CacheHitSkipsRemote(t *testing.T) {
	stub := &stubCompleter{text: aiAnswer}
	engine := newTestEngine(t, stub)
	req := requestWithCycle(30, "itching")

	first := engine.GetRecommendations(context.Background(), req, false)
	second := engine.GetRecommendations(context.Background(), req, false)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, stub.calls())
	assert.EqualValues(t, 1, engine.CacheStats().Hits)
}

func TestGetRecommendations_ForceRefreshBypassesButStores(t *testing.T) {
	stub := &stubCompleter{text: aiAnswer}
	engine := newTestEngine(t, stub)
	req := requestWithCycle(30)

	engine.GetRecommendations(context.Background(), req, false)

	stub.mu.Lock()
	stub.text = "RECOMMENDATIONS_START\n1. [Diet]: Eat well\nRECOMMENDATIONS_END"
	stub.mu.Unlock()

	refreshed := engine.GetRecommendations(context.Background(), req, true)
	assert.Equal(t, []string{"Diet: Eat well"}, refreshed.Recommendations)
	assert.Equal(t, 2, stub.calls())

	cached := engine.GetRecommendations(context.Background(), req, false)
	assert.Equal(t, refreshed, cached)
	assert.Equal(t, 2, stub.calls())
}

func TestGetRecommendations_FallbackScenarios(t *testing.T) {
	unavailable := fmt.Errorf("%w: connection refused", geminiservice.ErrTransport)

	t.Run("normal cycle", func(t *testing.T) {
		engine := newTestEngine(t, &stubCompleter{err: unavailable})
		result := engine.GetRecommendations(context.Background(), requestWithCycle(30), false)

		assert.False(t, result.HealthConcerns)
		assert.False(t, result.NeedsSTITesting)
		assert.Empty(t, result.HealthIssueDescription)
		assert.Equal(t, cycle.DefaultRecommendations(), result.Recommendations)
	})

	t.Run("long cycle", func(t *testing.T) {
		engine := newTestEngine(t, &stubCompleter{err: unavailable})
		result := engine.GetRecommendations(context.Background(), requestWithCycle(40), false)

		assert.True(t, result.HealthConcerns)
		assert.True(t, result.NeedsSTITesting)
		assert.Contains(t, result.HealthIssueDescription, "40")
		assert.Contains(t, result.HealthIssueDescription, "28-35")
	})

	t.Run("sti symptom", func(t *testing.T) {
		engine := newTestEngine(t, &stubCompleter{err: unavailable})
		result := engine.GetRecommendations(context.Background(), requestWithCycle(30, "burning sensation"), false)

		assert.True(t, result.HealthConcerns)
		assert.True(t, result.NeedsSTITesting)
		assert.Contains(t, result.HealthIssueDescription, "STI testing")
	})
}

func TestGetRecommendations_FallbackIsCached(t *testing.T) {
	stub := &stubCompleter{err: fmt.Errorf("gave up: %w", geminiservice.ErrRateLimited)}
	engine := newTestEngine(t, stub)
	req := requestWithCycle(40)

	first := engine.GetRecommendations(context.Background(), req, false)
	second := engine.GetRecommendations(context.Background(), req, false)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, stub.calls())
}

func TestGetRecommendations_EmptyCompletionFallsBack(t *testing.T) {
	engine := newTestEngine(t, &stubCompleter{text: "  \n"})
	result := engine.GetRecommendations(context.Background(), requestWithCycle(40), false)

	assert.True(t, result.HealthConcerns)
	assert.Contains(t, result.HealthIssueDescription, "40")
}

func TestGetRecommendations_NilCompleterUsesAnalyzer(t *testing.T) {
	engine := newTestEngine(t, nil)
	result := engine.GetRecommendations(context.Background(), cycle.RecommendationRequest{}, false)

	assert.False(t, result.HealthConcerns)
	assert.Len(t, result.Recommendations, cycle.MaxRecommendations)
}

func TestGetRecommendations_CancelledRequestStillCachesFallback(t *testing.T) {
	stub := &stubCompleter{err: context.Canceled}
	engine := newTestEngine(t, stub)
	req := requestWithCycle(30)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := engine.GetRecommendations(ctx, req, false)
	assert.NotEmpty(t, result.Recommendations)
	assert.Equal(t, 1, engine.CacheStats().Entries)

	again := engine.GetRecommendations(context.Background(), req, false)
	assert.Equal(t, result, again)
	assert.Equal(t, 1, stub.calls())
}

func TestGetRecommendations_TypedNilClientUsesAnalyzer(t *testing.T) {
	var client *geminiservice.Client
	engine := newTestEngine(t, client)

	var result cycle.RecommendationResult
	require.NotPanics(t, func() {
		result = engine.GetRecommendations(context.Background(), requestWithCycle(40), false)
	})
	assert.True(t, result.HealthConcerns)
	assert.Contains(t, result.HealthIssueDescription, "40")
}

// panickingCompleter fails in a way no error return can express.
type panickingCompleter struct{}

func (panickingCompleter) Send(ctx context.Context, prompt string) (string, error) {
	panic("completer exploded")
}

func TestGetRecommendations_CompleterPanicFallsBack(t *testing.T) {
	engine := newTestEngine(t, panickingCompleter{})

	var result cycle.RecommendationResult
	require.NotPanics(t, func() {
		result = engine.GetRecommendations(context.Background(), requestWithCycle(30, "itching"), false)
	})
	assert.True(t, result.NeedsSTITesting)
	assert.Equal(t, cycle.DefaultRecommendations(), result.Recommendations)
}

func TestClearCache(t *testing.T) {
	stub := &stubCompleter{err: errors.New("down")}
	engine := newTestEngine(t, stub)
	req := requestWithCycle(30)

	engine.GetRecommendations(context.Background(), req, false)
	engine.ClearCache()
	engine.GetRecommendations(context.Background(), req, false)

	assert.Equal(t, 2, stub.calls())
}
