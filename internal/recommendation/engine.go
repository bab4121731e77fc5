/*
Package recommendation is the public entry point of the health-recommendation
engine. It sequences cache lookup, prompt building, the Gemini call and
response parsing, and substitutes the rule-based analyzer on any failure.
Callers always get a complete result and never an error.
*/
package recommendation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"Cyclepulse/internal/analyzer"
	"Cyclepulse/internal/cache"
	"Cyclepulse/internal/cycle"
	"Cyclepulse/internal/geminiservice"
	"github.com/rs/zerolog"
)

// Completer sends a prompt to a generative model and returns its raw text.
// *geminiservice.Client satisfies it.
type Completer interface {
	Send(ctx context.Context, prompt string) (string, error)
}

// Source names the path that produced a result. It is logged, not returned.
type Source string

const (
	SourceCache    Source = "cache"
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// errEmptyCompletion is returned when Gemini answered without any candidate text.
var errEmptyCompletion = errors.New("gemini returned an empty completion")

// Engine composes the cache, the Gemini client and the local analyzer.
type Engine struct {
	cache     *cache.ResultCache
	completer Completer
	log       zerolog.Logger
}

// NewEngine wires an engine. completer may be nil, or a nil pointer of a
// type implementing Completer; either way every request is answered by the
// local analyzer.
func NewEngine(log zerolog.Logger, resultCache *cache.ResultCache, completer Completer) *Engine {
	if isNilCompleter(completer) {
		completer = nil
	}

	return &Engine{
		cache:     resultCache,
		completer: completer,
		log:       log.With().Str("component", "recommendation").Logger(),
	}
}

// GetRecommendations returns recommendations and a risk verdict for req.
//
// A fresh cached result is returned as is unless forceRefresh is set. On a
// miss the Gemini path runs; any failure there is replaced by the local
// analyzer. Either outcome is cached under the request fingerprint, so a
// repeated call inside the TTL does not hit Gemini again.
func (e *Engine) GetRecommendations(ctx context.Context, req cycle.RecommendationRequest, forceRefresh bool) cycle.RecommendationResult {
	key := cycle.Fingerprint(req)
	log := e.log.With().Str("fingerprint", key[:12]).Bool("force_refresh", forceRefresh).Logger()

	// 1. Cache check
	if !forceRefresh {
		if result, ok := e.cache.Get(key); ok {
			log.Debug().Str("source", string(SourceCache)).Msg("Serving cached recommendations")
			return result
		}
	}

	// 2. Gemini path
	result, err := e.generate(ctx, req)
	source := SourceAI
	if err != nil {
		log.Warn().Err(err).Msg("AI recommendations unavailable, using rule-based analysis")
		result = analyzer.Analyze(req)
		source = SourceFallback
	}

	// 3. Store
	e.cache.Put(key, result)
	log.Info().
		Str("source", string(source)).
		Bool("health_concerns", result.HealthConcerns).
		Bool("needs_sti_testing", result.NeedsSTITesting).
		Int("recommendations", len(result.Recommendations)).
		Msg("Recommendations generated")

	return result
}

// ClearCache drops every cached result.
func (e *Engine) ClearCache() {
	e.cache.Clear()
	e.log.Info().Msg("Recommendation cache cleared")
}

// CacheStats exposes cache counters for health reporting.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// generate runs prompt build, transport and parse.
func (e *Engine) generate(ctx context.Context, req cycle.RecommendationRequest) (result cycle.RecommendationResult, err error) {
	if e.completer == nil {
		return result, fmt.Errorf("%w: no completer configured", geminiservice.ErrTransport)
	}

	defer func() {
		if r := recover(); r != nil {
			result = cycle.RecommendationResult{}
			err = fmt.Errorf("recommendation generation panicked: %v", r)
		}
	}()

	prompt := geminiservice.BuildPrompt(req)

	text, err := e.completer.Send(ctx, prompt)
	if err != nil {
		return result, err
	}
	if strings.TrimSpace(text) == "" {
		return result, errEmptyCompletion
	}

	return geminiservice.ParseResponse(text), nil
}

// isNilCompleter catches both a nil interface and a typed nil pointer stored
// in it, such as a (*geminiservice.Client)(nil).
func isNilCompleter(c Completer) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
