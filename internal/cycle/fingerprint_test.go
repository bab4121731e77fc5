package cycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(dateLayout, s)
	require.NoError(t, err)
	return d
}

func TestFingerprint_StableForEqualRequests(t *testing.T) {
	cycles := []CycleSummary{
		{StartDate: date(t, "2026-08-01"), CycleLength: 29, PeriodDuration: 5, Symptoms: []string{"cramps", "bloating"}},
		{StartDate: date(t, "2026-08-30"), CycleLength: 31, PeriodDuration: 4},
	}

	r1 := NewRecommendationRequest(cycles, []string{"fatigue", "headache"})
	r2 := NewRecommendationRequest(cycles, []string{"headache", "fatigue", "headache"})

	assert.Equal(t, Fingerprint(r1), Fingerprint(r2))
	assert.Len(t, Fingerprint(r1), 64)
}

func TestFingerprint_NilAndEmptySymptomsMatch(t *testing.T) {
	start := date(t, "2026-08-01")
	withNil := RecommendationRequest{Cycles: []CycleSummary{{StartDate: start, CycleLength: 30, PeriodDuration: 5}}}
	withEmpty := RecommendationRequest{
		Cycles:         []CycleSummary{{StartDate: start, CycleLength: 30, PeriodDuration: 5, Symptoms: []string{}}},
		RecentSymptoms: []string{},
	}

	assert.Equal(t, Fingerprint(withNil), Fingerprint(withEmpty))
}

func TestFingerprint_DistinguishesContent(t *testing.T) {
	start := date(t, "2026-08-01")
	base := RecommendationRequest{
		Cycles: []CycleSummary{{StartDate: start, CycleLength: 30, PeriodDuration: 5, Symptoms: []string{"cramps", "acne"}}},
	}

	tests := []struct {
		name   string
		mutate func(r RecommendationRequest) RecommendationRequest
	}{
		{"cycle length", func(r RecommendationRequest) RecommendationRequest {
			r.Cycles = []CycleSummary{{StartDate: start, CycleLength: 31, PeriodDuration: 5, Symptoms: []string{"cramps", "acne"}}}
			return r
		}},
		{"symptom order within cycle", func(r RecommendationRequest) RecommendationRequest {
			r.Cycles = []CycleSummary{{StartDate: start, CycleLength: 30, PeriodDuration: 5, Symptoms: []string{"acne", "cramps"}}}
			return r
		}},
		{"start date", func(r RecommendationRequest) RecommendationRequest {
			r.Cycles = []CycleSummary{{StartDate: start.AddDate(0, 0, 1), CycleLength: 30, PeriodDuration: 5, Symptoms: []string{"cramps", "acne"}}}
			return r
		}},
		{"recent symptom case", func(r RecommendationRequest) RecommendationRequest {
			r.RecentSymptoms = []string{"Cramps"}
			return r
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, Fingerprint(base), Fingerprint(tt.mutate(base)))
		})
	}
}

func TestFingerprint_BlankRecentSymptomIgnored(t *testing.T) {
	literal := RecommendationRequest{RecentSymptoms: []string{"cramps", "", "acne"}}
	built := NewRecommendationRequest(nil, []string{"cramps", "", "acne"})

	assert.Equal(t, Fingerprint(built), Fingerprint(literal))
}

func TestNewRecommendationRequest_Dedupes(t *testing.T) {
	req := NewRecommendationRequest(nil, []string{"Itching", "", "itching", "Itching"})
	assert.Equal(t, []string{"Itching", "itching"}, req.RecentSymptoms)
}

func TestDefaultRecommendations(t *testing.T) {
	defaults := DefaultRecommendations()
	require.Len(t, defaults, MaxRecommendations)

	defaults[0] = "mutated"
	assert.NotEqual(t, "mutated", DefaultRecommendations()[0])
}

func TestRecommendationResult_Clone(t *testing.T) {
	orig := RecommendationResult{Recommendations: []string{"a: b"}, HealthConcerns: true}
	clone := orig.Clone()
	clone.Recommendations[0] = "changed"

	assert.Equal(t, "a: b", orig.Recommendations[0])
	assert.True(t, clone.HealthConcerns)
}
