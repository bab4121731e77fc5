/*
Package cycle holds the data the recommendation engine consumes and produces:
cycle summaries, the request assembled from them, and the result returned to
callers regardless of whether the AI path or the local analyzer produced it.
*/
package cycle

import (
	"fmt"
	"time"
)

// MaxRecommendations caps the number of recommendations in any result.
const MaxRecommendations = 4

// CycleSummary is one historical menstrual cycle as input to analysis.
type CycleSummary struct {
	// StartDate is the first day of the period. Only the calendar date is used.
	StartDate time.Time `json:"start_date"`

	// CycleLength is the full cycle length in days.
	CycleLength int `json:"cycle_length"`

	// PeriodDuration is the number of bleeding days.
	PeriodDuration int `json:"period_duration"`

	// Symptoms are the labels observed during the cycle, in the order they were noted.
	Symptoms []string `json:"symptoms,omitempty"`
}

// RecommendationRequest is the complete input unit for one analysis.
type RecommendationRequest struct {
	Cycles         []CycleSummary `json:"cycles"`
	RecentSymptoms []string       `json:"recent_symptoms"`
}

// NewRecommendationRequest builds a request, dropping duplicate and blank recent
// symptom labels while keeping the first occurrence of each. Labels stay
// case-sensitive as supplied.
func NewRecommendationRequest(cycles []CycleSummary, recentSymptoms []string) RecommendationRequest {
	seen := make(map[string]struct{}, len(recentSymptoms))
	deduped := make([]string, 0, len(recentSymptoms))
	for _, s := range recentSymptoms {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		deduped = append(deduped, s)
	}

	return RecommendationRequest{
		Cycles:         cycles,
		RecentSymptoms: deduped,
	}
}

// RecommendationResult is the output unit. Recommendations is never empty.
type RecommendationResult struct {
	Recommendations        []string `json:"recommendations"`
	HealthConcerns         bool     `json:"health_concerns"`
	NeedsSTITesting        bool     `json:"needs_sti_testing"`
	HealthIssueDescription string   `json:"health_issue_description,omitempty"`
}

// Clone returns a copy that shares no slice memory with r.
func (r RecommendationResult) Clone() RecommendationResult {
	out := r
	out.Recommendations = append([]string(nil), r.Recommendations...)
	return out
}

// Recommendation is a single categorized piece of advice.
type Recommendation struct {
	Category string
	Text     string
}

// String renders the recommendation in the form stored in results.
func (r Recommendation) String() string {
	return fmt.Sprintf("%s: %s", r.Category, r.Text)
}

// defaultRecommendations is used whenever nothing personalized can be derived.
var defaultRecommendations = []Recommendation{
	{Category: "Tracking", Text: "Keep logging your period start dates and symptoms every cycle so changes are easy to spot."},
	{Category: "Nutrition", Text: "Eat iron-rich foods such as leafy greens, beans and lean meat, and stay well hydrated during your period."},
	{Category: "Exercise", Text: "Aim for regular moderate activity like walking, yoga or swimming to ease cramps and support hormonal balance."},
	{Category: "Medical Care", Text: "Schedule a routine check-up with a gynecologist and mention any symptoms that worry you."},
}

// DefaultRecommendations returns a fresh copy of the canned four-item set.
func DefaultRecommendations() []string {
	out := make([]string, 0, len(defaultRecommendations))
	for _, r := range defaultRecommendations {
		out = append(out, r.String())
	}
	return out
}
