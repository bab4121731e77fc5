package cycle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

const dateLayout = "2006-01-02"

// canonicalCycle and canonicalRequest fix the field order and date format used
// for hashing.
type canonicalCycle struct {
	StartDate      string   `json:"start_date"`
	CycleLength    int      `json:"cycle_length"`
	PeriodDuration int      `json:"period_duration"`
	Symptoms       []string `json:"symptoms"`
}

type canonicalRequest struct {
	Cycles         []canonicalCycle `json:"cycles"`
	RecentSymptoms []string         `json:"recent_symptoms"`
}

// Fingerprint returns the cache key for a request.
//
// Cycles and the symptoms inside each cycle keep their order. Recent symptoms
// are treated as a set: blank and duplicate labels are dropped and the rest
// sorted, so two callers reporting the same symptoms in a different order
// share a key.
func Fingerprint(req RecommendationRequest) string {
	canon := canonicalRequest{
		Cycles:         make([]canonicalCycle, 0, len(req.Cycles)),
		RecentSymptoms: sortedSet(req.RecentSymptoms),
	}

	for _, c := range req.Cycles {
		symptoms := c.Symptoms
		if symptoms == nil {
			symptoms = []string{}
		}
		canon.Cycles = append(canon.Cycles, canonicalCycle{
			StartDate:      c.StartDate.Format(dateLayout),
			CycleLength:    c.CycleLength,
			PeriodDuration: c.PeriodDuration,
			Symptoms:       symptoms,
		})
	}

	// Marshalling plain structs of strings and ints cannot fail.
	data, _ := json.Marshal(canon)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sortedSet(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
