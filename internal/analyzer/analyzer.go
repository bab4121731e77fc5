/*
Package analyzer is the local, network-independent health check used whenever
the AI path cannot produce a result. It reads the same request the prompt is
built from and answers in the same shape, so callers cannot tell the paths apart.
*/
package analyzer

import (
	"fmt"
	"strconv"
	"strings"

	"Cyclepulse/internal/cycle"
)

// Normal cycle range for the rule-based check, in days. This is narrower than
// the 21-35 day range the AI prompt describes.
const (
	MinNormalCycleLength = 28
	MaxNormalCycleLength = 35
)

var (
	stiKeywords = []string{
		"discharge",
		"unusual discharge",
		"burning",
		"itching",
		"odor",
		"pain during urination",
		"pelvic pain",
		"bleeding between periods",
		"irregular bleeding",
	}

	concerningKeywords = []string{
		"severe pain",
		"heavy bleeding",
		"fever",
		"severe cramps",
	}
)

// Descriptions, in priority order.
const (
	descIrregularAndHeavy = "Irregular cycle lengths together with heavy bleeding were detected. Please consult a gynecologist to rule out hormonal imbalance or other underlying conditions."
	descIrregularFormat   = "Irregular cycle length detected (%s days). Normal cycles typically last %d-%d days. Consider discussing this with a healthcare provider."
	descHeavy             = "Heavy menstrual bleeding was reported. Persistent heavy periods can lead to anemia and should be checked by a healthcare provider."
	descSTI               = "Some reported symptoms can be associated with sexually transmitted infections. STI testing is recommended to rule out infection."
	descConcerning        = "Severe symptoms were reported. Please seek medical advice, especially if the pain, fever or bleeding persists."
)

// Findings is the intermediate result of the detection pass.
type Findings struct {
	Irregular        bool
	IrregularLengths []int
	Heavy            bool
	STI              bool
	Concerning       bool
}

// Any reports whether any rule fired.
func (f Findings) Any() bool {
	return f.Irregular || f.Heavy || f.STI || f.Concerning
}

// Detect runs every rule over the request.
func Detect(req cycle.RecommendationRequest) Findings {
	blob := symptomBlob(req)

	var f Findings
	seen := map[int]bool{}
	for _, c := range req.Cycles {
		if c.CycleLength < MinNormalCycleLength || c.CycleLength > MaxNormalCycleLength {
			f.Irregular = true
			if !seen[c.CycleLength] {
				seen[c.CycleLength] = true
				f.IrregularLengths = append(f.IrregularLengths, c.CycleLength)
			}
		}
	}

	f.Heavy = strings.Contains(blob, "heavy")
	f.STI = containsAny(blob, stiKeywords)
	f.Concerning = containsAny(blob, concerningKeywords)

	return f
}

// Analyze produces a full result from the rule set. Both flags come from the
// same detection pass; recommendations are always the default set.
func Analyze(req cycle.RecommendationRequest) cycle.RecommendationResult {
	f := Detect(req)

	return cycle.RecommendationResult{
		Recommendations:        cycle.DefaultRecommendations(),
		HealthConcerns:         f.Any(),
		NeedsSTITesting:        f.Any(),
		HealthIssueDescription: Describe(f),
	}
}

// Describe picks the single most specific description, or "" when nothing fired.
func Describe(f Findings) string {
	switch {
	case f.Irregular && f.Heavy:
		return descIrregularAndHeavy
	case f.Irregular:
		lengths := make([]string, 0, len(f.IrregularLengths))
		for _, l := range f.IrregularLengths {
			lengths = append(lengths, strconv.Itoa(l))
		}
		return fmt.Sprintf(descIrregularFormat, strings.Join(lengths, ", "), MinNormalCycleLength, MaxNormalCycleLength)
	case f.Heavy:
		return descHeavy
	case f.STI:
		return descSTI
	case f.Concerning:
		return descConcerning
	default:
		return ""
	}
}

// symptomBlob joins recent and per-cycle symptoms into one lower-case string.
func symptomBlob(req cycle.RecommendationRequest) string {
	parts := make([]string, 0, len(req.RecentSymptoms))
	parts = append(parts, req.RecentSymptoms...)
	for _, c := range req.Cycles {
		parts = append(parts, c.Symptoms...)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func containsAny(blob string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(blob, k) {
			return true
		}
	}
	return false
}
