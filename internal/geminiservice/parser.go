package geminiservice

import (
	"regexp"
	"strings"

	"Cyclepulse/internal/cycle"
)

/*=================================================================================
								RESPONSE PARSING
=================================================================================*/

// LineMatcher tries to read a (category, text) pair from one response line.
type LineMatcher struct {
	Name string

	// GenericOnly matchers are only consulted while the list is not yet full.
	GenericOnly bool

	Match func(line string) (cycle.Recommendation, bool)
}

var (
	healthBlockRe = regexp.MustCompile(`(?s)` + HealthAnalysisStart + `(.*?)` + HealthAnalysisEnd)
	recsBlockRe   = regexp.MustCompile(`(?s)` + RecommendationsStart + `(.*?)` + RecommendationsEnd)

	healthConcernsRe = regexp.MustCompile(`(?i)HEALTH_CONCERNS:\s*(YES|NO)\b`)
	stiTestingRe     = regexp.MustCompile(`(?i)STI_TESTING_NEEDED:\s*(YES|NO)\b`)
	descriptionRe    = regexp.MustCompile(`(?i)HEALTH_ISSUE_DESCRIPTION:[ \t]*([^\n]*)`)

	// templateLabelRe matches identifiers such as HEALTH_CONCERNS.
	templateLabelRe = regexp.MustCompile(`^[A-Z]+(_[A-Z]+)+$`)
)

// LineMatchers is the ordered cascade, strictest first.
var LineMatchers = []LineMatcher{
	regexMatcher("numbered-bracketed", `^\d+\.\s*\[([^\]]+)\]:\s*(.+)$`),
	regexMatcher("numbered", `^\d+\.\s*([^:]+):\s*(.+)$`),
	regexMatcher("asterisk-bullet", `^\*\s*([^:]+):\s*(.+)$`),
	regexMatcher("dash-bullet", `^-\s*([^:]+):\s*(.+)$`),
	{
		Name:        "first-colon",
		GenericOnly: true,
		Match:       matchFirstColon,
	},
}

func regexMatcher(name, pattern string) LineMatcher {
	re := regexp.MustCompile(pattern)
	return LineMatcher{
		Name: name,
		Match: func(line string) (cycle.Recommendation, bool) {
			m := re.FindStringSubmatch(line)
			if m == nil {
				return cycle.Recommendation{}, false
			}
			return newRecommendation(m[1], m[2])
		},
	}
}

// matchFirstColon splits on the first colon. Template labels and marker lines
// are refused so the analysis block is never read as advice.
func matchFirstColon(line string) (cycle.Recommendation, bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return cycle.Recommendation{}, false
	}
	category := strings.TrimSpace(line[:idx])
	if templateLabelRe.MatchString(category) {
		return cycle.Recommendation{}, false
	}
	return newRecommendation(category, line[idx+1:])
}

func newRecommendation(category, text string) (cycle.Recommendation, bool) {
	category = strings.TrimSpace(category)
	text = strings.TrimSpace(text)
	if category == "" || text == "" {
		return cycle.Recommendation{}, false
	}
	return cycle.Recommendation{Category: category, Text: text}, true
}

// ParseResponse turns a completion into a result. It never fails: missing or
// unreadable sections fall back to a negative verdict and the default
// recommendations.
func ParseResponse(text string) cycle.RecommendationResult {
	result := cycle.RecommendationResult{}

	// 1. Risk analysis
	if m := healthBlockRe.FindStringSubmatch(text); m != nil {
		block := m[1]
		result.HealthConcerns = yesFlag(healthConcernsRe, block)
		result.NeedsSTITesting = yesFlag(stiTestingRe, block)
		result.HealthIssueDescription = description(block)
	}

	// 2. Recommendations, falling back to the whole text
	section := text
	if m := recsBlockRe.FindStringSubmatch(text); m != nil {
		section = m[1]
	}

	for _, rec := range ParseRecommendations(section) {
		result.Recommendations = append(result.Recommendations, rec.String())
	}

	if len(result.Recommendations) == 0 {
		result.Recommendations = cycle.DefaultRecommendations()
	}

	return result
}

// ParseRecommendations returns up to cycle.MaxRecommendations pairs in
// encounter order. Each line is offered to LineMatchers in order; the first
// match wins and unmatched lines are skipped.
func ParseRecommendations(section string) []cycle.Recommendation {
	section = strings.ReplaceAll(section, "**", "")

	var recs []cycle.Recommendation
	for _, raw := range strings.Split(section, "\n") {
		if len(recs) >= cycle.MaxRecommendations {
			break
		}

		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		for _, m := range LineMatchers {
			if m.GenericOnly && len(recs) >= cycle.MaxRecommendations {
				continue
			}
			if rec, ok := m.Match(line); ok {
				recs = append(recs, rec)
				break
			}
		}
	}

	return recs
}

func yesFlag(re *regexp.Regexp, block string) bool {
	m := re.FindStringSubmatch(block)
	return m != nil && strings.EqualFold(m[1], "YES")
}

func description(block string) string {
	m := descriptionRe.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	desc := strings.TrimSpace(strings.ReplaceAll(m[1], "**", ""))
	desc = strings.Trim(desc, `"`)

	// Models often decorate the placeholder: "None detected.", "None".
	placeholder := strings.TrimRight(desc, ". ")
	if strings.EqualFold(placeholder, NoneDetected) || strings.EqualFold(placeholder, "none") {
		return ""
	}
	return desc
}
