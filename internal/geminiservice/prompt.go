package geminiservice

import (
	"fmt"
	"strings"

	"Cyclepulse/internal/cycle"
)

/* =================================================================================
						PROMPT ENGINEERING & GUARDRAILS
=================================================================================*/

// Delimiters of the two sections the model is asked to produce.
const (
	HealthAnalysisStart  = "HEALTH_ANALYSIS_START"
	HealthAnalysisEnd    = "HEALTH_ANALYSIS_END"
	RecommendationsStart = "RECOMMENDATIONS_START"
	RecommendationsEnd   = "RECOMMENDATIONS_END"

	// NoneDetected is the placeholder the model writes when it has no issue to describe.
	NoneDetected = "None detected"
)

/*
PromptTemplate is the full instruction sent to Gemini. It is filled with
fmt.Sprintf: cycle history, recent symptoms, then the delimiters and labels the
response parser relies on.
*/
const PromptTemplate = `You are a women's health assistant specializing in menstrual health.
Your tone is supportive, clear and non-alarming. You never diagnose; you point out
patterns worth discussing with a doctor.

=== CYCLE HISTORY ===
%s

=== RECENT SYMPTOMS ===
%s

TASK:
1. Analyze the cycle history and symptoms for possible health risks, including signs
   of a sexually transmitted infection.
2. Give at most %d personalized recommendations. Each one has a short category
   (for example Nutrition, Exercise, Tracking, Medical Care) and one or two sentences of advice.

WHAT COUNTS AS CONCERNING:
- Cycle lengths shorter than 21 days or longer than 35 days.
- Periods lasting longer than 7 days, or heavy bleeding.
- Severe pain, severe cramps or fever.
- Unusual discharge, burning, itching, odor, pain during urination, pelvic pain,
  bleeding between periods or irregular bleeding. These suggest STI testing.

RESPONSE FORMAT (follow exactly, no extra sections, no preamble):
%s
HEALTH_CONCERNS: YES or NO
STI_TESTING_NEEDED: YES or NO
HEALTH_ISSUE_DESCRIPTION: one sentence describing the concern, or "%s"
%s

%s
1. [Category]: recommendation text
2. [Category]: recommendation text
3. [Category]: recommendation text
4. [Category]: recommendation text
%s`

// BuildPrompt renders a request into the instruction string sent to Gemini.
func BuildPrompt(req cycle.RecommendationRequest) string {
	return fmt.Sprintf(
		PromptTemplate,
		FormatCyclesForAI(req.Cycles),
		FormatSymptomsForAI(req.RecentSymptoms),
		cycle.MaxRecommendations,
		HealthAnalysisStart,
		NoneDetected,
		HealthAnalysisEnd,
		RecommendationsStart,
		RecommendationsEnd,
	)
}

// FormatCyclesForAI lists each cycle on its own numbered entry.
func FormatCyclesForAI(cycles []cycle.CycleSummary) string {
	if len(cycles) == 0 {
		return "(No cycles recorded)"
	}

	var builder strings.Builder
	for i, c := range cycles {
		builder.WriteString(fmt.Sprintf(
			"%d. Start date: %s | Cycle length: %d days | Period duration: %d days\n",
			i+1,
			c.StartDate.Format("2006-01-02"),
			c.CycleLength,
			c.PeriodDuration,
		))
		if len(c.Symptoms) > 0 {
			builder.WriteString(fmt.Sprintf("   Symptoms: %s\n", strings.Join(c.Symptoms, ", ")))
		}
	}

	return strings.TrimRight(builder.String(), "\n")
}

// FormatSymptomsForAI renders the recent symptom list, or "None reported".
func FormatSymptomsForAI(symptoms []string) string {
	if len(symptoms) == 0 {
		return "None reported"
	}
	return strings.Join(symptoms, ", ")
}
