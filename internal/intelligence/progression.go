package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/trialsync/trialsync/internal/domain/patient"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
)

const progressionSystemPrompt = `You are a medical expert analyzing patient data to predict potential disease progressions and complications.`

const progressionTaskTemplate = `PATIENT INFORMATION:
- Age: %s
- Gender: %s
- Current Diagnosed Conditions: %s
- Current Medications: %s
- Condition Summary: %s

TASK:
Based on this patient's current health status, predict 3-7 potential future disease progressions, complications, or related conditions they may develop. Consider:
1. Natural disease progression patterns
2. Common comorbidities and complications
3. Medication side effects or related conditions
4. Age and gender-specific risk factors

REQUIREMENTS:
- Return ONLY medical condition names that could be used to search clinical trials
- Be specific (e.g., "Type 2 Diabetes Nephropathy" not just "Kidney Disease")
- Focus on conditions with active clinical trial research
- DO NOT include the current diagnosed conditions
- Return between 3-7 conditions

CRITICAL: Return ONLY a valid JSON array of strings. No markdown, no code blocks, no explanations. Just the raw JSON array.

Example: ["Diabetic Retinopathy", "Cardiovascular Disease", "Chronic Kidney Disease"]

Your response must start with [ and end with ].`

// ProgressionPredictor asks the oracle which conditions a patient is at risk
// of developing, for matching against trials they may become eligible for.
type ProgressionPredictor struct {
	chat   ChatClient
	logger logging.Logger
}

// NewProgressionPredictor builds a ProgressionPredictor over any chat client.
func NewProgressionPredictor(chat ChatClient, logger logging.Logger) *ProgressionPredictor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ProgressionPredictor{chat: chat, logger: logger.Named("progression")}
}

// PredictConditions returns the oracle's predicted conditions.  Failures and
// malformed output degrade to an empty list; prediction is advisory and must
// never block the matching pipeline.
func (p *ProgressionPredictor) PredictConditions(ctx context.Context, profile *patient.Profile) []string {
	raw, err := p.chat.Complete(ctx, progressionSystemPrompt, progressionPrompt(profile))
	if err != nil {
		p.logger.Error("progression prediction failed", logging.Err(err))
		return nil
	}

	conditions := parseConditionList(raw)
	if conditions == nil {
		p.logger.Error("oracle output was not a condition list",
			logging.String("output", truncate(raw, 200)))
		return nil
	}

	p.logger.Info("predicted future conditions", logging.Int("count", len(conditions)))
	return conditions
}

func progressionPrompt(profile *patient.Profile) string {
	age := "unknown"
	if profile.Age != nil {
		age = fmt.Sprintf("%d", *profile.Age)
	}
	return fmt.Sprintf(progressionTaskTemplate,
		age,
		orPlaceholder(profile.Gender, "unknown"),
		orPlaceholder(strings.Join(profile.DiagnosedConditions, ", "), "None listed"),
		orPlaceholder(strings.Join(profile.CurrentMedications, ", "), "None listed"),
		orPlaceholder(profile.ConditionSummary, "None provided"),
	)
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}

var (
	fencedArrayPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")
	bareArrayPattern   = regexp.MustCompile(`(?s)(\[.*?\])`)
)

// parseConditionList decodes a JSON string array from oracle text,
// tolerating markdown code fences.  Returns nil when no valid array is
// present.
func parseConditionList(raw string) []string {
	raw = strings.TrimSpace(raw)

	text := raw
	if m := fencedArrayPattern.FindStringSubmatch(raw); m != nil {
		text = m[1]
	} else if m := bareArrayPattern.FindStringSubmatch(raw); m != nil {
		text = m[1]
	}

	var conditions []string
	if err := json.Unmarshal([]byte(text), &conditions); err != nil {
		return nil
	}
	return conditions
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
