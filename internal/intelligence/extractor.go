package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/trialsync/trialsync/internal/domain/patient"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
)

const extractorSystemPrompt = `You extract patient data from a noisy voice transcript.
Rules:
- Convert spoken numbers to digits (e.g., 'six six nine two five five three nine eight four' -> '6692553984').
- Convert emails like 'smith family at gmail dot com' -> 'smithfamily@gmail.com' (remove spaces in local part).
- Normalize phone numbers to digits only; if you can derive a US number, format as +1XXXXXXXXXX; otherwise raw digits.
- Interpret month/day/year spoken as words (e.g., 'July' + 'twenty first' + 'two thousand five' -> '2005-07-21').
- If a field is clearly wrong (DOB in the future, age >120, etc.), set it to null.
- Only infer from what is said in the conversation; do not invent.
- Respond with ONLY a JSON object containing exactly these keys:
  first_name, last_name, date_of_birth, gender, age, contact_email,
  phone_number, location, diagnosed_conditions, current_medications,
  condition_summary.
  Unknown scalar fields are null; unknown arrays are [].`

// TranscriptTurn is one utterance of a recorded conversation.
type TranscriptTurn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// extractedRecord mirrors the JSON object the oracle is instructed to emit.
type extractedRecord struct {
	FirstName           *string  `json:"first_name"`
	LastName            *string  `json:"last_name"`
	DateOfBirth         *string  `json:"date_of_birth"`
	Gender              *string  `json:"gender"`
	Age                 *int     `json:"age"`
	ContactEmail        *string  `json:"contact_email"`
	PhoneNumber         *string  `json:"phone_number"`
	Location            *string  `json:"location"`
	DiagnosedConditions []string `json:"diagnosed_conditions"`
	CurrentMedications  []string `json:"current_medications"`
	ConditionSummary    *string  `json:"condition_summary"`
}

// ProfileExtractor turns conversation transcripts into validated patient
// profiles.
type ProfileExtractor struct {
	chat   ChatClient
	logger logging.Logger
}

// NewProfileExtractor builds a ProfileExtractor over any chat client.
func NewProfileExtractor(chat ChatClient, logger logging.Logger) *ProfileExtractor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ProfileExtractor{chat: chat, logger: logger.Named("extractor")}
}

// Extract parses one transcript.  It never fails hard: any oracle failure or
// malformed output degrades to an empty profile graded low confidence, so a
// bad extraction can enter the review queue instead of dropping the call.
func (e *ProfileExtractor) Extract(ctx context.Context, turns []TranscriptTurn) *patient.Profile {
	if len(turns) == 0 {
		e.logger.Warn("empty transcript, nothing to extract")
		return emptyProfile()
	}

	raw, err := e.chat.Complete(ctx, extractorSystemPrompt, formatConversation(turns))
	if err != nil {
		e.logger.Error("profile extraction failed", logging.Err(err))
		return emptyProfile()
	}

	var rec extractedRecord
	if err := json.Unmarshal(extractJSONObject(raw), &rec); err != nil {
		e.logger.Error("oracle output was not a patient record", logging.Err(err))
		return emptyProfile()
	}

	return e.validate(rec)
}

// validate cleans the oracle's record and grades extraction confidence by
// how many of the eleven fields came back filled.
func (e *ProfileExtractor) validate(rec extractedRecord) *patient.Profile {
	p := &patient.Profile{
		FirstName:           deref(rec.FirstName),
		LastName:            deref(rec.LastName),
		DateOfBirth:         deref(rec.DateOfBirth),
		Gender:              deref(rec.Gender),
		Age:                 rec.Age,
		ContactEmail:        deref(rec.ContactEmail),
		PhoneNumber:         deref(rec.PhoneNumber),
		Location:            deref(rec.Location),
		ConditionSummary:    deref(rec.ConditionSummary),
		DiagnosedConditions: rec.DiagnosedConditions,
		CurrentMedications:  rec.CurrentMedications,
	}
	if p.DiagnosedConditions == nil {
		p.DiagnosedConditions = []string{}
	}
	if p.CurrentMedications == nil {
		p.CurrentMedications = []string{}
	}

	if p.Age != nil && (*p.Age < 0 || *p.Age > 120) {
		e.logger.Warn("age out of reasonable range", logging.Int("age", *p.Age))
		p.Age = nil
	}

	if p.ContactEmail != "" && !emailPlausible(p.ContactEmail) {
		e.logger.Warn("implausible email extracted", logging.String("email", p.ContactEmail))
	}

	if p.DateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", p.DateOfBirth); err != nil {
			e.logger.Warn("date of birth not in YYYY-MM-DD form",
				logging.String("date_of_birth", p.DateOfBirth))
		}
	}

	p.ExtractionConfidence = gradeConfidence(p)
	return p
}

func gradeConfidence(p *patient.Profile) patient.Confidence {
	filled := 0
	for _, s := range []string{
		p.FirstName, p.LastName, p.DateOfBirth, p.Gender,
		p.ContactEmail, p.PhoneNumber, p.Location, p.ConditionSummary,
	} {
		if s != "" {
			filled++
		}
	}
	if p.Age != nil {
		filled++
	}
	if len(p.DiagnosedConditions) > 0 {
		filled++
	}
	if len(p.CurrentMedications) > 0 {
		filled++
	}

	switch {
	case filled >= 8:
		return patient.ConfidenceHigh
	case filled >= 5:
		return patient.ConfidenceMedium
	default:
		return patient.ConfidenceLow
	}
}

func emptyProfile() *patient.Profile {
	return &patient.Profile{
		DiagnosedConditions:  []string{},
		CurrentMedications:   []string{},
		ExtractionConfidence: patient.ConfidenceLow,
	}
}

func formatConversation(turns []TranscriptTurn) string {
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		role := strings.ToUpper(turn.Role)
		if role == "" {
			role = "UNKNOWN"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", turn.Timestamp, role, turn.Content))
	}
	return strings.Join(lines, "\n")
}

func emailPlausible(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 1 {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}

var (
	fencedObjectPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	bareObjectPattern   = regexp.MustCompile(`(?s)(\{.*\})`)
)

// extractJSONObject pulls the first JSON object out of oracle text,
// tolerating markdown code fences around it.
func extractJSONObject(raw string) []byte {
	raw = strings.TrimSpace(raw)
	if m := fencedObjectPattern.FindStringSubmatch(raw); m != nil {
		return []byte(m[1])
	}
	if m := bareObjectPattern.FindStringSubmatch(raw); m != nil {
		return []byte(m[1])
	}
	return []byte(raw)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
