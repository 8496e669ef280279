// Package questions surfaces clarification questions for
// low-confidence or unanswered signals and folds user answers back
// into a DerivedIntent.
package questions

import "github.com/migrationcopilot/architecture-agent/internal/intent"

// Option is one selectable answer for a ClarificationQuestion.
type Option struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// ClarificationQuestion is a single answerable clarification.
type ClarificationQuestion struct {
	ID                  string            `json:"id"`
	Dimension           string            `json:"dimension"`
	QuestionText        string            `json:"question_text"`
	Options             []Option          `json:"options"`
	Required            bool              `json:"required"`
	AffectsEligibility  bool              `json:"affects_eligibility"`
	CurrentInference    string            `json:"current_inference,omitempty"`
	InferenceConfidence intent.Confidence `json:"inference_confidence"`
}
