// internal/domain/sequence/entity.go
package sequence

import (
	"encoding/json"
	"fmt"
	"time"

	xerrors "tahseel-service/internal/pkg/errors"
)

// EscalationLevel is the ordinal tone of a follow-up step.
type EscalationLevel string

const (
	EscalationGentle   EscalationLevel = "GENTLE"
	EscalationReminder EscalationLevel = "REMINDER"
	EscalationUrgent   EscalationLevel = "URGENT"
	EscalationFinal    EscalationLevel = "FINAL"
)

// Rank orders escalation levels: GENTLE < REMINDER < URGENT < FINAL.
func (e EscalationLevel) Rank() int {
	switch e {
	case EscalationGentle:
		return 0
	case EscalationReminder:
		return 1
	case EscalationUrgent:
		return 2
	case EscalationFinal:
		return 3
	}
	return -1
}

func (e EscalationLevel) IsValid() bool {
	return e.Rank() >= 0
}

// StopConditionType is a closed set of conditions that halt a sequence.
type StopConditionType string

const (
	StopOnPaymentReceived StopConditionType = "payment_received"
	StopOnDisputeOpened   StopConditionType = "dispute_opened"
	StopOnStatusChange    StopConditionType = "status_change"
)

func (t StopConditionType) IsValid() bool {
	switch t {
	case StopOnPaymentReceived, StopOnDisputeOpened, StopOnStatusChange:
		return true
	}
	return false
}

// StopCondition halts further steps when its condition holds.
type StopCondition struct {
	Type  StopConditionType `json:"type"`
	Value string            `json:"value,omitempty"`
}

// Step is a single escalation in a follow-up sequence. Subject and Content
// are keyed by language code ("en", "ar").
type Step struct {
	StepNumber     int               `json:"step_number"`
	DelayDays      int               `json:"delay_days"`
	Subject        map[string]string `json:"subject"`
	Content        map[string]string `json:"content"`
	Escalation     EscalationLevel   `json:"escalation"`
	StopConditions []StopCondition   `json:"stop_conditions,omitempty"`
}

// SubjectFor returns the step subject in the given language, falling back
// to English.
func (s *Step) SubjectFor(lang string) string {
	if v, ok := s.Subject[lang]; ok && v != "" {
		return v
	}
	return s.Subject["en"]
}

// ContentFor returns the step content in the given language, falling back
// to English.
func (s *Step) ContentFor(lang string) string {
	if v, ok := s.Content[lang]; ok && v != "" {
		return v
	}
	return s.Content["en"]
}

// HasLanguage reports whether any step text exists in the given language.
func (s *Step) HasLanguage(lang string) bool {
	_, subj := s.Subject[lang]
	_, cont := s.Content[lang]
	return subj || cont
}

// FollowUpSequence is an ordered escalation plan authored per company.
// Steps are stored as a JSON column and only ever consumed through
// ParseSteps, which is the validation boundary.
type FollowUpSequence struct {
	ID        int64           `json:"id" db:"id"`
	CompanyID int64           `json:"company_id" db:"company_id"`
	Name      string          `json:"name" db:"name"`
	Active    bool            `json:"active" db:"active"`
	StepsJSON json.RawMessage `json:"steps" db:"steps"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ParseSteps decodes and validates the step list. Invariants: at least one
// step, strictly increasing step numbers, non-decreasing escalation, a
// non-negative delay on every step. A violation is a typed ValidationError,
// never a silent skip.
func (q *FollowUpSequence) ParseSteps() ([]Step, error) {
	if len(q.StepsJSON) == 0 {
		return nil, xerrors.NewValidation("steps", "sequence has no steps")
	}

	var steps []Step
	if err := json.Unmarshal(q.StepsJSON, &steps); err != nil {
		return nil, xerrors.NewValidation("steps", fmt.Sprintf("malformed step data: %v", err))
	}
	if len(steps) == 0 {
		return nil, xerrors.NewValidation("steps", "sequence has no steps")
	}

	prevNumber := 0
	prevRank := -1
	for i, st := range steps {
		if st.StepNumber <= prevNumber {
			return nil, xerrors.NewValidation("steps",
				fmt.Sprintf("step %d: step numbers must be strictly increasing", i+1))
		}
		if st.DelayDays < 0 {
			return nil, xerrors.NewValidation("steps",
				fmt.Sprintf("step %d: delay days must not be negative", st.StepNumber))
		}
		if !st.Escalation.IsValid() {
			return nil, xerrors.NewValidation("steps",
				fmt.Sprintf("step %d: unknown escalation level %q", st.StepNumber, st.Escalation))
		}
		if st.Escalation.Rank() < prevRank {
			return nil, xerrors.NewValidation("steps",
				fmt.Sprintf("step %d: escalation level must not decrease", st.StepNumber))
		}
		for _, sc := range st.StopConditions {
			if !sc.Type.IsValid() {
				return nil, xerrors.NewValidation("steps",
					fmt.Sprintf("step %d: unknown stop condition %q", st.StepNumber, sc.Type))
			}
		}
		prevNumber = st.StepNumber
		prevRank = st.Escalation.Rank()
	}

	return steps, nil
}
