package detection

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tahseel-service/internal/domain/customer"
	"tahseel-service/internal/domain/invoice"
	"tahseel-service/internal/domain/sequence"
)

func mkSequence(id int64, name string, stepsJSON string) sequence.FollowUpSequence {
	return sequence.FollowUpSequence{
		ID: id, CompanyID: 1, Name: name, Active: true,
		StepsJSON: json.RawMessage(stepsJSON),
	}
}

const gentleTwoStep = `[
	{"step_number": 1, "delay_days": 0, "subject": {"en": "s"}, "content": {"en": "c"}, "escalation": "GENTLE"},
	{"step_number": 2, "delay_days": 7, "subject": {"en": "s"}, "content": {"en": "c"}, "escalation": "REMINDER"}
]`

const urgentThreeStep = `[
	{"step_number": 1, "delay_days": 0, "subject": {"en": "s"}, "content": {"en": "c"}, "escalation": "REMINDER"},
	{"step_number": 2, "delay_days": 5, "subject": {"en": "s"}, "content": {"en": "c"}, "escalation": "URGENT"},
	{"step_number": 3, "delay_days": 10, "subject": {"en": "s"}, "content": {"en": "c"}, "escalation": "FINAL"}
]`

const arabicGentle = `[
	{"step_number": 1, "delay_days": 0, "subject": {"en": "s", "ar": "م"}, "content": {"en": "c", "ar": "م"}, "escalation": "GENTLE"}
]`

func TestSelectSequence_EmptyAndSingle(t *testing.T) {
	inv := &invoice.Invoice{Amount: 500}

	assert.Nil(t, SelectSequence(inv, nil, 5, nil))

	only := []sequence.FollowUpSequence{mkSequence(1, "only", gentleTwoStep)}
	got := SelectSequence(inv, nil, 5, only)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID)
}

func TestSelectSequence_EscalationBracket(t *testing.T) {
	candidates := []sequence.FollowUpSequence{
		mkSequence(1, "gentle", gentleTwoStep),
		mkSequence(2, "aggressive", urgentThreeStep),
	}
	inv := &invoice.Invoice{Amount: 5000}

	// Freshly overdue: the gentle opener fits.
	got := SelectSequence(inv, nil, 5, candidates)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID)

	// Two weeks overdue: the REMINDER opener fits.
	got = SelectSequence(inv, nil, 14, candidates)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID)
}

func TestSelectSequence_HighValuePrefersUrgentPath(t *testing.T) {
	candidates := []sequence.FollowUpSequence{
		mkSequence(1, "gentle", gentleTwoStep),
		mkSequence(2, "aggressive", urgentThreeStep),
	}
	inv := &invoice.Invoice{Amount: 50000}

	// 40 days overdue: URGENT bracket plus the high-value bonus.
	got := SelectSequence(inv, nil, 40, candidates)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID)
}

func TestSelectSequence_LanguagePreferenceBreaksTies(t *testing.T) {
	candidates := []sequence.FollowUpSequence{
		mkSequence(1, "english", gentleTwoStep),
		mkSequence(2, "bilingual", arabicGentle),
	}
	inv := &invoice.Invoice{Amount: 5000}
	cust := &customer.Customer{PreferredLanguage: "ar", RiskLevel: customer.RiskMedium}

	got := SelectSequence(inv, cust, 5, candidates)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID)
}

func TestSelectSequence_InvalidCandidateExcluded(t *testing.T) {
	candidates := []sequence.FollowUpSequence{
		mkSequence(1, "broken", `[{`),
		mkSequence(2, "valid", gentleTwoStep),
	}
	inv := &invoice.Invoice{Amount: 5000}

	got := SelectSequence(inv, nil, 5, candidates)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID)
}

func TestSelectSequence_FallbackToFirst(t *testing.T) {
	// Nothing scores: mid-value invoice, no customer, wrong brackets.
	candidates := []sequence.FollowUpSequence{
		mkSequence(1, "a", urgentThreeStep),
		mkSequence(2, "b", urgentThreeStep),
	}
	inv := &invoice.Invoice{Amount: 5000}

	got := SelectSequence(inv, nil, 5, candidates)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID)
}

func TestEscalationBracket(t *testing.T) {
	tests := []struct {
		days int
		want sequence.EscalationLevel
	}{
		{0, sequence.EscalationGentle},
		{7, sequence.EscalationGentle},
		{8, sequence.EscalationReminder},
		{30, sequence.EscalationReminder},
		{31, sequence.EscalationUrgent},
		{120, sequence.EscalationUrgent},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d days", tt.days), func(t *testing.T) {
			assert.Equal(t, tt.want, escalationBracket(tt.days))
		})
	}
}
