// internal/service/detection/selector.go
package detection

import (
	"tahseel-service/internal/domain/customer"
	"tahseel-service/internal/domain/invoice"
	"tahseel-service/internal/domain/sequence"
)

// Scoring thresholds in AED.
const (
	highValueThreshold = 10000
	lowValueThreshold  = 1000
)

// SelectSequence picks the best candidate sequence for an invoice. With a
// single candidate it is returned as-is. Otherwise each candidate is
// scored on escalation fit, amount fit, customer risk and language;
// candidates whose step data fails to parse are excluded. The highest
// scorer above zero wins; if nothing qualifies, the first candidate is the
// fallback, so a non-empty candidate list never yields nil.
func SelectSequence(inv *invoice.Invoice, cust *customer.Customer, daysOverdue int, candidates []sequence.FollowUpSequence) *sequence.FollowUpSequence {
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) == 1 {
		return &candidates[0]
	}

	best := -1
	bestScore := 0
	for i := range candidates {
		score, ok := scoreSequence(inv, cust, daysOverdue, &candidates[i])
		if !ok {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = i
		}
	}

	if best >= 0 && bestScore > 0 {
		return &candidates[best]
	}
	return &candidates[0]
}

func scoreSequence(inv *invoice.Invoice, cust *customer.Customer, daysOverdue int, seq *sequence.FollowUpSequence) (int, bool) {
	steps, err := seq.ParseSteps()
	if err != nil {
		return -1, false
	}

	score := 0

	if steps[0].Escalation == escalationBracket(daysOverdue) {
		score += 10
	}

	if inv.Amount > highValueThreshold && hasEscalation(steps, sequence.EscalationUrgent) {
		score += 5
	}
	if inv.Amount <= lowValueThreshold && !hasEscalation(steps, sequence.EscalationFinal) {
		score += 5
	}

	if cust != nil {
		if (cust.RiskLevel == customer.RiskHigh && len(steps) > 2) ||
			(cust.RiskLevel == customer.RiskLow && len(steps) <= 2) {
			score += 5
		}
		if cust.PreferredLanguage != "" {
			for _, st := range steps {
				if st.HasLanguage(cust.PreferredLanguage) {
					score += 3
					break
				}
			}
		}
	}

	return score, true
}

// escalationBracket maps days overdue to the expected opening tone.
func escalationBracket(daysOverdue int) sequence.EscalationLevel {
	switch {
	case daysOverdue <= 7:
		return sequence.EscalationGentle
	case daysOverdue <= 30:
		return sequence.EscalationReminder
	default:
		return sequence.EscalationUrgent
	}
}

func hasEscalation(steps []sequence.Step, level sequence.EscalationLevel) bool {
	for _, st := range steps {
		if st.Escalation == level {
			return true
		}
	}
	return false
}
