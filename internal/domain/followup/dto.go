// internal/domain/followup/dto.go
package followup

import "tahseel-service/internal/domain/invoice"

// DetectionConditions are the trigger filters for an eligibility scan.
type DetectionConditions struct {
	MinDaysOverdue int              `json:"min_days_overdue" binding:"min=0"`
	MaxDaysOverdue *int             `json:"max_days_overdue,omitempty" binding:"omitempty,min=0"`
	MinAmount      *float64         `json:"min_amount,omitempty" binding:"omitempty,min=0"`
	MaxAmount      *float64         `json:"max_amount,omitempty" binding:"omitempty,min=0"`
	Statuses       []invoice.Status `json:"statuses,omitempty"`

	// Waivers are opt-in: the zero value keeps weekend, holiday and prayer
	// gating active.
	AllowWeekends     bool `json:"allow_weekends"`
	AllowHolidays     bool `json:"allow_holidays"`
	IgnorePrayerTimes bool `json:"ignore_prayer_times"`
}

// DefaultStatuses is the accepted status set when none is supplied.
func (c *DetectionConditions) DefaultStatuses() []invoice.Status {
	if len(c.Statuses) > 0 {
		return c.Statuses
	}
	return []invoice.Status{invoice.StatusSent, invoice.StatusOverdue}
}

// DetectionMetrics buckets the scanned invoices for observability.
type DetectionMetrics struct {
	ByCompany     map[int64]int  `json:"by_company"`
	ByAmountRange map[string]int `json:"by_amount_range"`
	ByOverdueRange map[string]int `json:"by_overdue_range"`
	BySegment     map[string]int `json:"by_segment"`
}

func NewDetectionMetrics() DetectionMetrics {
	return DetectionMetrics{
		ByCompany:      map[int64]int{},
		ByAmountRange:  map[string]int{},
		ByOverdueRange: map[string]int{},
		BySegment:      map[string]int{},
	}
}

// SkippedInvoice records why an eligible invoice was not triggered.
type SkippedInvoice struct {
	InvoiceID int64  `json:"invoice_id"`
	Reason    string `json:"reason"`
}

// DetectionResult aggregates one scan. Invariant:
// Eligible == Triggered + Skipped count.
type DetectionResult struct {
	Eligible  int              `json:"eligible_invoices"`
	Triggered int              `json:"triggered_sequences"`
	Skipped   []SkippedInvoice `json:"skipped_invoices"`
	Errors    []string         `json:"errors,omitempty"`
	Metrics   DetectionMetrics `json:"metrics"`
}
