// internal/service/compliance/gate.go
package compliance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tahseel-service/internal/domain/customer"
	"tahseel-service/internal/domain/invoice"
	"tahseel-service/internal/domain/sequence"
	"tahseel-service/internal/service/workhours"
)

const (
	ramadanGraceDays    = 3
	governmentGraceDays = 7
	paymentLookback     = 7 * 24 * time.Hour
	overrideLookback    = 30 * 24 * time.Hour
)

// PaymentReader reports payment activity against a single invoice.
type PaymentReader interface {
	FindRecentPayments(ctx context.Context, invoiceID int64, since time.Time) ([]invoice.Payment, error)
}

// OverrideReader reports manual follow-up override flags from the audit
// trail.
type OverrideReader interface {
	HasOverrideFlag(ctx context.Context, companyID, invoiceID int64, since time.Time) (bool, error)
}

// Decision is the gate verdict. A block is a policy decision, not an
// error; Reason is always human-readable.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Gate applies the ordered cultural and business exception rules that can
// withhold a follow-up trigger. Ordering is a policy choice: seasonal and
// cultural exceptions first, then business-classification grace, then
// recent-activity signals.
type Gate struct {
	payments  PaymentReader
	overrides OverrideReader
	calendar  workhours.CalendarProvider
	logger    *zap.Logger
	now       func() time.Time
}

func NewGate(payments PaymentReader, overrides OverrideReader, calendar workhours.CalendarProvider, logger *zap.Logger) *Gate {
	if calendar == nil {
		calendar = workhours.NewApproximateCalendar()
	}
	return &Gate{
		payments:  payments,
		overrides: overrides,
		calendar:  calendar,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the gate's clock; used by tests.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// CheckCompliance runs the checks in order; the first failure wins.
func (g *Gate) CheckCompliance(ctx context.Context, inv *invoice.Invoice, cust *customer.Customer, seq *sequence.FollowUpSequence, daysOverdue int) (Decision, error) {
	now := g.now()

	if g.inRamadan(now) && daysOverdue < ramadanGraceDays {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("Ramadan period: extending grace period until %d days overdue", ramadanGraceDays),
		}, nil
	}

	if cust != nil && cust.BusinessType.IsGovernment() && daysOverdue < governmentGraceDays {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("government customer: grace period until %d days overdue", governmentGraceDays),
		}, nil
	}

	payments, err := g.payments.FindRecentPayments(ctx, inv.ID, now.Add(-paymentLookback))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check recent payments: %w", err)
	}
	if len(payments) > 0 {
		return Decision{
			Allowed: false,
			Reason:  "recent payment activity within the last 7 days",
		}, nil
	}

	flagged, err := g.overrides.HasOverrideFlag(ctx, inv.CompanyID, inv.ID, now.Add(-overrideLookback))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check override flag: %w", err)
	}
	if flagged {
		return Decision{
			Allowed: false,
			Reason:  "manual follow-up override within the last 30 days",
		}, nil
	}

	return Decision{Allowed: true}, nil
}

func (g *Gate) inRamadan(now time.Time) bool {
	for _, year := range []int{now.Year(), now.Year() - 1} {
		start, end, ok := g.calendar.RamadanPeriod(year)
		if !ok {
			continue
		}
		y, m, d := now.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		ys, ms, ds := start.Date()
		ye, me, de := end.Date()
		s := time.Date(ys, ms, ds, 0, 0, 0, 0, time.UTC)
		e := time.Date(ye, me, de, 0, 0, 0, 0, time.UTC)
		if !day.Before(s) && !day.After(e) {
			return true
		}
	}
	return false
}
