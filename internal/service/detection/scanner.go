// internal/service/detection/scanner.go
package detection

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tahseel-service/internal/domain/customer"
	"tahseel-service/internal/domain/followup"
	"tahseel-service/internal/domain/invoice"
	"tahseel-service/internal/domain/sequence"
	dworkhours "tahseel-service/internal/domain/workhours"
	"tahseel-service/internal/pkg/tenant"
	"tahseel-service/internal/service/compliance"
	"tahseel-service/internal/service/template"
	"tahseel-service/internal/service/workhours"
)

// EligibilityFilter is the invoice query the scanner issues. DueBefore is
// exclusive; DueAfter (optional) is inclusive. The repository must exclude
// invoices with an in-flight follow-up log and order results by due date
// ascending, amount descending.
type EligibilityFilter struct {
	Statuses  []invoice.Status
	DueBefore time.Time
	DueAfter  *time.Time
	MinAmount *float64
	MaxAmount *float64
}

type InvoiceReader interface {
	FindEligible(ctx context.Context, companyID int64, f EligibilityFilter) ([]invoice.Invoice, error)
}

type CustomerReader interface {
	FindByID(ctx context.Context, companyID, id int64) (*customer.Customer, error)
}

type SequenceReader interface {
	FindActive(ctx context.Context, companyID int64) ([]sequence.FollowUpSequence, error)
}

type FollowUpWriter interface {
	CreateLog(ctx context.Context, log *followup.Log) error
}

type AuditWriter interface {
	CreateEntry(ctx context.Context, entry *followup.AuditEntry) error
}

// ComplianceGate decides whether a trigger may proceed.
type ComplianceGate interface {
	CheckCompliance(ctx context.Context, inv *invoice.Invoice, cust *customer.Customer, seq *sequence.FollowUpSequence, daysOverdue int) (compliance.Decision, error)
}

// ConfigProvider supplies the business-hours configuration per company.
type ConfigProvider interface {
	ForCompany(ctx context.Context, companyID int64) (*dworkhours.Config, error)
}

// Scanner finds invoices due for escalation and enqueues one follow-up per
// eligible invoice. One invoice's failure never aborts the scan.
type Scanner struct {
	invoices  InvoiceReader
	customers CustomerReader
	sequences SequenceReader
	followUps FollowUpWriter
	audit     AuditWriter
	gate      ComplianceGate
	configs   ConfigProvider
	resolver  *workhours.Resolver
	templates *template.Resolver
	logger    *zap.Logger
	now       func() time.Time
}

func NewScanner(
	invoices InvoiceReader,
	customers CustomerReader,
	sequences SequenceReader,
	followUps FollowUpWriter,
	audit AuditWriter,
	gate ComplianceGate,
	configs ConfigProvider,
	resolver *workhours.Resolver,
	templates *template.Resolver,
	logger *zap.Logger,
) *Scanner {
	return &Scanner{
		invoices:  invoices,
		customers: customers,
		sequences: sequences,
		followUps: followUps,
		audit:     audit,
		gate:      gate,
		configs:   configs,
		resolver:  resolver,
		templates: templates,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the scanner's clock; used by tests.
func (s *Scanner) WithClock(now func() time.Time) *Scanner {
	s.now = now
	return s
}

// DetectAndTrigger runs one eligibility scan for the acting company.
// Invariant on the result: Eligible == Triggered + len(Skipped).
func (s *Scanner) DetectAndTrigger(ctx context.Context, tn tenant.Context, cond followup.DetectionConditions) (*followup.DetectionResult, error) {
	now := s.now()

	filter := EligibilityFilter{
		Statuses:  cond.DefaultStatuses(),
		DueBefore: now.AddDate(0, 0, -cond.MinDaysOverdue),
		MinAmount: cond.MinAmount,
		MaxAmount: cond.MaxAmount,
	}
	if cond.MaxDaysOverdue != nil {
		after := now.AddDate(0, 0, -*cond.MaxDaysOverdue)
		filter.DueAfter = &after
	}

	invoices, err := s.invoices.FindEligible(ctx, tn.CompanyID, filter)
	if err != nil {
		return nil, fmt.Errorf("eligibility query failed: %w", err)
	}

	cfg, err := s.configs.ForCompany(ctx, tn.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load business hours: %w", err)
	}

	opts := workhours.CheckOptions{
		AllowWeekends:    cond.AllowWeekends,
		AllowHolidays:    cond.AllowHolidays,
		IgnorePrayerTime: cond.IgnorePrayerTimes,
	}

	result := &followup.DetectionResult{
		Eligible: len(invoices),
		Metrics:  followup.NewDetectionMetrics(),
	}

	for i := range invoices {
		inv := &invoices[i]
		cust := s.lookupCustomer(ctx, tn.CompanyID, inv)
		triggered, skipReason, procErr := s.processInvoice(ctx, tn, cfg, opts, inv, cust, now)
		if procErr != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("invoice %d: %v", inv.ID, procErr))
			result.Skipped = append(result.Skipped, followup.SkippedInvoice{
				InvoiceID: inv.ID,
				Reason:    procErr.Error(),
			})
		} else if triggered {
			result.Triggered++
		} else {
			s.logger.Info("follow-up withheld",
				zap.Int64("invoice_id", inv.ID),
				zap.String("reason", skipReason),
			)
			result.Skipped = append(result.Skipped, followup.SkippedInvoice{
				InvoiceID: inv.ID,
				Reason:    skipReason,
			})
		}
		s.bucket(&result.Metrics, inv, cust, now)
	}

	if err := s.audit.CreateEntry(ctx, &followup.AuditEntry{
		CompanyID: tn.CompanyID,
		ActorID:   tn.UserID,
		Action:    followup.AuditDetectionRun,
		Details: map[string]interface{}{
			"eligible":  result.Eligible,
			"triggered": result.Triggered,
			"skipped":   len(result.Skipped),
		},
	}); err != nil {
		s.logger.Warn("failed to record detection run", zap.Error(err))
	}

	s.logger.Info("detection run completed",
		zap.Int64("company_id", tn.CompanyID),
		zap.Int("eligible", result.Eligible),
		zap.Int("triggered", result.Triggered),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

// lookupCustomer loads the invoice's customer once per scan iteration.
// Selection and metrics degrade to nil customer attributes on failure.
func (s *Scanner) lookupCustomer(ctx context.Context, companyID int64, inv *invoice.Invoice) *customer.Customer {
	cust, err := s.customers.FindByID(ctx, companyID, inv.CustomerID)
	if err != nil {
		s.logger.Warn("customer lookup failed, scoring without customer attributes",
			zap.Int64("invoice_id", inv.ID), zap.Error(err))
		return nil
	}
	return cust
}

// processInvoice handles one eligible invoice. Panics are contained here
// so a single bad row cannot abort the scan.
func (s *Scanner) processInvoice(ctx context.Context, tn tenant.Context, cfg *dworkhours.Config, opts workhours.CheckOptions, inv *invoice.Invoice, cust *customer.Customer, now time.Time) (triggered bool, skipReason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while processing invoice",
				zap.Int64("invoice_id", inv.ID),
				zap.Any("panic", r),
			)
			triggered = false
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	candidates, err := s.sequences.FindActive(ctx, tn.CompanyID)
	if err != nil {
		return false, "", fmt.Errorf("failed to load sequences: %w", err)
	}
	if len(candidates) == 0 {
		return false, "no active sequences", nil
	}

	daysOverdue := inv.DaysOverdue(now)

	seq := SelectSequence(inv, cust, daysOverdue, candidates)
	steps, err := seq.ParseSteps()
	if err != nil {
		// Fails closed: invalid step data is a skip, not a crash.
		return false, fmt.Sprintf("sequence %d has invalid steps: %v", seq.ID, err), nil
	}
	first := steps[0]

	decision, err := s.gate.CheckCompliance(ctx, inv, cust, seq, daysOverdue)
	if err != nil {
		return false, "", err
	}
	if !decision.Allowed {
		return false, decision.Reason, nil
	}

	sendAt := now
	if chk := s.resolver.Check(cfg, opts, now); !chk.WithinHours {
		if chk.NextAvailable == nil {
			return false, "", fmt.Errorf("no sendable instant within the search bound")
		}
		sendAt = *chk.NextAvailable
	}

	lang := "en"
	if cust != nil && cust.PreferredLanguage != "" {
		lang = cust.PreferredLanguage
	}

	log := &followup.Log{
		CompanyID:   tn.CompanyID,
		InvoiceID:   inv.ID,
		SequenceID:  seq.ID,
		StepNumber:  first.StepNumber,
		Subject:     s.templates.Resolve(first.SubjectFor(lang), inv),
		Content:     s.templates.Resolve(first.ContentFor(lang), inv),
		Recipient:   inv.CustomerEmail,
		ScheduledAt: sendAt,
		Status:      followup.StatusQueued,
	}
	if err := s.followUps.CreateLog(ctx, log); err != nil {
		return false, "", fmt.Errorf("failed to enqueue follow-up: %w", err)
	}

	if err := s.audit.CreateEntry(ctx, &followup.AuditEntry{
		CompanyID: tn.CompanyID,
		InvoiceID: sql.NullInt64{Int64: inv.ID, Valid: true},
		ActorID:   tn.UserID,
		Action:    followup.AuditFollowUpTriggered,
		Details: map[string]interface{}{
			"sequence_id": seq.ID,
			"step_number": first.StepNumber,
			"scheduled_at": sendAt,
		},
	}); err != nil {
		s.logger.Warn("failed to record trigger audit entry",
			zap.Int64("invoice_id", inv.ID), zap.Error(err))
	}

	return true, "", nil
}

func (s *Scanner) bucket(m *followup.DetectionMetrics, inv *invoice.Invoice, cust *customer.Customer, now time.Time) {
	m.ByCompany[inv.CompanyID]++
	m.ByAmountRange[amountRange(inv.Amount)]++
	m.ByOverdueRange[overdueRange(inv.DaysOverdue(now))]++

	segment := "unknown"
	if cust != nil {
		segment = string(cust.BusinessType)
	}
	m.BySegment[segment]++
}

func amountRange(amount float64) string {
	switch {
	case amount <= 1000:
		return "0-1k"
	case amount <= 10000:
		return "1k-10k"
	case amount <= 100000:
		return "10k-100k"
	default:
		return "100k+"
	}
}

func overdueRange(days int) string {
	switch {
	case days <= 7:
		return "1-7"
	case days <= 30:
		return "8-30"
	case days <= 90:
		return "31-90"
	default:
		return "90+"
	}
}
