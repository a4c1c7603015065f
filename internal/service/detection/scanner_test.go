package detection

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
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

// ============================================================================
// Mocks
// ============================================================================

type MockInvoiceReader struct {
	mock.Mock
}

func (m *MockInvoiceReader) FindEligible(ctx context.Context, companyID int64, f EligibilityFilter) ([]invoice.Invoice, error) {
	args := m.Called(ctx, companyID, f)
	if result := args.Get(0); result != nil {
		return result.([]invoice.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockCustomerReader struct {
	mock.Mock
}

func (m *MockCustomerReader) FindByID(ctx context.Context, companyID, id int64) (*customer.Customer, error) {
	args := m.Called(ctx, companyID, id)
	if result := args.Get(0); result != nil {
		return result.(*customer.Customer), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockSequenceReader struct {
	mock.Mock
}

func (m *MockSequenceReader) FindActive(ctx context.Context, companyID int64) ([]sequence.FollowUpSequence, error) {
	args := m.Called(ctx, companyID)
	if result := args.Get(0); result != nil {
		return result.([]sequence.FollowUpSequence), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockFollowUpWriter struct {
	mock.Mock
}

func (m *MockFollowUpWriter) CreateLog(ctx context.Context, log *followup.Log) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

type MockAuditWriter struct {
	mock.Mock
}

func (m *MockAuditWriter) CreateEntry(ctx context.Context, entry *followup.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type MockComplianceGate struct {
	mock.Mock
}

func (m *MockComplianceGate) CheckCompliance(ctx context.Context, inv *invoice.Invoice, cust *customer.Customer, seq *sequence.FollowUpSequence, daysOverdue int) (compliance.Decision, error) {
	args := m.Called(ctx, inv, cust, seq, daysOverdue)
	return args.Get(0).(compliance.Decision), args.Error(1)
}

type MockConfigProvider struct {
	mock.Mock
}

func (m *MockConfigProvider) ForCompany(ctx context.Context, companyID int64) (*dworkhours.Config, error) {
	args := m.Called(ctx, companyID)
	if result := args.Get(0); result != nil {
		return result.(*dworkhours.Config), args.Error(1)
	}
	return nil, args.Error(1)
}

// ============================================================================
// Fixtures
// ============================================================================

// Tuesday 10:00 Dubai time: sendable under the default config.
func scanTime(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Dubai")
	require.NoError(t, err)
	return time.Date(2025, time.June, 10, 10, 0, 0, 0, loc)
}

var testTenant = tenant.Context{CompanyID: 3, UserID: 9}

func activeSequences() []sequence.FollowUpSequence {
	return []sequence.FollowUpSequence{{
		ID: 21, CompanyID: 3, Name: "standard", Active: true,
		StepsJSON: json.RawMessage(`[
			{"step_number": 1, "delay_days": 0,
			 "subject": {"en": "Invoice {{invoice_number}} overdue"},
			 "content": {"en": "Dear {{customer_name}}, {{amount}} is outstanding."},
			 "escalation": "GENTLE"}
		]`),
	}}
}

func overdueInvoice(id int64, now time.Time) invoice.Invoice {
	return invoice.Invoice{
		ID: id, CompanyID: 3, InvoiceNumber: "INV-100", CustomerID: 11,
		CustomerName: "Majid Stores", CustomerEmail: "accounts@majid.example",
		Amount: 5000, Currency: "AED",
		DueDate: now.AddDate(0, 0, -10), Status: invoice.StatusOverdue,
	}
}

type scannerFixture struct {
	invoices  *MockInvoiceReader
	customers *MockCustomerReader
	sequences *MockSequenceReader
	followUps *MockFollowUpWriter
	audit     *MockAuditWriter
	gate      *MockComplianceGate
	configs   *MockConfigProvider
	scanner   *Scanner
}

func newScannerFixture(t *testing.T) *scannerFixture {
	f := &scannerFixture{
		invoices:  new(MockInvoiceReader),
		customers: new(MockCustomerReader),
		sequences: new(MockSequenceReader),
		followUps: new(MockFollowUpWriter),
		audit:     new(MockAuditWriter),
		gate:      new(MockComplianceGate),
		configs:   new(MockConfigProvider),
	}
	now := scanTime(t)
	f.scanner = NewScanner(
		f.invoices, f.customers, f.sequences, f.followUps, f.audit,
		f.gate, f.configs,
		workhours.NewResolver(nil), template.NewResolver().WithClock(func() time.Time { return now }),
		zap.NewNop(),
	).WithClock(func() time.Time { return now })
	return f
}

// ============================================================================
// Tests
// ============================================================================

func TestDetectAndTrigger_QueuesFollowUp(t *testing.T) {
	f := newScannerFixture(t)
	now := scanTime(t)

	f.invoices.On("FindEligible", mock.Anything, int64(3), mock.Anything).
		Return([]invoice.Invoice{overdueInvoice(1, now)}, nil)
	f.configs.On("ForCompany", mock.Anything, int64(3)).Return(dworkhours.DefaultConfig(3), nil)
	f.sequences.On("FindActive", mock.Anything, int64(3)).Return(activeSequences(), nil)
	f.customers.On("FindByID", mock.Anything, int64(3), int64(11)).
		Return(&customer.Customer{ID: 11, BusinessType: customer.BusinessTypePrivate}, nil)
	f.gate.On("CheckCompliance", mock.Anything, mock.Anything, mock.Anything, mock.Anything, 10).
		Return(compliance.Decision{Allowed: true}, nil)
	f.followUps.On("CreateLog", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("CreateEntry", mock.Anything, mock.Anything).Return(nil)

	result, err := f.scanner.DetectAndTrigger(context.Background(), testTenant, followup.DetectionConditions{MinDaysOverdue: 1})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Eligible)
	assert.Equal(t, 1, result.Triggered)
	assert.Empty(t, result.Skipped)

	f.followUps.AssertCalled(t, "CreateLog", mock.Anything, mock.MatchedBy(func(log *followup.Log) bool {
		return log.InvoiceID == 1 &&
			log.SequenceID == 21 &&
			log.Status == followup.StatusQueued &&
			log.Recipient == "accounts@majid.example" &&
			log.Subject == "Invoice INV-100 overdue" &&
			log.ScheduledAt.Equal(now)
	}))
}

func TestDetectAndTrigger_ComplianceBlockIsSkip(t *testing.T) {
	f := newScannerFixture(t)
	now := scanTime(t)

	f.invoices.On("FindEligible", mock.Anything, int64(3), mock.Anything).
		Return([]invoice.Invoice{overdueInvoice(1, now)}, nil)
	f.configs.On("ForCompany", mock.Anything, int64(3)).Return(dworkhours.DefaultConfig(3), nil)
	f.sequences.On("FindActive", mock.Anything, int64(3)).Return(activeSequences(), nil)
	f.customers.On("FindByID", mock.Anything, int64(3), int64(11)).Return(nil, errors.New("gone"))
	f.gate.On("CheckCompliance", mock.Anything, mock.Anything, mock.Anything, mock.Anything, 10).
		Return(compliance.Decision{Allowed: false, Reason: "recent payment activity within the last 7 days"}, nil)
	f.audit.On("CreateEntry", mock.Anything, mock.Anything).Return(nil)

	result, err := f.scanner.DetectAndTrigger(context.Background(), testTenant, followup.DetectionConditions{MinDaysOverdue: 1})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Triggered)
	require.Len(t, result.Skipped, 1)
	assert.Contains(t, result.Skipped[0].Reason, "recent payment")
	f.followUps.AssertNotCalled(t, "CreateLog", mock.Anything, mock.Anything)
}

func TestDetectAndTrigger_NoActiveSequences(t *testing.T) {
	f := newScannerFixture(t)
	now := scanTime(t)

	f.invoices.On("FindEligible", mock.Anything, int64(3), mock.Anything).
		Return([]invoice.Invoice{overdueInvoice(1, now)}, nil)
	f.configs.On("ForCompany", mock.Anything, int64(3)).Return(dworkhours.DefaultConfig(3), nil)
	f.sequences.On("FindActive", mock.Anything, int64(3)).Return([]sequence.FollowUpSequence{}, nil)
	f.customers.On("FindByID", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("gone"))
	f.audit.On("CreateEntry", mock.Anything, mock.Anything).Return(nil)

	result, err := f.scanner.DetectAndTrigger(context.Background(), testTenant, followup.DetectionConditions{MinDaysOverdue: 1})

	require.NoError(t, err)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "no active sequences", result.Skipped[0].Reason)
}

func TestDetectAndTrigger_PerInvoiceIsolation(t *testing.T) {
	f := newScannerFixture(t)
	now := scanTime(t)

	bad := overdueInvoice(1, now)
	good := overdueInvoice(2, now)

	f.invoices.On("FindEligible", mock.Anything, int64(3), mock.Anything).
		Return([]invoice.Invoice{bad, good}, nil)
	f.configs.On("ForCompany", mock.Anything, int64(3)).Return(dworkhours.DefaultConfig(3), nil)
	f.sequences.On("FindActive", mock.Anything, int64(3)).Return(activeSequences(), nil)
	f.customers.On("FindByID", mock.Anything, int64(3), int64(11)).
		Return(&customer.Customer{ID: 11, BusinessType: customer.BusinessTypePrivate}, nil)
	f.gate.On("CheckCompliance", mock.Anything, mock.Anything, mock.Anything, mock.Anything, 10).
		Return(compliance.Decision{Allowed: true}, nil)
	// Invoice 1 fails to enqueue; invoice 2 succeeds.
	f.followUps.On("CreateLog", mock.Anything, mock.MatchedBy(func(log *followup.Log) bool {
		return log.InvoiceID == 1
	})).Return(errors.New("unique violation"))
	f.followUps.On("CreateLog", mock.Anything, mock.MatchedBy(func(log *followup.Log) bool {
		return log.InvoiceID == 2
	})).Return(nil)
	f.audit.On("CreateEntry", mock.Anything, mock.Anything).Return(nil)

	result, err := f.scanner.DetectAndTrigger(context.Background(), testTenant, followup.DetectionConditions{MinDaysOverdue: 1})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Eligible)
	assert.Equal(t, 1, result.Triggered)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, int64(1), result.Skipped[0].InvoiceID)
	require.Len(t, result.Errors, 1)

	// Invariant: every eligible invoice is accounted for.
	assert.Equal(t, result.Eligible, result.Triggered+len(result.Skipped))
}

func TestDetectAndTrigger_OutsideHoursSchedulesForward(t *testing.T) {
	f := newScannerFixture(t)
	now := scanTime(t)

	cfg := dworkhours.DefaultConfig(3)
	inv := overdueInvoice(1, now)
	inv.DueDate = now.AddDate(0, 0, -10)

	f.invoices.On("FindEligible", mock.Anything, int64(3), mock.Anything).
		Return([]invoice.Invoice{inv}, nil)
	f.configs.On("ForCompany", mock.Anything, int64(3)).Return(cfg, nil)
	f.sequences.On("FindActive", mock.Anything, int64(3)).Return(activeSequences(), nil)
	f.customers.On("FindByID", mock.Anything, int64(3), int64(11)).
		Return(&customer.Customer{ID: 11, BusinessType: customer.BusinessTypePrivate}, nil)
	f.gate.On("CheckCompliance", mock.Anything, mock.Anything, mock.Anything, mock.Anything, 10).
		Return(compliance.Decision{Allowed: true}, nil)
	f.followUps.On("CreateLog", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("CreateEntry", mock.Anything, mock.Anything).Return(nil)

	// Move the clock into the lunch break.
	loc := now.Location()
	lunch := time.Date(2025, time.June, 10, 13, 30, 0, 0, loc)
	f.scanner.WithClock(func() time.Time { return lunch })

	result, err := f.scanner.DetectAndTrigger(context.Background(), testTenant, followup.DetectionConditions{MinDaysOverdue: 1})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Triggered)
	f.followUps.AssertCalled(t, "CreateLog", mock.Anything, mock.MatchedBy(func(log *followup.Log) bool {
		want := time.Date(2025, time.June, 10, 14, 0, 0, 0, loc)
		return log.ScheduledAt.Equal(want)
	}))
}

// A minimal request carries no waivers, so weekend gating stays active and
// the follow-up lands on the next working day.
func TestDetectAndTrigger_DefaultsKeepWeekendGating(t *testing.T) {
	f := newScannerFixture(t)

	loc, err := time.LoadLocation("Asia/Dubai")
	require.NoError(t, err)
	saturday := time.Date(2025, time.June, 14, 10, 0, 0, 0, loc)
	f.scanner.WithClock(func() time.Time { return saturday })

	f.invoices.On("FindEligible", mock.Anything, int64(3), mock.Anything).
		Return([]invoice.Invoice{overdueInvoice(1, saturday)}, nil)
	f.configs.On("ForCompany", mock.Anything, int64(3)).Return(dworkhours.DefaultConfig(3), nil)
	f.sequences.On("FindActive", mock.Anything, int64(3)).Return(activeSequences(), nil)
	f.customers.On("FindByID", mock.Anything, int64(3), int64(11)).
		Return(&customer.Customer{ID: 11, BusinessType: customer.BusinessTypePrivate}, nil)
	f.gate.On("CheckCompliance", mock.Anything, mock.Anything, mock.Anything, mock.Anything, 10).
		Return(compliance.Decision{Allowed: true}, nil)
	f.followUps.On("CreateLog", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("CreateEntry", mock.Anything, mock.Anything).Return(nil)

	result, err := f.scanner.DetectAndTrigger(context.Background(), testTenant, followup.DetectionConditions{MinDaysOverdue: 1})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Triggered)
	f.followUps.AssertCalled(t, "CreateLog", mock.Anything, mock.MatchedBy(func(log *followup.Log) bool {
		monday := time.Date(2025, time.June, 16, 9, 0, 0, 0, loc)
		return log.ScheduledAt.Equal(monday)
	}))
}

func TestDetectAndTrigger_WeekendWaiverSendsImmediately(t *testing.T) {
	f := newScannerFixture(t)

	loc, err := time.LoadLocation("Asia/Dubai")
	require.NoError(t, err)
	saturday := time.Date(2025, time.June, 14, 10, 0, 0, 0, loc)
	f.scanner.WithClock(func() time.Time { return saturday })

	f.invoices.On("FindEligible", mock.Anything, int64(3), mock.Anything).
		Return([]invoice.Invoice{overdueInvoice(1, saturday)}, nil)
	f.configs.On("ForCompany", mock.Anything, int64(3)).Return(dworkhours.DefaultConfig(3), nil)
	f.sequences.On("FindActive", mock.Anything, int64(3)).Return(activeSequences(), nil)
	f.customers.On("FindByID", mock.Anything, int64(3), int64(11)).
		Return(&customer.Customer{ID: 11, BusinessType: customer.BusinessTypePrivate}, nil)
	f.gate.On("CheckCompliance", mock.Anything, mock.Anything, mock.Anything, mock.Anything, 10).
		Return(compliance.Decision{Allowed: true}, nil)
	f.followUps.On("CreateLog", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("CreateEntry", mock.Anything, mock.Anything).Return(nil)

	_, err = f.scanner.DetectAndTrigger(context.Background(), testTenant,
		followup.DetectionConditions{MinDaysOverdue: 1, AllowWeekends: true})

	require.NoError(t, err)
	f.followUps.AssertCalled(t, "CreateLog", mock.Anything, mock.MatchedBy(func(log *followup.Log) bool {
		return log.ScheduledAt.Equal(saturday)
	}))
}

func TestDetectAndTrigger_MetricsBucketed(t *testing.T) {
	f := newScannerFixture(t)
	now := scanTime(t)

	f.invoices.On("FindEligible", mock.Anything, int64(3), mock.Anything).
		Return([]invoice.Invoice{overdueInvoice(1, now)}, nil)
	f.configs.On("ForCompany", mock.Anything, int64(3)).Return(dworkhours.DefaultConfig(3), nil)
	f.sequences.On("FindActive", mock.Anything, int64(3)).Return(activeSequences(), nil)
	f.customers.On("FindByID", mock.Anything, int64(3), int64(11)).
		Return(&customer.Customer{ID: 11, BusinessType: customer.BusinessTypePrivate}, nil)
	f.gate.On("CheckCompliance", mock.Anything, mock.Anything, mock.Anything, mock.Anything, 10).
		Return(compliance.Decision{Allowed: true}, nil)
	f.followUps.On("CreateLog", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("CreateEntry", mock.Anything, mock.Anything).Return(nil)

	result, err := f.scanner.DetectAndTrigger(context.Background(), testTenant, followup.DetectionConditions{MinDaysOverdue: 1})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Metrics.ByCompany[3])
	assert.Equal(t, 1, result.Metrics.ByAmountRange["1k-10k"])
	assert.Equal(t, 1, result.Metrics.ByOverdueRange["8-30"])
	assert.Equal(t, 1, result.Metrics.BySegment["private"])

	// Selection and bucketing share one customer lookup per invoice.
	f.customers.AssertNumberOfCalls(t, "FindByID", 1)
}

func TestDetectAndTrigger_EligibilityQueryFails(t *testing.T) {
	f := newScannerFixture(t)

	f.invoices.On("FindEligible", mock.Anything, int64(3), mock.Anything).
		Return(nil, errors.New("connection reset"))

	_, err := f.scanner.DetectAndTrigger(context.Background(), testTenant, followup.DetectionConditions{MinDaysOverdue: 1})
	assert.Error(t, err)
}
