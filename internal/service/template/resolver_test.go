package template

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tahseel-service/internal/domain/invoice"
	xerrors "tahseel-service/internal/pkg/errors"
)

var testNow = time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)

func testResolver() *Resolver {
	return NewResolver().WithClock(func() time.Time { return testNow })
}

func sampleInvoice() *invoice.Invoice {
	return &invoice.Invoice{
		ID:            1,
		InvoiceNumber: "INV-2025-042",
		CompanyName:   "Al Noor Trading LLC",
		CustomerName:  "Majid Stores",
		CustomerEmail: "accounts@majid.example",
		Amount:        15250.5,
		Currency:      "AED",
		DueDate:       time.Date(2025, time.May, 26, 0, 0, 0, 0, time.UTC),
	}
}

func TestValidate(t *testing.T) {
	r := testResolver()

	assert.NoError(t, r.Validate("Dear {{customer_name}}, invoice {{invoice_number}} is due."))
	assert.NoError(t, r.Validate("no placeholders at all"))
	assert.NoError(t, r.Validate("whitespace is fine: {{ amount }}"))

	err := r.Validate("Hello {{custmer_name}}")
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))
	assert.Contains(t, err.Error(), "custmer_name")
}

func TestResolve(t *testing.T) {
	r := testResolver()
	inv := sampleInvoice()

	got := r.Resolve("{{customer_name}}: {{invoice_number}} for {{amount}} was due {{due_date}} ({{days_overdue}} days ago). - {{company_name}}", inv)

	assert.Equal(t, "Majid Stores: INV-2025-042 for 15250.50 AED was due 26 May 2025 (15 days ago). - Al Noor Trading LLC", got)
}

func TestResolve_DaysOverdueNeverNegative(t *testing.T) {
	r := testResolver()
	inv := sampleInvoice()
	inv.DueDate = testNow.AddDate(0, 0, 10)

	assert.Equal(t, "0", r.Resolve("{{days_overdue}}", inv))
}

func TestResolve_WhitespaceInsidePlaceholder(t *testing.T) {
	r := testResolver()

	got := r.Resolve("Invoice {{ invoice_number }}", sampleInvoice())
	assert.Equal(t, "Invoice INV-2025-042", got)
}
