// internal/service/template/resolver.go
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tahseel-service/internal/domain/invoice"
	xerrors "tahseel-service/internal/pkg/errors"
)

// The closed set of recognized merge fields. Anything else in a template is
// a validation failure, never a silent no-op.
var mergeFields = map[string]struct{}{
	"invoice_number": {},
	"customer_name":  {},
	"amount":         {},
	"due_date":       {},
	"days_overdue":   {},
	"company_name":   {},
	"customer_email": {},
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Resolver substitutes merge fields into templated subject and body text.
type Resolver struct {
	now func() time.Time
}

func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// WithClock overrides the resolver's clock; used by tests.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Validate checks that every placeholder in the template belongs to the
// recognized merge-field set.
func (r *Resolver) Validate(tmpl string) error {
	for _, m := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
		if _, ok := mergeFields[m[1]]; !ok {
			return xerrors.NewValidation("template",
				fmt.Sprintf("unknown merge field {{%s}}", m[1]))
		}
	}
	return nil
}

// Resolve substitutes every recognized placeholder with the invoice's
// values. Templates must be validated before campaigns are persisted, so
// Resolve assumes a valid template.
func (r *Resolver) Resolve(tmpl string, inv *invoice.Invoice) string {
	daysOverdue := inv.DaysOverdue(r.now())
	if daysOverdue < 0 {
		daysOverdue = 0
	}

	values := map[string]string{
		"invoice_number": inv.InvoiceNumber,
		"customer_name":  inv.CustomerName,
		"amount":         fmt.Sprintf("%.2f %s", inv.Amount, inv.Currency),
		"due_date":       inv.DueDate.Format("02 Jan 2006"),
		"days_overdue":   strconv.Itoa(daysOverdue),
		"company_name":   inv.CompanyName,
		"customer_email": inv.CustomerEmail,
	}

	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		field := strings.Trim(match, "{} \t")
		if v, ok := values[field]; ok {
			return v
		}
		return match
	})
}
