// internal/domain/customer/entity.go
package customer

import "time"

type BusinessType string

const (
	BusinessTypeGovernment     BusinessType = "government"
	BusinessTypeSemiGovernment BusinessType = "semi_government"
	BusinessTypePrivate        BusinessType = "private"
)

// IsGovernment reports whether the customer is government-classified for
// grace-period purposes. Semi-government entities get the same treatment.
func (b BusinessType) IsGovernment() bool {
	return b == BusinessTypeGovernment || b == BusinessTypeSemiGovernment
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Customer is read-only from the collections core's perspective; it is
// created and maintained by the CRM surfaces.
type Customer struct {
	ID           int64        `json:"id" db:"id"`
	CompanyID    int64        `json:"company_id" db:"company_id"`
	Name         string       `json:"name" db:"name"`
	Email        string       `json:"email" db:"email"`
	TRN          string       `json:"trn" db:"trn"`
	BusinessType BusinessType `json:"business_type" db:"business_type"`
	RiskLevel    RiskLevel    `json:"risk_level" db:"risk_level"`
	// Preferred language for follow-up content, e.g. "en" or "ar".
	PreferredLanguage string `json:"preferred_language" db:"preferred_language"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
