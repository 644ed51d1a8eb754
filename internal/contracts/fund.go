package contracts

import "time"

// Fund is the master record for a mutual fund scheme. Loaded read-only;
// the collectors that populate it live outside this service.
type Fund struct {
	ID            int64      `json:"id"`
	SchemeCode    string     `json:"scheme_code"`
	FundName      string     `json:"fund_name"`
	AmcName       string     `json:"amc_name"`
	Category      string     `json:"category"`    // Equity, Debt, Hybrid, ...
	Subcategory   string     `json:"subcategory"` // Large Cap, Liquid, ...
	InceptionDate *time.Time `json:"inception_date,omitempty"`
	ExpenseRatio  *float64   `json:"expense_ratio,omitempty"`
	AumCrores     *float64   `json:"aum_crores,omitempty"`
	BenchmarkName string     `json:"benchmark_name,omitempty"`
}

// AgeYears returns the fund's age at the given date, or nil when the
// inception date is unknown.
func (f *Fund) AgeYears(at time.Time) *float64 {
	if f.InceptionDate == nil || f.InceptionDate.After(at) {
		return nil
	}
	years := at.Sub(*f.InceptionDate).Hours() / 24 / 365.25
	return &years
}

// Provenance tags where a NAV observation came from. It replaces
// guessing data quality from insertion timestamps: the tag is assigned
// at ingest time and is authoritative.
type Provenance string

const (
	ProvenancePrimary   Provenance = "primary"   // scheme-level provider feed
	ProvenanceSecondary Provenance = "secondary" // registry fallback feed
	ProvenanceEstimated Provenance = "estimated" // interpolated, never scored
)

// Valid reports whether the tag is one of the known values.
func (p Provenance) Valid() bool {
	switch p {
	case ProvenancePrimary, ProvenanceSecondary, ProvenanceEstimated:
		return true
	}
	return false
}

// Scorable reports whether observations with this tag may enter score
// calculations. Estimated values are display-only.
func (p Provenance) Scorable() bool {
	return p == ProvenancePrimary || p == ProvenanceSecondary
}

// NavObservation is one (fund, date, value) point of NAV history.
// Values are strictly positive; the store rejects anything else.
type NavObservation struct {
	FundID int64      `json:"fund_id"`
	Date   time.Time  `json:"date"`
	Value  float64    `json:"value"`
	Source Provenance `json:"source"`
}
