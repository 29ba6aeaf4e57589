package scenario

import "time"

// 2026 OBBBA federal ITC rules: a residential purchase lost its federal
// tax credit at the end of 2025, while third-party-owned (leased)
// systems and commercial projects keep 30%. Commercial eligibility
// additionally requires construction to start before July 4, 2026.
const (
	PurchaseITCFraction = 0.0
	LeaseITCFraction    = 0.30
	AnalysisYears       = 25
)

// ConstructionDeadline is the commercial safe-harbor cutoff.
var ConstructionDeadline = time.Date(2026, time.July, 4, 0, 0, 0, 0, time.UTC)

// CommercialPolicyNote accompanies commercial results issued before the
// construction deadline.
const CommercialPolicyNote = "NOTE: You must commence construction by July 4, 2026, to lock in this 30% credit."

// FinancingVariants returns the sweep for a property type.
//
// Residential questions fan out into a purchase branch (0% ITC) and a
// lease branch (30% ITC) so the answer can compare both. Commercial and
// industrial run a single 30% branch; callers should attach
// CommercialPolicyNote while the deadline has not passed.
func FinancingVariants(propertyType string) []Variant {
	switch propertyType {
	case "commercial", "industrial":
		return []Variant{
			{
				Name: "commercial",
				Params: Params{
					"ownership_type":       "purchase",
					"federal_itc_fraction": LeaseITCFraction,
					"analysis_years":       AnalysisYears,
				},
			},
		}
	default:
		return []Variant{
			{
				Name: "purchase",
				Params: Params{
					"ownership_type":       "purchase",
					"federal_itc_fraction": PurchaseITCFraction,
					"analysis_years":       AnalysisYears,
				},
			},
			{
				Name: "lease",
				Params: Params{
					"ownership_type":        "lease",
					"federal_itc_fraction":  LeaseITCFraction,
					"analysis_years":        AnalysisYears,
					"third_party_ownership": true,
				},
			},
		}
	}
}

// DeadlinePassed reports whether the commercial construction cutoff has
// elapsed at the given time.
func DeadlinePassed(now time.Time) bool {
	return !now.Before(ConstructionDeadline)
}
