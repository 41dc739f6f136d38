package domain

import (
	"strings"
	"time"
)

// Known plan price points in minor currency units
const (
	premiumMonthlyAmount int64 = 449
	premiumYearlyAmount  int64 = 4308
)

// PlanWindow is the validity window inferred for a plan purchase
type PlanWindow struct {
	StartDate  time.Time `json:"start_date"`
	ExpiryDate time.Time `json:"expiry_date"`
}

// InferWindow derives the validity window for a plan purchase. Pure and
// deterministic: now is an explicit argument, never sampled internally.
// Rule precedence, first match wins:
//  1. name contains "monthly"            -> +1 month
//  2. name contains "yearly" or "year"   -> +1 year
//  3. name contains "premium"            -> by amount (449 month, 4308 year, else year)
//  4. name contains "ai fundamentals" or "genai" -> +1 year
//  5. default                            -> +1 year
func InferWindow(planName string, amount int64, now time.Time) PlanWindow {
	name := strings.ToLower(planName)

	var expiry time.Time
	switch {
	case strings.Contains(name, "monthly"):
		expiry = now.AddDate(0, 1, 0)
	case strings.Contains(name, "yearly") || strings.Contains(name, "year"):
		expiry = now.AddDate(1, 0, 0)
	case strings.Contains(name, "premium"):
		switch amount {
		case premiumMonthlyAmount:
			expiry = now.AddDate(0, 1, 0)
		case premiumYearlyAmount:
			expiry = now.AddDate(1, 0, 0)
		default:
			expiry = now.AddDate(1, 0, 0)
		}
	case strings.Contains(name, "ai fundamentals") || strings.Contains(name, "genai"):
		expiry = now.AddDate(1, 0, 0)
	default:
		expiry = now.AddDate(1, 0, 0)
	}

	return PlanWindow{StartDate: now, ExpiryDate: expiry}
}
