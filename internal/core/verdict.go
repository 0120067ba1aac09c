package core

import "github.com/shopspring/decimal"

// Verdict is the outcome of evaluating spend against a budget limit.
type Verdict string

const (
	VerdictOK       Verdict = "OK"
	VerdictWarning  Verdict = "WARNING"
	VerdictOver     Verdict = "OVER"
	VerdictNoBudget Verdict = "NO_BUDGET"
)

// WarningRatio is the share of the limit at which spend starts warning.
var WarningRatio = decimal.RequireFromString("0.9")

func (v Verdict) String() string {
	return string(v)
}

// IsAlert reports whether the verdict should be surfaced to the user.
func (v Verdict) IsAlert() bool {
	return v == VerdictWarning || v == VerdictOver
}

// Ptr returns a pointer to a copy of v.
func (v Verdict) Ptr() *Verdict {
	return &v
}

// Evaluate maps a limit and a spend amount to a verdict.
// A nil limit means no budget exists for the category.
func Evaluate(limit *decimal.Decimal, spent decimal.Decimal) Verdict {
	if limit == nil {
		return VerdictNoBudget
	}
	switch {
	case spent.GreaterThan(*limit):
		return VerdictOver
	case spent.GreaterThanOrEqual(limit.Mul(WarningRatio)):
		return VerdictWarning
	default:
		return VerdictOK
	}
}

// EvaluateImpact evaluates the spend that would result from recording
// amount on top of current. Only the magnitude of amount is used.
func EvaluateImpact(limit *decimal.Decimal, current, amount decimal.Decimal) Verdict {
	return Evaluate(limit, current.Add(amount.Abs()))
}
