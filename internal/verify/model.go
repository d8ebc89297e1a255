package verify

import (
	"fmt"
	"strings"
	"time"
)

// CheckName identifies one integrity check.
type CheckName string

const (
	CheckBothSides    CheckName = "both_sides"
	CheckARRules      CheckName = "ar_rules"
	CheckUnlinkedPays CheckName = "unlinked_payments"
	CheckDuplicateNos CheckName = "duplicate_entry_numbers"
	CheckARReconcile  CheckName = "ar_reconciliation"
)

// AllChecks lists every check in report order.
var AllChecks = []CheckName{
	CheckBothSides,
	CheckARRules,
	CheckUnlinkedPays,
	CheckDuplicateNos,
	CheckARReconcile,
}

// Finding is one detected violation. Checks are read-only; findings are
// reported, never auto-repaired.
type Finding struct {
	Check   CheckName `json:"check"`
	Message string    `json:"message"`
	EntryNo string    `json:"entry_no,omitempty"`
}

// CheckResult is the outcome of one check within a run.
type CheckResult struct {
	Check    CheckName `json:"check"`
	Findings []Finding `json:"findings"`
	Err      string    `json:"error,omitempty"`
}

// Passed reports whether the check ran clean.
func (r CheckResult) Passed() bool {
	return r.Err == "" && len(r.Findings) == 0
}

// Report aggregates one verification run.
type Report struct {
	CompanyID int64         `json:"company_id"`
	RanAt     time.Time     `json:"ran_at"`
	Results   []CheckResult `json:"results"`
}

// FindingCount totals findings across all checks.
func (r Report) FindingCount() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Findings)
	}
	return n
}

// Clean reports whether every check passed.
func (r Report) Clean() bool {
	for _, res := range r.Results {
		if !res.Passed() {
			return false
		}
	}
	return true
}

// Render formats the report for terminal output.
func (r Report) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ledger verification for company %d (%s)\n", r.CompanyID, r.RanAt.Format(time.RFC3339))
	for _, res := range r.Results {
		switch {
		case res.Err != "":
			fmt.Fprintf(&b, "❌ %s: check failed: %s\n", res.Check, res.Err)
		case len(res.Findings) > 0:
			fmt.Fprintf(&b, "❌ %s: %d finding(s)\n", res.Check, len(res.Findings))
			for _, f := range res.Findings {
				fmt.Fprintf(&b, "   - %s\n", f.Message)
			}
		default:
			fmt.Fprintf(&b, "✅ %s\n", res.Check)
		}
	}
	return b.String()
}
