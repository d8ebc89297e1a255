package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/loomworks-erp/loomworks-erp/internal/accounting/shared"
)

// BalanceTolerance matches the posting-side epsilon for numeric drift.
const BalanceTolerance = 0.01

// ErrUnknownCheck indicates a check name outside AllChecks.
var ErrUnknownCheck = errors.New("verify: unknown check")

// ReceivableResolver resolves the receivable account for a company.
type ReceivableResolver func(ctx context.Context, companyID int64) (int64, error)

// MetricsPort receives the finding gauge after each run.
type MetricsPort interface {
	SetVerifyFindings(n int)
}

// Service runs read-only integrity checks over posted journal data.
type Service struct {
	repo       Repository
	receivable ReceivableResolver
	metrics    MetricsPort
	logger     *slog.Logger
	now        func() time.Time
}

// NewService builds Service instance.
func NewService(repo Repository, receivable ReceivableResolver, metrics MetricsPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, receivable: receivable, metrics: metrics, logger: logger, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Run executes the selected checks concurrently. An empty selection runs
// all of them. Query failures surface on the affected check's result so one
// broken check never hides the rest of the report.
func (s *Service) Run(ctx context.Context, companyID int64, checks []CheckName) (Report, error) {
	if len(checks) == 0 {
		checks = AllChecks
	}
	known := make(map[CheckName]bool, len(AllChecks))
	for _, c := range AllChecks {
		known[c] = true
	}
	for _, c := range checks {
		if !known[c] {
			return Report{}, fmt.Errorf("%w: %s", ErrUnknownCheck, c)
		}
	}

	var (
		arAccountID int64
		arErr       error
	)
	if s.receivable != nil {
		arAccountID, arErr = s.receivable(ctx, companyID)
	} else {
		arErr = shared.ErrAccountNotConfigured
	}

	report := Report{CompanyID: companyID, RanAt: s.now(), Results: make([]CheckResult, len(checks))}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, check := range checks {
		i, check := i, check
		g.Go(func() error {
			result := CheckResult{Check: check}
			findings, err := s.runCheck(gctx, companyID, check, arAccountID, arErr)
			if err != nil {
				result.Err = err.Error()
			}
			result.Findings = findings
			mu.Lock()
			report.Results[i] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if s.metrics != nil {
		s.metrics.SetVerifyFindings(report.FindingCount())
	}
	if s.logger != nil {
		s.logger.Info("verification run complete",
			slog.Int64("company_id", companyID),
			slog.Int("findings", report.FindingCount()),
			slog.Bool("clean", report.Clean()))
	}
	return report, nil
}

func (s *Service) runCheck(ctx context.Context, companyID int64, check CheckName, arAccountID int64, arErr error) ([]Finding, error) {
	switch check {
	case CheckBothSides:
		facts, err := s.repo.BothSidedLines(ctx, companyID)
		if err != nil {
			return nil, err
		}
		return lineFindings(check, facts, func(f LineFact) string {
			return fmt.Sprintf("entry %s carries a line with debit %.2f and credit %.2f", f.EntryNo, f.Debit, f.Credit)
		}), nil
	case CheckARRules:
		if arErr != nil {
			return nil, arErr
		}
		facts, err := s.repo.ARViolations(ctx, companyID, arAccountID)
		if err != nil {
			return nil, err
		}
		return lineFindings(check, facts, func(f LineFact) string {
			return fmt.Sprintf("entry %s (%s) breaks the receivable sign rules (debit %.2f, credit %.2f)", f.EntryNo, f.Kind, f.Debit, f.Credit)
		}), nil
	case CheckUnlinkedPays:
		ids, err := s.repo.UnlinkedPayments(ctx, companyID)
		if err != nil {
			return nil, err
		}
		var findings []Finding
		for _, id := range ids {
			findings = append(findings, Finding{
				Check:   check,
				Message: fmt.Sprintf("payment %s has no journal entry", id),
			})
		}
		return findings, nil
	case CheckDuplicateNos:
		dups, err := s.repo.DuplicateEntryNumbers(ctx, companyID)
		if err != nil {
			return nil, err
		}
		var findings []Finding
		for _, d := range dups {
			findings = append(findings, Finding{
				Check:   check,
				Message: fmt.Sprintf("entry number %s used %d times", d.EntryNo, d.Count),
				EntryNo: d.EntryNo,
			})
		}
		return findings, nil
	case CheckARReconcile:
		if arErr != nil {
			return nil, arErr
		}
		totals, err := s.repo.ARTotals(ctx, companyID, arAccountID)
		if err != nil {
			return nil, err
		}
		expected := totals.Sales - totals.Payments - totals.Discounts
		if math.Abs(expected-totals.Actual) > BalanceTolerance {
			return []Finding{{
				Check: check,
				Message: fmt.Sprintf("receivable balance mismatch: expected %.2f (sales %.2f - payments %.2f - discounts %.2f), actual %.2f",
					expected, totals.Sales, totals.Payments, totals.Discounts, totals.Actual),
			}}, nil
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCheck, check)
	}
}

func lineFindings(check CheckName, facts []LineFact, message func(LineFact) string) []Finding {
	var findings []Finding
	for _, f := range facts {
		findings = append(findings, Finding{Check: check, Message: message(f), EntryNo: f.EntryNo})
	}
	return findings
}
