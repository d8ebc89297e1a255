package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/loomworks-erp/loomworks-erp/internal/verify"
)

// VerifyRunner narrows the verification dependency to the single call the
// command needs.
type VerifyRunner interface {
	Run(ctx context.Context, companyID int64, checks []verify.CheckName) (verify.Report, error)
}

// VerifyCLI runs the ledger integrity checks from the command line.
type VerifyCLI struct {
	runner VerifyRunner
}

// NewVerifyCLI constructs a new helper instance.
func NewVerifyCLI(runner VerifyRunner) *VerifyCLI {
	return &VerifyCLI{runner: runner}
}

// VerifyOptions configures the verify command execution.
type VerifyOptions struct {
	CompanyID  int64
	Checks     string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// Command runs the selected checks and renders the report. Exit code 0 means
// clean, 10 means findings were detected, 1 means the run itself failed.
func (c *VerifyCLI) Command(ctx context.Context, opts VerifyOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if c == nil || c.runner == nil {
		fmt.Fprintln(opts.Stderr, "verify: runner not configured")
		return 1
	}
	if opts.CompanyID <= 0 {
		fmt.Fprintln(opts.Stderr, "verify: --company is required")
		return 1
	}
	checks := parseChecks(opts.Checks)
	report, err := c.runner.Run(ctx, opts.CompanyID, checks)
	if err != nil {
		if errors.Is(err, verify.ErrUnknownCheck) {
			fmt.Fprintf(opts.Stderr, "verify: %v\n", err)
			return 1
		}
		fmt.Fprintf(opts.Stderr, "verify: run failed: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(report); err != nil {
			fmt.Fprintf(opts.Stderr, "verify: %v\n", err)
			return 1
		}
	} else {
		fmt.Fprint(opts.Stdout, report.Render())
	}
	if !report.Clean() {
		return 10
	}
	return 0
}

func parseChecks(raw string) []verify.CheckName {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	checks := make([]verify.CheckName, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		checks = append(checks, verify.CheckName(p))
	}
	return checks
}
