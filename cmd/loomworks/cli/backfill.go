package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/loomworks-erp/loomworks-erp/internal/inventory"
	"github.com/loomworks-erp/loomworks-erp/internal/shared"
)

// BackfillRunner narrows the inventory dependency to the backfill call.
type BackfillRunner interface {
	Backfill(ctx context.Context, companyID int64) (inventory.BackfillReport, error)
}

// BackfillCLI runs the stock movement backfill from the command line.
type BackfillCLI struct {
	runner BackfillRunner
}

// NewBackfillCLI constructs a new helper instance.
func NewBackfillCLI(runner BackfillRunner) *BackfillCLI {
	return &BackfillCLI{runner: runner}
}

// BackfillOptions configures the backfill command execution.
type BackfillOptions struct {
	CompanyID  int64
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// Command runs the backfill and prints the inserted and skipped counts.
func (c *BackfillCLI) Command(ctx context.Context, opts BackfillOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if c == nil || c.runner == nil {
		fmt.Fprintln(opts.Stderr, "backfill: runner not configured")
		return 1
	}
	if opts.CompanyID <= 0 {
		fmt.Fprintln(opts.Stderr, "backfill: --company is required")
		return 1
	}
	report, err := c.runner.Backfill(ctx, opts.CompanyID)
	if err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			fmt.Fprintln(opts.Stderr, "backfill: another run is already in progress")
			return 1
		}
		fmt.Fprintf(opts.Stderr, "backfill: run failed: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(report); err != nil {
			fmt.Fprintf(opts.Stderr, "backfill: %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(opts.Stdout, "Backfill for company %d: %d inserted, %d skipped\n",
		report.CompanyID, report.Inserted, report.Skipped)
	return 0
}
