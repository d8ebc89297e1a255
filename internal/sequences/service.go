package sequences

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSequenceNotFound indicates no counter row exists for the document type.
var ErrSequenceNotFound = errors.New("sequences: document sequence not found")

// Service mints document numbers from per-company counters.
type Service struct {
	db *pgxpool.Pool
}

// NewService builds Service instance.
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// Ensure seeds a sequence if absent. Existing counters are never rewound.
func (s *Service) Ensure(ctx context.Context, companyID int64, branchID *int64, docType DocumentType, prefix string, padding int) error {
	if padding <= 0 {
		padding = 4
	}
	_, err := s.db.Exec(ctx, `INSERT INTO document_sequences (company_id, branch_id, document_type, prefix, current_number, padding)
VALUES ($1,$2,$3,$4,0,$5)
ON CONFLICT (company_id, branch_id, document_type) DO NOTHING`,
		companyID, branchID, docType, prefix, padding)
	return err
}

// Next mints the next number using a single atomic increment, so two
// concurrent callers can never observe the same value.
func (s *Service) Next(ctx context.Context, companyID int64, branchID *int64, docType DocumentType) (string, error) {
	return next(ctx, s.db, companyID, branchID, docType)
}

// NextInTx mints a number inside a caller-owned transaction. The row lock
// taken by the UPDATE holds until that transaction commits, so the counter
// only advances when the surrounding work succeeds.
func NextInTx(ctx context.Context, tx pgx.Tx, companyID int64, branchID *int64, docType DocumentType) (string, error) {
	return next(ctx, tx, companyID, branchID, docType)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func next(ctx context.Context, q rowQuerier, companyID int64, branchID *int64, docType DocumentType) (string, error) {
	var (
		prefix  string
		number  int64
		padding int
	)
	err := q.QueryRow(ctx, `UPDATE document_sequences
SET current_number = current_number + 1, updated_at = NOW()
WHERE company_id=$1 AND branch_id IS NOT DISTINCT FROM $2 AND document_type=$3
RETURNING prefix, current_number, padding`,
		companyID, branchID, docType).Scan(&prefix, &number, &padding)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrSequenceNotFound, docType)
		}
		return "", err
	}
	return Format(prefix, number, padding), nil
}

// Format renders a minted counter value as a document number, e.g. CN-0042.
func Format(prefix string, number int64, padding int) string {
	if padding <= 0 {
		padding = 4
	}
	digits := fmt.Sprintf("%0*d", padding, number)
	if prefix == "" {
		return digits
	}
	if strings.HasSuffix(prefix, "-") {
		return prefix + digits
	}
	return prefix + "-" + digits
}
