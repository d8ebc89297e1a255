package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/loomworks-erp/loomworks-erp/internal/accounting/shared"
)

// MetricsPort receives posting counters.
type MetricsPort interface {
	JournalPosted()
}

// ReceivableResolver narrows the accounts dependency to the single lookup
// posting needs.
type ReceivableResolver func(ctx context.Context, companyID int64) (int64, error)

// Service posts and reverses journal entries.
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

// List returns journal entries matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	if filter.CompanyID <= 0 {
		return nil, errors.New("accounting: company required")
	}
	return s.repo.List(ctx, filter)
}

// Get returns one entry with its lines.
func (s *Service) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	entry, lines, err := s.repo.GetWithLines(ctx, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

// Post validates the candidate entry and writes header, lines and source
// link in one transaction. Nothing is persisted when validation fails, and
// a retried posting for the same (kind, reference) surfaces
// ErrSourceAlreadyLinked instead of a duplicate.
func (s *Service) Post(ctx context.Context, input PostingInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	if s.receivable != nil {
		arID, err := s.receivable(ctx, input.CompanyID)
		if err != nil && !errors.Is(err, shared.ErrAccountNotConfigured) {
			return JournalEntry{}, err
		}
		if err == nil {
			if err := input.ValidateReceivableRules(arID); err != nil {
				return JournalEntry{}, err
			}
		}
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = postSteps(ctx, tx, input, s.now())
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if s.metrics != nil {
		s.metrics.JournalPosted()
	}
	if s.logger != nil {
		s.logger.Info("journal posted",
			slog.String("entry_no", entry.EntryNo),
			slog.String("kind", string(entry.Kind)),
			slog.Float64("total", entry.TotalDebit))
	}
	return entry, nil
}

// PostInTx validates and writes an entry on an already open transaction, so
// a caller can commit the journal together with its own rows. The receivable
// account id gates the same posting rules Post applies; zero skips them.
func PostInTx(ctx context.Context, tx pgx.Tx, input PostingInput, receivableAccountID int64) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	if err := input.ValidateReceivableRules(receivableAccountID); err != nil {
		return JournalEntry{}, err
	}
	return postSteps(ctx, &txRepository{tx: tx}, input, time.Now())
}

// postSteps runs the insert sequence shared by Post and PostInTx.
func postSteps(ctx context.Context, tx TxRepository, input PostingInput, ts time.Time) (JournalEntry, error) {
	entryNo, err := tx.MintEntryNumber(ctx, input.CompanyID, input.BranchID)
	if err != nil {
		return JournalEntry{}, err
	}
	inserted, err := tx.InsertJournalEntry(ctx, input, entryNo)
	if err != nil {
		return JournalEntry{}, err
	}
	if err := tx.InsertJournalLines(ctx, inserted.ID, input.Lines); err != nil {
		return JournalEntry{}, err
	}
	if err := tx.LinkSource(ctx, input, inserted.ID); err != nil {
		if errors.Is(err, shared.ErrSourceConflict) {
			return JournalEntry{}, shared.ErrSourceAlreadyLinked
		}
		return JournalEntry{}, err
	}
	inserted.Lines = toJournalLines(inserted.ID, input.Lines, ts)
	return inserted, nil
}

// Reverse appends a new entry with swapped sides. The original is never
// mutated.
func (s *Service) Reverse(ctx context.Context, input ReverseInput) (JournalEntry, error) {
	if input.EntryID == 0 {
		return JournalEntry{}, errors.New("accounting: entry id required")
	}
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, lines, err := tx.GetJournalWithLines(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if !original.Posted {
			return shared.ErrInvalidStatus
		}
		posting := PostingInput{
			CompanyID:   original.CompanyID,
			BranchID:    original.BranchID,
			EntryDate:   s.now(),
			Description: defaultReversalMemo(input.Memo, original.EntryNo),
			Kind:        original.Kind,
			ReferenceID: uuid.New(),
			CreatedBy:   input.ActorID,
			Lines:       reverseLines(lines),
		}
		entryNo, err := tx.MintEntryNumber(ctx, posting.CompanyID, posting.BranchID)
		if err != nil {
			return err
		}
		inserted, err := tx.InsertJournalEntry(ctx, posting, entryNo)
		if err != nil {
			return err
		}
		if err := tx.InsertJournalLines(ctx, inserted.ID, posting.Lines); err != nil {
			return err
		}
		if err := tx.LinkSource(ctx, posting, inserted.ID); err != nil {
			return err
		}
		inserted.Lines = toJournalLines(inserted.ID, posting.Lines, s.now())
		reversal = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return reversal, nil
}

func reverseLines(lines []JournalLine) []PostingLineInput {
	out := make([]PostingLineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, PostingLineInput{
			AccountID:   line.AccountID,
			Debit:       line.Credit,
			Credit:      line.Debit,
			Description: line.Description,
		})
	}
	return out
}

func toJournalLines(entryID int64, lines []PostingLineInput, ts time.Time) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalLine{
			JournalEntryID: entryID,
			AccountID:      line.AccountID,
			Debit:          line.Debit,
			Credit:         line.Credit,
			Description:    line.Description,
			CreatedAt:      ts,
		})
	}
	return out
}

func defaultReversalMemo(memo, entryNo string) string {
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Reversal of %s", entryNo)
}
