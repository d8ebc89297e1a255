package shared

import "errors"

var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("accounting: journal requires at least two lines")
	// ErrBothSides indicates a line with debit and credit both set.
	ErrBothSides = errors.New("accounting: line cannot carry both debit and credit")
	// ErrSourceAlreadyLinked indicates idempotency conflict.
	ErrSourceAlreadyLinked = errors.New("accounting: source already linked")
	// ErrJournalNotFound indicates missing entry.
	ErrJournalNotFound = errors.New("accounting: journal entry not found")
	// ErrInvalidStatus indicates action can't proceed.
	ErrInvalidStatus = errors.New("accounting: invalid status transition")
	// ErrAccountNotConfigured indicates a default account role is missing.
	ErrAccountNotConfigured = errors.New("accounting: default account not configured")
	// ErrReceivableRule indicates a posting violating the receivable sign rules.
	ErrReceivableRule = errors.New("accounting: receivable account rule violated")
	// ErrSourceConflict indicates the source link already exists.
	ErrSourceConflict = errors.New("accounting: source link conflict")
)
