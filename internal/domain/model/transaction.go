package model

import "time"

// Transaction is one timestamped event reported by the transaction feed
// for a revision. Immutable once fetched.
type Transaction struct {
	ID         int64
	PHID       string
	Type       TransactionType
	AuthorPHID string
	CreatedAt  time.Time
	Comments   []CommentRecord
	Inline     *InlineFields // Set only when Type is TransactionInline.
}

// CommentRecord is the raw comment text attached to a transaction.
type CommentRecord struct {
	ID  int64
	Raw string
}

// InlineFields carries the placement of an inline transaction within the
// revision's diff.
type InlineFields struct {
	Path         string
	Line         int
	Length       int
	ChangesetRef int64 // Diff id the comment was left on; 0 when the feed omits it.
	IsDone       bool
}
