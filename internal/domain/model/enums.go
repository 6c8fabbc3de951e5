package model

// TransactionType identifies the kind of event a transaction records.
// Only the types listed here are meaningful to extraction; anything else
// coming off the wire is carried as-is and ignored downstream.
type TransactionType string

const (
	TransactionComment        TransactionType = "comment"
	TransactionInline         TransactionType = "inline"
	TransactionAccept         TransactionType = "accept"
	TransactionReject         TransactionType = "reject"
	TransactionRequestChanges TransactionType = "request-changes"
	TransactionRequestReview  TransactionType = "request-review"
)

// IsReviewAction reports whether the transaction records a review verdict
// rather than discussion text.
func (t TransactionType) IsReviewAction() bool {
	switch t {
	case TransactionAccept, TransactionReject, TransactionRequestChanges, TransactionRequestReview:
		return true
	}
	return false
}

// Describe returns a short human-readable phrase for a review verdict.
func (t TransactionType) Describe() string {
	switch t {
	case TransactionAccept:
		return "Accepted"
	case TransactionReject:
		return "Rejected"
	case TransactionRequestChanges:
		return "Requested changes"
	case TransactionRequestReview:
		return "Requested review"
	}
	return string(t)
}

// SuggestionMarker classifies one reconstructed suggestion line.
type SuggestionMarker string

const (
	MarkerRemoved SuggestionMarker = "removed"
	MarkerAdded   SuggestionMarker = "added"
)

// SuggestionOrigin records which extraction strategy produced a suggestion.
type SuggestionOrigin string

const (
	OriginAnchor      SuggestionOrigin = "anchor"       // Deterministic comment-id anchor match.
	OriginNearestLine SuggestionOrigin = "nearest-line" // Line-proximity heuristic; approximate.
	OriginRawText     SuggestionOrigin = "raw-text"     // Verbatim suggestionText payload field.
)
