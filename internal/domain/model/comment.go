package model

import "time"

// Comment is a revision-level discussion comment with its author resolved
// to a display name.
type Comment struct {
	TransactionID int64
	CommentID     int64
	Author        string
	AuthorPHID    string
	CreatedAt     time.Time
	Body          string
}

// InlineComment is a comment attached to a file and line range. CommentID is
// unique within a revision and is the only key valid for deterministic
// suggestion matching. Suggestion starts nil and is attached at most once by
// the extraction engine; no other field mutates after construction.
type InlineComment struct {
	TransactionID int64
	CommentID     int64
	Author        string
	AuthorPHID    string
	CreatedAt     time.Time
	Body          string
	Path          string
	Line          int
	Length        int
	ChangesetRef  int64
	Done          bool
	Suggestion    *SuggestionDiff
}

// EndLine returns the last line covered by the comment's range.
func (c InlineComment) EndLine() int {
	if c.Length > 1 {
		return c.Line + c.Length - 1
	}
	return c.Line
}

// ReviewAction is a review verdict (accept, reject, ...) on a revision,
// with any text the reviewer attached to it.
type ReviewAction struct {
	TransactionID int64
	Type          TransactionType
	Author        string
	AuthorPHID    string
	CreatedAt     time.Time
	Comments      []string
}
