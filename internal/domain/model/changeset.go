package model

// ChangesetFragment is the rendered diff view for one changeset reference,
// as returned by the changeset endpoint. HTML is opaque text; the extraction
// engine decides what to make of it. SuggestionTexts holds every
// suggestionText value found elsewhere in the same response payload, in
// document order, for the raw-text fallback.
type ChangesetFragment struct {
	Ref             int64
	HTML            string
	SuggestionTexts []string
}
