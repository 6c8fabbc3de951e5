package model

import "strings"

// SuggestionLine is one reconstructed line of a code suggestion.
type SuggestionLine struct {
	Marker SuggestionMarker
	Text   string
}

// SuggestionDiff is the reconstructed code suggestion for one inline
// comment. It has no identity of its own; it exists only attached to an
// InlineComment. Anchor and nearest-line extractions populate Lines in
// table row order; raw-text extraction stores the payload text verbatim
// in Raw instead.
type SuggestionDiff struct {
	Origin SuggestionOrigin
	Lines  []SuggestionLine
	Raw    string
}

// IsEmpty reports whether the diff carries no content at all.
func (d *SuggestionDiff) IsEmpty() bool {
	return d == nil || (len(d.Lines) == 0 && strings.TrimSpace(d.Raw) == "")
}

// Unified renders the diff in unified notation, one line per entry with a
// "- " or "+ " prefix. Raw-text diffs are returned as-is, trimmed of
// surrounding whitespace.
func (d *SuggestionDiff) Unified() string {
	if d == nil {
		return ""
	}
	if d.Origin == OriginRawText {
		return strings.TrimSpace(d.Raw)
	}
	var b strings.Builder
	for i, line := range d.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		if line.Marker == MarkerRemoved {
			b.WriteString("- ")
		} else {
			b.WriteString("+ ")
		}
		b.WriteString(line.Text)
	}
	return b.String()
}
