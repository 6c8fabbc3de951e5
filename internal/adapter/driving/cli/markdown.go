package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/phabdigest/internal/domain/model"
)

// Placeholders kept byte-identical to the historical export format so
// downstream tooling matching on them keeps working.
const (
	emptyCommentPlaceholder = "*[Empty comment]*"
	emptyInlinePlaceholder  = "*[Empty inline comment - likely contains a code suggestion that cannot be extracted via API]*"
)

const dateLayout = "2006-01-02 15:04:05"

// RenderMarkdown serializes a reconciled document into the Markdown export
// layout. Section order and comment order are fixed by the document
// builder; this function only lays out lines.
func RenderMarkdown(doc *model.Document) string {
	var lines []string

	lines = append(lines, fmt.Sprintf("# Phabricator Review Comments - %s", doc.Revision.URL()))
	lines = append(lines, "")

	if len(doc.General) > 0 {
		lines = append(lines, "## General Comments", "")
		for _, c := range doc.General {
			lines = append(lines, fmt.Sprintf("### Comment by %s (%s)", c.Author, formatDate(c.CreatedAt)))
			lines = append(lines, "")
			lines = append(lines, generalBody(c))
			lines = append(lines, "", "---", "")
		}
	}

	if len(doc.Actions) > 0 {
		lines = append(lines, "## Review Actions", "")
		for _, a := range doc.Actions {
			lines = append(lines, fmt.Sprintf("### %s by %s (%s)", a.Type.Describe(), a.Author, formatDate(a.CreatedAt)))
			lines = append(lines, "")
			for _, remark := range a.Comments {
				lines = append(lines, remark, "")
			}
			lines = append(lines, "---", "")
		}
	}

	if len(doc.Files) > 0 {
		lines = append(lines, "## Inline Comments", "")
		for _, f := range doc.Files {
			lines = append(lines, fmt.Sprintf("### File: `%s`", f.Path), "")
			for _, c := range f.Comments {
				lines = append(lines, inlineHeading(c), "")
				lines = append(lines, inlineBody(c))
				lines = append(lines, "", "---", "")
			}
		}
	}

	return strings.Join(lines, "\n")
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func generalBody(c model.Comment) string {
	if c.Body == "" {
		return emptyCommentPlaceholder
	}
	return c.Body
}

func inlineHeading(c model.InlineComment) string {
	lineInfo := fmt.Sprintf("Line %d", c.Line)
	if c.Length > 1 {
		lineInfo = fmt.Sprintf("Line %d-%d", c.Line, c.EndLine())
	}

	marker := ""
	if c.Done {
		marker = " [DONE]"
	}

	return fmt.Sprintf("#### %s - %s (%s)%s", lineInfo, c.Author, formatDate(c.CreatedAt), marker)
}

// inlineBody lays out the comment text and its reconstructed suggestion.
// Empty comments with no recoverable suggestion keep the legacy
// placeholder.
func inlineBody(c model.InlineComment) string {
	block := suggestionBlock(c.Suggestion)
	switch {
	case c.Body != "" && block != "":
		return c.Body + "\n\n" + block
	case c.Body != "":
		return c.Body
	case block != "":
		return block
	default:
		return emptyInlinePlaceholder
	}
}

// suggestionBlock renders a diff as the bold label plus a fenced diff
// block, or nothing when the diff carries no content.
func suggestionBlock(d *model.SuggestionDiff) string {
	if d.IsEmpty() {
		return ""
	}
	return fmt.Sprintf("**Suggested changes:**\n\n```diff\n%s\n```", d.Unified())
}
