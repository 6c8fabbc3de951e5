// Package application contains use-case orchestration services.
package application

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ericfisherdev/phabdigest/internal/domain/model"
)

// Class and anchor vocabulary of rendered changeset fragments.
const (
	classInlineComment  = "differential-inline-comment"
	classSuggestionView = "inline-suggestion-view"
	classInlineDone     = "inline-is-done"
	anchorPrefix        = "inline-"
)

// fragmentPage is one changeset fragment parsed for suggestion extraction,
// so that repeated per-comment lookups share a single parse.
type fragmentPage struct {
	root     *html.Node
	rawTexts []string
}

// parseFragment builds a fragmentPage from a fetched fragment. The HTML
// parser is lenient; broken markup yields a best-effort tree rather than an
// error. A nil fragment yields a nil page.
func parseFragment(fragment *model.ChangesetFragment) *fragmentPage {
	if fragment == nil {
		return nil
	}

	root, err := html.Parse(strings.NewReader(fragment.HTML))
	if err != nil {
		return &fragmentPage{rawTexts: fragment.SuggestionTexts}
	}
	return &fragmentPage{root: root, rawTexts: fragment.SuggestionTexts}
}

// extractionStrategy resolves a suggestion for one inline comment. The final
// flag stops the chain even with a nil suggestion, which is how a resolved
// comment is suppressed without letting a later strategy resurrect it.
type extractionStrategy func(p *fragmentPage, commentID int64, line int, includeDone bool) (*model.SuggestionDiff, bool)

// extractionStrategies in priority order; the first success wins.
var extractionStrategies = []extractionStrategy{
	extractByAnchor,
	extractByNearestLine,
	extractFromRawText,
}

// ExtractSuggestion resolves the code suggestion for one inline comment from
// its changeset fragment. Strategies run in priority order: deterministic
// anchor match, nearest-line heuristic, raw suggestion text. Returns nil
// when no strategy succeeds, or when the anchored comment is resolved and
// includeDone is false.
func ExtractSuggestion(fragment *model.ChangesetFragment, commentID int64, line int, includeDone bool) *model.SuggestionDiff {
	return parseFragment(fragment).extract(commentID, line, includeDone)
}

func (p *fragmentPage) extract(commentID int64, line int, includeDone bool) *model.SuggestionDiff {
	if p == nil {
		return nil
	}

	for _, strat := range extractionStrategies {
		if sug, final := strat(p, commentID, line, includeDone); sug != nil || final {
			return sug
		}
	}
	return nil
}

// extractByAnchor locates the comment's own container through its inline
// anchor and parses the suggestion table inside it. This is the only
// strategy that cannot misattribute a neighbouring comment's suggestion.
func extractByAnchor(p *fragmentPage, commentID int64, _ int, includeDone bool) (*model.SuggestionDiff, bool) {
	if p.root == nil {
		return nil, false
	}

	anchor := findAnchor(p.root, anchorPrefix+strconv.FormatInt(commentID, 10))
	if anchor == nil {
		return nil, false
	}

	container := commentContainer(anchor)
	if container == nil {
		return nil, false
	}

	if !includeDone && isDoneComment(container) {
		return nil, true
	}

	view := findNode(container, func(n *html.Node) bool { return hasClass(n, classSuggestionView) })
	if view == nil {
		return nil, false
	}

	lines := parseSuggestionTable(view)
	if len(lines) == 0 {
		return nil, false
	}

	return &model.SuggestionDiff{Origin: model.OriginAnchor, Lines: lines}, false
}

// extractByNearestLine attributes a suggestion by diff-line proximity when
// no anchor resolves. Known to misattribute when several commented lines
// cluster; it survives only as a fallback for fragments without anchors.
func extractByNearestLine(p *fragmentPage, _ int64, line int, includeDone bool) (*model.SuggestionDiff, bool) {
	if p.root == nil {
		return nil, false
	}

	var best *html.Node
	bestDist := math.MaxInt
	current := -1 // last line-number marker seen before the current node

	forEachNode(p.root, func(n *html.Node) {
		if v, ok := lineMarkerValue(n); ok {
			current = v
			return
		}
		if !hasClass(n, classSuggestionView) {
			return
		}
		if !includeDone && isDoneComment(n) {
			return
		}

		dist := math.MaxInt
		if current >= 0 {
			dist = abs(current - line)
		}
		// Strict less-than keeps the earliest block on ties.
		if best == nil || dist < bestDist {
			best = n
			bestDist = dist
		}
	})

	if best == nil {
		return nil, false
	}

	lines := parseSuggestionTable(best)
	if len(lines) == 0 {
		return nil, false
	}

	return &model.SuggestionDiff{Origin: model.OriginNearestLine, Lines: lines}, false
}

// extractFromRawText falls back to the first embedded suggestionText payload
// value when no suggestion view is present in the markup.
func extractFromRawText(p *fragmentPage, _ int64, _ int, _ bool) (*model.SuggestionDiff, bool) {
	for _, text := range p.rawTexts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		return &model.SuggestionDiff{Origin: model.OriginRawText, Raw: text}, false
	}
	return nil, false
}

// findAnchor returns the element whose id or name attribute equals anchorID.
func findAnchor(root *html.Node, anchorID string) *html.Node {
	return findNode(root, func(n *html.Node) bool {
		return attrVal(n, "id") == anchorID || attrVal(n, "name") == anchorID
	})
}

// commentContainer resolves the inline-comment block an anchor belongs to:
// an enclosing container when the anchor sits inside one, otherwise the
// first container following the anchor in document order.
func commentContainer(anchor *html.Node) *html.Node {
	for n := anchor; n != nil; n = n.Parent {
		if hasClass(n, classInlineComment) {
			return n
		}
	}

	seen := false
	return findNode(documentRoot(anchor), func(n *html.Node) bool {
		if n == anchor {
			seen = true
			return false
		}
		return seen && hasClass(n, classInlineComment)
	})
}

// isDoneComment reports whether the node or any ancestor carries the
// resolved-comment class.
func isDoneComment(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if hasClass(n, classInlineDone) {
			return true
		}
	}
	return false
}

// parseSuggestionTable reconstructs diff lines from a suggestion view. Each
// table row contributes at most one line: removed when only the old-side
// cell has content, added when only the new-side cell has content. Rows with
// both or neither populated carry no change and are skipped. Row order is
// preserved.
func parseSuggestionTable(view *html.Node) []model.SuggestionLine {
	table := view
	if view.DataAtom != atom.Table {
		table = findNode(view, func(n *html.Node) bool { return n.DataAtom == atom.Table })
	}
	if table == nil {
		return nil
	}

	var lines []model.SuggestionLine
	forEachNode(table, func(n *html.Node) {
		if n.DataAtom != atom.Tr {
			return
		}
		oldText, newText := rowSides(n)
		switch {
		case oldText != "" && newText == "":
			lines = append(lines, model.SuggestionLine{Marker: model.MarkerRemoved, Text: oldText})
		case newText != "" && oldText == "":
			lines = append(lines, model.SuggestionLine{Marker: model.MarkerAdded, Text: newText})
		}
	})
	return lines
}

// rowSides returns the trimmed text of the first old-side and new-side cells
// in a table row.
func rowSides(row *html.Node) (oldText, newText string) {
	oldCell := findNode(row, func(n *html.Node) bool {
		return n.DataAtom == atom.Td && (hasClass(n, "old") || hasClass(n, "diff-old"))
	})
	newCell := findNode(row, func(n *html.Node) bool {
		return n.DataAtom == atom.Td && (hasClass(n, "new") || hasClass(n, "diff-new"))
	})

	if oldCell != nil {
		oldText = strings.TrimSpace(nodeText(oldCell))
	}
	if newCell != nil {
		newText = strings.TrimSpace(nodeText(newCell))
	}
	return oldText, newText
}

// lineMarkerValue reads a line number from a diff line-number cell, via its
// data-n attribute or its text.
func lineMarkerValue(n *html.Node) (int, bool) {
	if n.Type != html.ElementNode || n.DataAtom != atom.Th {
		return 0, false
	}
	if v := attrVal(n, "data-n"); v != "" {
		if num, err := strconv.Atoi(v); err == nil {
			return num, true
		}
	}
	if num, err := strconv.Atoi(strings.TrimSpace(nodeText(n))); err == nil {
		return num, true
	}
	return 0, false
}

// forEachNode visits n and its descendants in document (pre-)order.
func forEachNode(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		forEachNode(c, fn)
	}
}

// findNode returns the first node in document order, n included, matching
// the predicate.
func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

// nodeText concatenates all text content under n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	forEachNode(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return sb.String()
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, f := range strings.Fields(attrVal(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attrVal(n *html.Node, key string) string {
	if n.Type != html.ElementNode {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func documentRoot(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
