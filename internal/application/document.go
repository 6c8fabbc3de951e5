package application

import (
	"sort"

	"github.com/ericfisherdev/phabdigest/internal/domain/model"
)

// authorName resolves a display name from the per-run name cache, falling
// back to the raw PHID, or "unknown" when the feed carried no author at all.
func authorName(names map[string]string, phid string) string {
	if name, ok := names[phid]; ok && name != "" {
		return name
	}
	if phid == "" {
		return "unknown"
	}
	return phid
}

// buildGeneralComments maps comment transactions to general review comments,
// one per attached comment record.
func buildGeneralComments(txs []model.Transaction, names map[string]string) []model.Comment {
	var comments []model.Comment
	for _, tx := range txs {
		if tx.Type != model.TransactionComment {
			continue
		}
		for _, c := range tx.Comments {
			comments = append(comments, model.Comment{
				TransactionID: tx.ID,
				CommentID:     c.ID,
				Author:        authorName(names, tx.AuthorPHID),
				AuthorPHID:    tx.AuthorPHID,
				CreatedAt:     tx.CreatedAt,
				Body:          c.Raw,
			})
		}
	}
	return comments
}

// buildInlineComments maps inline transactions to inline comments carrying
// their file position fields.
func buildInlineComments(txs []model.Transaction, names map[string]string) []model.InlineComment {
	var comments []model.InlineComment
	for _, tx := range txs {
		if tx.Type != model.TransactionInline || tx.Inline == nil {
			continue
		}
		for _, c := range tx.Comments {
			comments = append(comments, model.InlineComment{
				TransactionID: tx.ID,
				CommentID:     c.ID,
				Author:        authorName(names, tx.AuthorPHID),
				AuthorPHID:    tx.AuthorPHID,
				CreatedAt:     tx.CreatedAt,
				Body:          c.Raw,
				Path:          tx.Inline.Path,
				Line:          tx.Inline.Line,
				Length:        tx.Inline.Length,
				ChangesetRef:  tx.Inline.ChangesetRef,
				Done:          tx.Inline.IsDone,
			})
		}
	}
	return comments
}

// buildReviewActions collects review verdict transactions with any non-empty
// remarks attached to them.
func buildReviewActions(txs []model.Transaction, names map[string]string) []model.ReviewAction {
	var actions []model.ReviewAction
	for _, tx := range txs {
		if !tx.Type.IsReviewAction() {
			continue
		}

		var remarks []string
		for _, c := range tx.Comments {
			if c.Raw != "" {
				remarks = append(remarks, c.Raw)
			}
		}

		actions = append(actions, model.ReviewAction{
			TransactionID: tx.ID,
			Type:          tx.Type,
			Author:        authorName(names, tx.AuthorPHID),
			AuthorPHID:    tx.AuthorPHID,
			CreatedAt:     tx.CreatedAt,
			Comments:      remarks,
		})
	}
	return actions
}

// dropDone removes resolved inline comments.
func dropDone(inline []model.InlineComment) []model.InlineComment {
	kept := make([]model.InlineComment, 0, len(inline))
	for _, ic := range inline {
		if ic.Done {
			continue
		}
		kept = append(kept, ic)
	}
	return kept
}

// assembleDocument applies the done filter, orders every section by
// timestamp with comment id tie-breaks, and groups inline comments into
// lexically ordered file sections. A comment appears in exactly one section.
func assembleDocument(rev model.Revision, general []model.Comment, actions []model.ReviewAction, inline []model.InlineComment, includeDone bool) model.Document {
	if !includeDone {
		inline = dropDone(inline)
	}

	sort.Slice(general, func(i, j int) bool {
		if !general[i].CreatedAt.Equal(general[j].CreatedAt) {
			return general[i].CreatedAt.Before(general[j].CreatedAt)
		}
		return general[i].CommentID < general[j].CommentID
	})

	sort.Slice(actions, func(i, j int) bool {
		if !actions[i].CreatedAt.Equal(actions[j].CreatedAt) {
			return actions[i].CreatedAt.Before(actions[j].CreatedAt)
		}
		return actions[i].TransactionID < actions[j].TransactionID
	})

	// Group by file path, then order sections lexically.
	byPath := make(map[string][]model.InlineComment)
	for _, ic := range inline {
		byPath[ic.Path] = append(byPath[ic.Path], ic)
	}

	paths := make([]string, 0, len(byPath))
	for path := range byPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	files := make([]model.FileSection, 0, len(paths))
	for _, path := range paths {
		section := byPath[path]
		sort.Slice(section, func(i, j int) bool {
			if !section[i].CreatedAt.Equal(section[j].CreatedAt) {
				return section[i].CreatedAt.Before(section[j].CreatedAt)
			}
			return section[i].CommentID < section[j].CommentID
		})
		files = append(files, model.FileSection{Path: path, Comments: section})
	}

	return model.Document{
		Revision: rev,
		General:  general,
		Actions:  actions,
		Files:    files,
	}
}
