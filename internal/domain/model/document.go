package model

// FileSection groups the inline comments of one file path, already sorted
// for rendering.
type FileSection struct {
	Path     string
	Comments []InlineComment
}

// Document is the reconciled output of one extraction run: general
// discussion first, then review verdicts, then per-file inline comments.
// Ordering inside each section is fixed by the builder; renderers only
// serialize.
type Document struct {
	Revision Revision
	General  []Comment
	Actions  []ReviewAction
	Files    []FileSection
}

// CommentCount returns the total number of comments across all sections.
func (d *Document) CommentCount() int {
	n := len(d.General)
	for _, f := range d.Files {
		n += len(f.Comments)
	}
	return n
}
