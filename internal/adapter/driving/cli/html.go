package cli

import (
	"bytes"
	"fmt"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrender "github.com/yuin/goldmark/renderer/html"

	"github.com/ericfisherdev/phabdigest/internal/domain/model"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(htmlrender.WithUnsafe()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
}

const pageShell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s
</body>
</html>
`

// RenderHTML converts the document's Markdown rendering into a standalone
// sanitized HTML page.
func RenderHTML(doc *model.Document) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(RenderMarkdown(doc)), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}

	title := fmt.Sprintf("Phabricator Review Comments - D%d", doc.Revision.ID)
	body := htmlSanitizer.Sanitize(buf.String())

	return fmt.Sprintf(pageShell, html.EscapeString(title), body), nil
}
