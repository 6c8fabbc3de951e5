package cli_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/phabdigest/internal/adapter/driving/cli"
	"github.com/ericfisherdev/phabdigest/internal/domain/model"
)

func TestRenderHTML_WrapsDocument(t *testing.T) {
	doc := &model.Document{
		Revision: testRevision(),
		General: []model.Comment{
			{CommentID: 10, Author: "Alice", CreatedAt: docTime(0), Body: "**bold** remark"},
		},
	}

	out, err := cli.RenderHTML(doc)
	require.NoError(t, err)

	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "<title>Phabricator Review Comments - D123</title>")
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<strong>bold</strong>")
}

func TestRenderHTML_SanitizesScript(t *testing.T) {
	doc := &model.Document{
		Revision: testRevision(),
		General: []model.Comment{
			{CommentID: 10, Author: "Alice", CreatedAt: docTime(0), Body: `<script>alert("xss")</script>`},
		},
	}

	out, err := cli.RenderHTML(doc)
	require.NoError(t, err)

	assert.NotContains(t, out, "<script>")
}

func TestRenderHTML_DiffFence(t *testing.T) {
	doc := &model.Document{
		Revision: testRevision(),
		Files: []model.FileSection{
			{Path: "a.go", Comments: []model.InlineComment{
				{
					CommentID: 1, Author: "Alice", CreatedAt: docTime(0), Line: 5, Length: 1,
					Suggestion: &model.SuggestionDiff{
						Origin: model.OriginAnchor,
						Lines:  []model.SuggestionLine{{Marker: model.MarkerRemoved, Text: "foo();"}},
					},
				},
			}},
		},
	}

	out, err := cli.RenderHTML(doc)
	require.NoError(t, err)

	assert.Contains(t, out, "<code")
	assert.Contains(t, out, "- foo();")
}
