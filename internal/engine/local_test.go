package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/doc-converter/internal/models"
	"github.com/feichai0017/doc-converter/pkg/logger"
)

func TestLocalEngineCanConvert(t *testing.T) {
	eng := NewLocalEngine(logger.NewTestLogger())

	assert.True(t, eng.CanConvert("application/pdf"))
	assert.True(t, eng.CanConvert("text/plain"))
	assert.True(t, eng.CanConvert("text/markdown"))
	assert.False(t, eng.CanConvert("application/vnd.openxmlformats-officedocument.wordprocessingml.document"))
	assert.False(t, eng.CanConvert("image/png"))
}

func TestLocalEnginePlainText(t *testing.T) {
	eng := NewLocalEngine(logger.NewTestLogger())

	doc, err := eng.Convert(context.Background(), Source{
		Reader:   strings.NewReader("a single paragraph\n"),
		Filename: "a.txt",
		MIME:     "text/plain",
	}, Options{})

	require.NoError(t, err)
	assert.Equal(t, 1, doc.PageCount)
	require.Len(t, doc.Texts, 1)
	assert.Equal(t, models.LabelText, doc.Texts[0].Label)
	assert.Equal(t, "a single paragraph", doc.Texts[0].Text)
}

func TestLocalEngineMarkdownStructure(t *testing.T) {
	eng := NewLocalEngine(logger.NewTestLogger())

	input := strings.Join([]string{
		"# Title",
		"",
		"First paragraph",
		"spanning two lines.",
		"",
		"## Section",
		"",
		"- first item",
		"- second item",
		"",
		"```",
		"x := 1",
		"```",
		"",
	}, "\n")

	doc, err := eng.Convert(context.Background(), Source{
		Reader:   strings.NewReader(input),
		Filename: "doc.md",
		MIME:     "text/markdown",
	}, Options{})

	require.NoError(t, err)
	require.Len(t, doc.Texts, 6)

	assert.Equal(t, models.LabelSectionHeader, doc.Texts[0].Label)
	assert.Equal(t, "Title", doc.Texts[0].Text)
	assert.Equal(t, 1, doc.Texts[0].Level)

	assert.Equal(t, models.LabelText, doc.Texts[1].Label)
	assert.Equal(t, "First paragraph spanning two lines.", doc.Texts[1].Text)

	assert.Equal(t, models.LabelSectionHeader, doc.Texts[2].Label)
	assert.Equal(t, 2, doc.Texts[2].Level)

	assert.Equal(t, models.LabelListItem, doc.Texts[3].Label)
	assert.Equal(t, "first item", doc.Texts[3].Text)
	assert.Equal(t, models.LabelListItem, doc.Texts[4].Label)

	assert.Equal(t, models.LabelCode, doc.Texts[5].Label)
	assert.Equal(t, "x := 1", doc.Texts[5].Text)
}

func TestLocalEngineRejectsUnknownMIME(t *testing.T) {
	eng := NewLocalEngine(logger.NewTestLogger())

	_, err := eng.Convert(context.Background(), Source{
		Reader: strings.NewReader("data"),
		MIME:   "application/zip",
	}, Options{})

	assert.Error(t, err)
}
