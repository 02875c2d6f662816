package export

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/doc-converter/internal/capability"
	"github.com/feichai0017/doc-converter/internal/models"
)

func sampleDoc() *models.Document {
	return &models.Document{
		Name:      "sample.pdf",
		PageCount: 2,
		Texts: []models.TextItem{
			{Label: models.LabelSectionHeader, Text: "Overview", Level: 1},
			{Label: models.LabelText, Text: "Some prose."},
			{Label: models.LabelFormula, Text: "x^2"},
			{Label: models.LabelCode, Text: "return nil"},
		},
		Tables: []models.Table{
			{Rows: 2, Cols: 2, Cells: [][]string{{"a", "b"}, {"1", "2"}}},
		},
		Pictures: []models.Picture{{Description: "a diagram"}},
	}
}

func TestExportMarkdown(t *testing.T) {
	out, err := Export(sampleDoc(), models.FormatMarkdown)
	require.NoError(t, err)

	assert.Contains(t, out, "# Overview")
	assert.Contains(t, out, "$$x^2$$")
	assert.Contains(t, out, "```\nreturn nil\n```")
	assert.Contains(t, out, "| a | b |")
	assert.Contains(t, out, "<!-- image -->")
	assert.Contains(t, out, "*a diagram*")
}

func TestExportHTMLEscapes(t *testing.T) {
	doc := &models.Document{
		PageCount: 1,
		Texts:     []models.TextItem{{Label: models.LabelText, Text: "<script>alert(1)</script>"}},
	}
	out, err := Export(doc, models.FormatHTML)
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestExportJSONRoundTrips(t *testing.T) {
	out, err := Export(sampleDoc(), models.FormatJSON)
	require.NoError(t, err)

	var decoded models.Document
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 2, decoded.PageCount)
	assert.Len(t, decoded.Texts, 4)
}

func TestExportText(t *testing.T) {
	out, err := Export(sampleDoc(), models.FormatText)
	require.NoError(t, err)
	assert.Contains(t, out, "Some prose.")
	assert.Contains(t, out, "a\tb")
}

func TestExportIdempotent(t *testing.T) {
	doc := sampleDoc()
	for _, format := range []models.ExportFormat{
		models.FormatMarkdown, models.FormatHTML, models.FormatJSON, models.FormatText,
	} {
		first, err := Export(doc, format)
		require.NoError(t, err)
		second, err := Export(doc, format)
		require.NoError(t, err)
		assert.Equal(t, first, second, "format %s", format)
	}
}

func TestPackageSuccessEnvelope(t *testing.T) {
	profile, err := capability.Resolve(capability.High)
	require.NoError(t, err)

	req := &models.DocumentRequest{DocumentURL: "https://example.com/a.pdf"}
	env, err := Package(req, sampleDoc(), models.EnrichmentStats{Tables: 1, Images: 1}, models.FormatMarkdown, profile)
	require.NoError(t, err)

	assert.Equal(t, models.StatusSuccess, env.Status)
	assert.True(t, env.Succeeded())
	assert.NotEmpty(t, env.Content)
	require.NotNil(t, env.Metadata)
	assert.Equal(t, "https://example.com/a.pdf", env.Metadata.Source)
	assert.Equal(t, "a.pdf", env.Metadata.Filename)
	assert.Equal(t, 2, env.Metadata.PageCount)
	assert.Equal(t, "high", env.Metadata.DeviceCapability)
	assert.True(t, env.Metadata.EnrichmentsApplied.OCR)
	assert.Empty(t, env.Error)
}

func TestPackageIdempotentContent(t *testing.T) {
	profile, err := capability.Resolve(capability.Low)
	require.NoError(t, err)
	req := &models.DocumentRequest{DocumentBytes: "aGVsbG8="}

	first, err := Package(req, sampleDoc(), models.EnrichmentStats{}, models.FormatMarkdown, profile)
	require.NoError(t, err)
	second, err := Package(req, sampleDoc(), models.EnrichmentStats{}, models.FormatMarkdown, profile)
	require.NoError(t, err)

	assert.Equal(t, first.Content, second.Content)
}

func TestPackageErrorEnvelope(t *testing.T) {
	env := PackageError(models.NewJobError(models.KindFetch, "unexpected status 404 fetching document"))

	assert.Equal(t, models.StatusError, env.Status)
	assert.Equal(t, "unexpected status 404 fetching document", env.Error)
	assert.Equal(t, string(models.KindFetch), env.ErrorKind)
	assert.Empty(t, env.Content)
	assert.Nil(t, env.Metadata)
	assert.False(t, strings.Contains(env.Error, "goroutine"), "no tracebacks in envelopes")
}
