package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feichai0017/doc-converter/internal/models"
)

func TestAggregateCountsByKind(t *testing.T) {
	doc := &models.Document{
		PageCount: 3,
		Texts: []models.TextItem{
			{Label: models.LabelText, Text: "intro"},
			{Label: models.LabelFormula, Text: "E=mc^2"},
			{Label: models.LabelFormula, Text: "a^2+b^2=c^2"},
			{Label: models.LabelCode, Text: "fmt.Println()"},
			{Label: models.LabelSectionHeader, Text: "Results"},
		},
		Tables:   []models.Table{{Rows: 2, Cols: 2}},
		Pictures: []models.Picture{{}, {Description: "a chart"}},
	}

	agg := Aggregate(doc)
	assert.Equal(t, 2, agg.Formulas)
	assert.Equal(t, 1, agg.CodeBlocks)
	assert.Equal(t, 1, agg.Tables)
	assert.Equal(t, 2, agg.Images)
}

func TestAggregateEmptyDocument(t *testing.T) {
	agg := Aggregate(&models.Document{PageCount: 1})
	assert.Equal(t, models.EnrichmentStats{}, agg)
}
