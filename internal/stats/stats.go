// Package stats aggregates per-document enrichment statistics for
// observability.
package stats

import (
	"github.com/feichai0017/doc-converter/internal/models"
)

// Aggregate walks the document's structural elements exactly once and
// counts them by kind. Absent categories count as zero; the tree is
// never mutated.
func Aggregate(doc *models.Document) models.EnrichmentStats {
	agg := models.EnrichmentStats{
		Images: len(doc.Pictures),
		Tables: len(doc.Tables),
	}

	for _, item := range doc.Texts {
		switch item.Label {
		case models.LabelFormula:
			agg.Formulas++
		case models.LabelCode:
			agg.CodeBlocks++
		}
	}

	return agg
}
