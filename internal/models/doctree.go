package models

// ItemLabel tags a text item in the converted document tree.
type ItemLabel string

const (
	LabelText          ItemLabel = "text"
	LabelSectionHeader ItemLabel = "section_header"
	LabelFormula       ItemLabel = "formula"
	LabelCode          ItemLabel = "code"
	LabelCaption       ItemLabel = "caption"
	LabelListItem      ItemLabel = "list_item"
)

// Document is the structural tree produced by a conversion engine. It is
// read-only after the engine call returns; the aggregator and exporter
// walk it without mutation.
type Document struct {
	Name      string     `json:"name"`
	PageCount int        `json:"page_count"`
	Texts     []TextItem `json:"texts"`
	Tables    []Table    `json:"tables"`
	Pictures  []Picture  `json:"pictures"`
}

// TextItem is one labelled text element in reading order.
type TextItem struct {
	Label ItemLabel `json:"label"`
	Text  string    `json:"text"`
	Page  int       `json:"page,omitempty"`
	Level int       `json:"level,omitempty"` // heading level, section headers only
}

// Table is one recognised table. Cells is row-major and may be empty
// when the engine only reports presence.
type Table struct {
	Rows  int        `json:"rows"`
	Cols  int        `json:"cols"`
	Cells [][]string `json:"cells,omitempty"`
	Page  int        `json:"page,omitempty"`
}

// Picture is one detected image, optionally classified and captioned by
// the enrichment stages.
type Picture struct {
	Classification string `json:"classification,omitempty"`
	Description    string `json:"description,omitempty"`
	Page           int    `json:"page,omitempty"`
}
