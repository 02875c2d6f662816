package models

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// EnrichmentsApplied mirrors the active profile's feature toggles. A
// stage disabled by the profile is reported false regardless of what the
// document contained.
type EnrichmentsApplied struct {
	CodeEnrichment        bool `json:"code_enrichment"`
	FormulaEnrichment     bool `json:"formula_enrichment"`
	PictureClassification bool `json:"picture_classification"`
	PictureDescription    bool `json:"picture_description"`
	TableStructure        bool `json:"table_structure"`
	OCR                   bool `json:"ocr"`
}

// EnrichmentStats counts structural elements found in one document.
type EnrichmentStats struct {
	CodeBlocks int `json:"code_blocks"`
	Formulas   int `json:"formulas"`
	Images     int `json:"images"`
	Tables     int `json:"tables"`
}

// EnvelopeMetadata describes a successful conversion.
type EnvelopeMetadata struct {
	Source             string             `json:"source"`
	Filename           string             `json:"filename"`
	PageCount          int                `json:"page_count"`
	ExportFormat       string             `json:"export_format"`
	DeviceCapability   string             `json:"device_capability"`
	EnrichmentsApplied EnrichmentsApplied `json:"enrichments_applied"`
	EnrichmentStats    EnrichmentStats    `json:"enrichment_stats"`
}

// ResponseEnvelope is the uniform job result returned by every entry
// point. Exactly one of Content/Error is populated.
type ResponseEnvelope struct {
	Status    string            `json:"status"`
	Content   string            `json:"content,omitempty"`
	Metadata  *EnvelopeMetadata `json:"metadata,omitempty"`
	Error     string            `json:"error,omitempty"`
	ErrorKind string            `json:"error_kind,omitempty"`
}

// Succeeded reports whether the envelope describes a completed job.
func (e *ResponseEnvelope) Succeeded() bool {
	return e.Status == StatusSuccess
}
