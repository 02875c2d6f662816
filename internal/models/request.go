package models

import (
	"strings"
)

// ExportFormat selects the serialization of the converted document.
type ExportFormat string

const (
	FormatMarkdown ExportFormat = "markdown"
	FormatHTML     ExportFormat = "html"
	FormatJSON     ExportFormat = "json"
	FormatText     ExportFormat = "text"
)

// ParseExportFormat maps the request value to a known format. An empty
// value defaults to markdown; anything else unknown is rejected so a
// typo never silently changes the output shape.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return FormatMarkdown, nil
	case FormatMarkdown:
		return FormatMarkdown, nil
	case FormatHTML:
		return FormatHTML, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatText:
		return FormatText, nil
	default:
		return "", NewJobError(KindInvalidConfiguration, "unsupported export format: %s", s)
	}
}

// DocumentRequest is one conversion job as submitted to either entry
// point. Exactly one of DocumentURL/DocumentBytes must be set.
type DocumentRequest struct {
	DocumentURL      string `json:"document_url,omitempty"`
	DocumentBytes    string `json:"document_bytes,omitempty"` // base64
	Filename         string `json:"filename,omitempty"`
	ExportFormat     string `json:"export_format,omitempty"`
	DeviceCapability string `json:"device_capability,omitempty"`
}

// Validate enforces the exactly-one-source invariant.
func (r *DocumentRequest) Validate() error {
	if r.DocumentURL == "" && r.DocumentBytes == "" {
		return NewJobError(KindInvalidConfiguration, "either document_url or document_bytes must be provided")
	}
	if r.DocumentURL != "" && r.DocumentBytes != "" {
		return NewJobError(KindInvalidConfiguration, "exactly one of document_url and document_bytes may be provided")
	}
	return nil
}

// Source names where the document came from, for the envelope metadata.
func (r *DocumentRequest) Source() string {
	if r.DocumentURL != "" {
		return r.DocumentURL
	}
	return "inline"
}

// InferredFilename prefers the declared filename, then the last URL path
// segment, then a generic placeholder.
func (r *DocumentRequest) InferredFilename() string {
	if r.Filename != "" {
		return r.Filename
	}
	if r.DocumentURL != "" {
		trimmed := strings.TrimRight(r.DocumentURL, "/")
		if idx := strings.LastIndex(trimmed, "/"); idx >= 0 && idx < len(trimmed)-1 {
			name := trimmed[idx+1:]
			if q := strings.IndexAny(name, "?#"); q >= 0 {
				name = name[:q]
			}
			if name != "" {
				return name
			}
		}
	}
	return "document"
}
