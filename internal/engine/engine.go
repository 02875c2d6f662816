// Package engine defines the conversion-engine capability the
// orchestrator depends on, plus the available backends. The engine is a
// collaborator: one call in, a document tree or a typed failure out.
package engine

import (
	"context"
	"io"

	"github.com/feichai0017/doc-converter/internal/capability"
	"github.com/feichai0017/doc-converter/internal/models"
)

// Source is the staged byte stream handed to an engine, with its format
// hint.
type Source struct {
	Reader   io.Reader
	Filename string
	MIME     string
	Size     int64
}

// Options is the engine-facing view of a capability profile. It is
// derived purely from the profile so the engine call can never drift
// from the resolved tier.
type Options struct {
	OCR              bool
	ForceFullPageOCR bool

	TableStructure bool
	CellMatching   bool
	TableMode      string

	CodeEnrichment        bool
	FormulaEnrichment     bool
	PictureClassification bool
	PictureDescription    bool
	GeneratePictureImages bool

	ImageScale  int
	Backend     string
	ThreadCount int

	MaxPages int
}

// OptionsFromProfile maps every profile field onto the engine options,
// with no hidden defaults.
func OptionsFromProfile(p capability.Profile) Options {
	return Options{
		OCR:                   p.OCR,
		ForceFullPageOCR:      p.ForceFullPageOCR,
		TableStructure:        p.TableStructure,
		CellMatching:          p.CellMatching,
		TableMode:             string(p.TableMode),
		CodeEnrichment:        p.CodeEnrichment,
		FormulaEnrichment:     p.FormulaEnrichment,
		PictureClassification: p.PictureClassification,
		PictureDescription:    p.PictureDescription,
		GeneratePictureImages: p.GeneratePictureImages,
		ImageScale:            p.ImageScale,
		Backend:               string(p.Backend),
		ThreadCount:           p.ThreadCount,
	}
}

// Engine converts one staged document into a structural tree. A single
// call per job; retries belong to the queue, not here.
type Engine interface {
	// CanConvert reports whether this backend handles the MIME type.
	CanConvert(mimeType string) bool

	// Convert runs the document through the backend. The returned tree
	// is read-only for the caller.
	Convert(ctx context.Context, src Source, opts Options) (*models.Document, error)

	// Close releases backend resources.
	Close() error
}
