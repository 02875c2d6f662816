// Package capability maps an abstract device capability level to the
// concrete bundle of enrichment toggles and resource limits the
// conversion pipeline runs with.
package capability

import (
	"strings"

	"github.com/feichai0017/doc-converter/internal/models"
)

// Level is a named fidelity tier.
type Level string

const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

// Backend selects the accelerator the engine should run on.
type Backend string

const (
	BackendCPU  Backend = "cpu"
	BackendCUDA Backend = "cuda"
)

// TableMode selects the table-structure recognition model variant.
type TableMode string

const (
	TableModeFast     TableMode = "fast"
	TableModeAccurate TableMode = "accurate"
)

// Profile is an immutable bundle of pipeline settings. Exactly one
// profile is active per conversion; callers must not mutate it.
type Profile struct {
	Level Level

	OCR              bool
	ForceFullPageOCR bool

	TableStructure bool
	CellMatching   bool
	TableMode      TableMode

	CodeEnrichment        bool
	FormulaEnrichment     bool
	PictureClassification bool
	PictureDescription    bool
	GeneratePictureImages bool

	ImageScale  int
	Backend     Backend
	ThreadCount int
}

// The profile table is data, not branching code: adding a tier is a new
// entry here, nothing else changes.
var profiles = map[Level]Profile{
	Low: {
		Level:       Low,
		TableMode:   TableModeFast,
		ImageScale:  1,
		Backend:     BackendCPU,
		ThreadCount: 2,
	},
	Medium: {
		Level:             Medium,
		OCR:               true,
		TableStructure:    true,
		TableMode:         TableModeFast,
		CodeEnrichment:    true,
		FormulaEnrichment: true,
		ImageScale:        1,
		Backend:           BackendCPU,
		ThreadCount:       4,
	},
	High: {
		Level:                 High,
		OCR:                   true,
		ForceFullPageOCR:      true,
		TableStructure:        true,
		CellMatching:          true,
		TableMode:             TableModeAccurate,
		CodeEnrichment:        true,
		FormulaEnrichment:     true,
		PictureClassification: true,
		PictureDescription:    true,
		GeneratePictureImages: true,
		ImageScale:            2,
		Backend:               BackendCUDA,
		ThreadCount:           8,
	},
}

// Resolve returns the profile for level. Unknown levels fail with an
// invalid-configuration error instead of silently defaulting, so a
// misconfigured deployment is caught, not masked.
func Resolve(level Level) (Profile, error) {
	normalized := Level(strings.ToLower(strings.TrimSpace(string(level))))
	profile, ok := profiles[normalized]
	if !ok {
		return Profile{}, models.NewJobError(models.KindInvalidConfiguration, "unknown device capability: %q", level)
	}
	return profile, nil
}

// Applied reports the profile's feature toggles in envelope form.
func (p Profile) Applied() models.EnrichmentsApplied {
	return models.EnrichmentsApplied{
		CodeEnrichment:        p.CodeEnrichment,
		FormulaEnrichment:     p.FormulaEnrichment,
		PictureClassification: p.PictureClassification,
		PictureDescription:    p.PictureDescription,
		TableStructure:        p.TableStructure,
		OCR:                   p.OCR,
	}
}
