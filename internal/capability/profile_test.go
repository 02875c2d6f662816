package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/doc-converter/internal/models"
)

func TestResolveLow(t *testing.T) {
	p, err := Resolve(Low)
	require.NoError(t, err)

	assert.False(t, p.OCR)
	assert.False(t, p.TableStructure)
	assert.False(t, p.CellMatching)
	assert.False(t, p.CodeEnrichment)
	assert.False(t, p.FormulaEnrichment)
	assert.False(t, p.PictureClassification)
	assert.False(t, p.PictureDescription)
	assert.Equal(t, BackendCPU, p.Backend)
	assert.Equal(t, 1, p.ImageScale)
}

func TestResolveMedium(t *testing.T) {
	p, err := Resolve(Medium)
	require.NoError(t, err)

	assert.True(t, p.OCR)
	assert.False(t, p.ForceFullPageOCR)
	assert.True(t, p.TableStructure)
	assert.False(t, p.CellMatching)
	assert.True(t, p.CodeEnrichment)
	assert.True(t, p.FormulaEnrichment)
	assert.False(t, p.PictureClassification)
	assert.False(t, p.PictureDescription)
	assert.Equal(t, BackendCPU, p.Backend)
}

func TestResolveHigh(t *testing.T) {
	p, err := Resolve(High)
	require.NoError(t, err)

	assert.True(t, p.OCR)
	assert.True(t, p.ForceFullPageOCR)
	assert.True(t, p.TableStructure)
	assert.True(t, p.CellMatching)
	assert.Equal(t, TableModeAccurate, p.TableMode)
	assert.True(t, p.PictureClassification)
	assert.True(t, p.PictureDescription)
	assert.Equal(t, BackendCUDA, p.Backend)
	assert.Equal(t, 2, p.ImageScale)
}

func TestResolveNormalizesInput(t *testing.T) {
	p, err := Resolve(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, High, p.Level)
}

func TestResolveUnknownLevel(t *testing.T) {
	for _, level := range []Level{"", "ultra", "LOWEST", "med"} {
		_, err := Resolve(level)
		require.Error(t, err, "level %q", level)
		assert.Equal(t, models.KindInvalidConfiguration, models.KindOf(err))
	}
}

func TestAppliedMatchesProfileFlags(t *testing.T) {
	p, err := Resolve(Medium)
	require.NoError(t, err)

	applied := p.Applied()
	assert.True(t, applied.CodeEnrichment)
	assert.True(t, applied.FormulaEnrichment)
	assert.True(t, applied.TableStructure)
	assert.True(t, applied.OCR)
	assert.False(t, applied.PictureClassification)
	assert.False(t, applied.PictureDescription)
}
