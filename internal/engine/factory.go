package engine

import (
	"context"

	"github.com/feichai0017/doc-converter/internal/capability"
	"github.com/feichai0017/doc-converter/internal/models"
	"github.com/feichai0017/doc-converter/pkg/logger"
)

// FactoryConfig lists the backends available in this deployment. Nil
// sections leave the corresponding backend unconfigured.
type FactoryConfig struct {
	Docling      *DoclingConfig
	Textract     *TextractConfig
	Ollama       *OllamaConfig
	OCRLanguages []string
}

// Factory selects the engine backend for one staged document based on
// its MIME type and the active capability profile.
type Factory struct {
	local     *LocalEngine
	docling   *DoclingEngine
	tesseract *TesseractEngine
	textract  *TextractEngine
	logger    logger.Logger
}

func NewFactory(ctx context.Context, cfg FactoryConfig, log logger.Logger) (*Factory, error) {
	factory := &Factory{
		local:  NewLocalEngine(log),
		logger: log,
	}

	if cfg.Docling != nil && cfg.Docling.Endpoint != "" {
		factory.docling = NewDoclingEngine(*cfg.Docling, log)
	}

	var ollama *OllamaClient
	if cfg.Ollama != nil && cfg.Ollama.Endpoint != "" {
		ollama = NewOllamaClient(*cfg.Ollama)
	}
	factory.tesseract = NewTesseractEngine(cfg.OCRLanguages, ollama, log)

	if cfg.Textract != nil && cfg.Textract.Region != "" {
		textractEngine, err := NewTextractEngine(ctx, cfg.Textract, log)
		if err != nil {
			return nil, err
		}
		factory.textract = textractEngine
	}

	return factory, nil
}

// EngineFor picks the backend for mimeType under profile. Images go to
// cloud OCR on the cuda tier when configured, local tesseract
// otherwise; rich documents go to the docling sidecar with a local
// fallback for text-layer PDFs.
func (f *Factory) EngineFor(mimeType string, profile capability.Profile) (Engine, error) {
	switch mimeType {
	case "image/jpeg", "image/png", "image/tiff":
		if profile.Backend == capability.BackendCUDA && f.textract != nil {
			return f.textract, nil
		}
		return f.tesseract, nil

	case "text/plain", "text/markdown":
		return f.local, nil

	default:
		if f.docling != nil && f.docling.CanConvert(mimeType) {
			return f.docling, nil
		}
		if f.local.CanConvert(mimeType) {
			return f.local, nil
		}
	}

	f.logger.Error("No engine for document type",
		logger.String("mime", mimeType),
		logger.String("capability", string(profile.Level)),
	)
	return nil, models.NewJobError(models.KindUnsupportedFormat, "no conversion engine for %s", mimeType)
}

// Close releases all configured backends.
func (f *Factory) Close() error {
	f.local.Close()
	f.tesseract.Close()
	if f.docling != nil {
		f.docling.Close()
	}
	if f.textract != nil {
		f.textract.Close()
	}
	return nil
}
