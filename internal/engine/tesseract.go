package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/feichai0017/doc-converter/internal/models"
	"github.com/feichai0017/doc-converter/pkg/logger"
)

// TesseractEngine runs standalone images through local tesseract OCR.
// It serves the cpu-backend tiers; cloud OCR handles the high tier.
type TesseractEngine struct {
	languages []string
	ollama    *OllamaClient // nil when picture description is unavailable
	logger    logger.Logger
}

func NewTesseractEngine(languages []string, ollama *OllamaClient, log logger.Logger) *TesseractEngine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractEngine{
		languages: languages,
		ollama:    ollama,
		logger:    log,
	}
}

func (e *TesseractEngine) CanConvert(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/png", "image/tiff":
		return true
	}
	return false
}

func (e *TesseractEngine) Convert(ctx context.Context, src Source, opts Options) (*models.Document, error) {
	raw, err := io.ReadAll(src.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	doc := &models.Document{
		Name:      src.Filename,
		PageCount: 1,
	}

	picture := models.Picture{Page: 1}
	if opts.PictureDescription && e.ollama != nil {
		caption, err := e.ollama.Describe(ctx, raw)
		if err != nil {
			e.logger.Warn("Picture description failed",
				logger.String("filename", src.Filename),
				logger.Error(err),
			)
		} else {
			picture.Description = strings.TrimSpace(caption)
		}
	}
	doc.Pictures = append(doc.Pictures, picture)

	if !opts.OCR {
		return doc, nil
	}

	prepared, err := e.preprocess(img, opts)
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.languages...); err != nil {
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetImageFromBytes(prepared); err != nil {
		return nil, fmt.Errorf("failed to load image into OCR: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	text = strings.TrimSpace(text)
	if text != "" {
		doc.Texts = append(doc.Texts, models.TextItem{
			Label: models.LabelText,
			Text:  text,
			Page:  1,
		})
	}

	return doc, nil
}

// preprocess grayscales the image and upscales it by the profile's
// resolution scale before OCR.
func (e *TesseractEngine) preprocess(img image.Image, opts Options) ([]byte, error) {
	prepared := imaging.Grayscale(img)

	if opts.ImageScale > 1 {
		bounds := prepared.Bounds()
		prepared = imaging.Resize(prepared, bounds.Dx()*opts.ImageScale, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, prepared); err != nil {
		return nil, fmt.Errorf("failed to encode preprocessed image: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *TesseractEngine) Close() error {
	if e.ollama != nil {
		return e.ollama.Close()
	}
	return nil
}
