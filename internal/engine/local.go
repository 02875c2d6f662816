package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/doc-converter/internal/models"
	"github.com/feichai0017/doc-converter/pkg/logger"
)

// LocalEngine converts plain text, markdown and text-layer PDFs without
// any external service. It applies no enrichments beyond structure
// recovery, which makes it the natural backend for the low tier and the
// fallback when no sidecar is configured.
type LocalEngine struct {
	logger logger.Logger
}

func NewLocalEngine(log logger.Logger) *LocalEngine {
	return &LocalEngine{logger: log}
}

func (e *LocalEngine) CanConvert(mimeType string) bool {
	switch mimeType {
	case "application/pdf", "text/plain", "text/markdown":
		return true
	}
	return false
}

func (e *LocalEngine) Convert(ctx context.Context, src Source, opts Options) (*models.Document, error) {
	switch src.MIME {
	case "application/pdf":
		return e.convertPDF(ctx, src, opts)
	case "text/plain", "text/markdown":
		return e.convertText(src)
	default:
		return nil, fmt.Errorf("local engine cannot convert %s", src.MIME)
	}
}

func (e *LocalEngine) Close() error {
	return nil
}

func (e *LocalEngine) convertText(src Source) (*models.Document, error) {
	content, err := io.ReadAll(src.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	doc := &models.Document{
		Name:      src.Filename,
		PageCount: 1,
	}

	if src.MIME == "text/markdown" {
		doc.Texts = parseMarkdown(string(content))
	} else {
		text := strings.TrimRight(string(content), "\n")
		if text != "" {
			doc.Texts = []models.TextItem{{Label: models.LabelText, Text: text, Page: 1}}
		}
	}

	return doc, nil
}

// parseMarkdown recovers headings, fenced code blocks and list items so
// the tree keeps enough structure for re-export.
func parseMarkdown(content string) []models.TextItem {
	var items []models.TextItem
	var para []string
	var code []string
	inCode := false

	flushPara := func() {
		if len(para) > 0 {
			items = append(items, models.TextItem{
				Label: models.LabelText,
				Text:  strings.Join(para, " "),
				Page:  1,
			})
			para = nil
		}
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if inCode {
				items = append(items, models.TextItem{
					Label: models.LabelCode,
					Text:  strings.Join(code, "\n"),
					Page:  1,
				})
				code = nil
			} else {
				flushPara()
			}
			inCode = !inCode
			continue
		}
		if inCode {
			code = append(code, line)
			continue
		}

		switch {
		case trimmed == "":
			flushPara()
		case strings.HasPrefix(trimmed, "#"):
			flushPara()
			level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
			items = append(items, models.TextItem{
				Label: models.LabelSectionHeader,
				Text:  strings.TrimSpace(strings.TrimLeft(trimmed, "#")),
				Page:  1,
				Level: level,
			})
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			flushPara()
			items = append(items, models.TextItem{
				Label: models.LabelListItem,
				Text:  strings.TrimSpace(trimmed[2:]),
				Page:  1,
			})
		default:
			para = append(para, trimmed)
		}
	}
	flushPara()

	return items
}

func (e *LocalEngine) convertPDF(ctx context.Context, src Source, opts Options) (*models.Document, error) {
	content, err := io.ReadAll(src.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	numPages := pdfReader.NumPage()
	if opts.MaxPages > 0 && numPages > opts.MaxPages {
		return nil, fmt.Errorf("document has %d pages, limit is %d", numPages, opts.MaxPages)
	}

	pageTexts := make([]string, numPages+1)

	g, ctx := errgroup.WithContext(ctx)
	workers := opts.ThreadCount
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	for i := 1; i <= numPages; i++ {
		pageNum := i
		g.Go(func() (err error) {
			// The PDF parser panics on corrupt page content instead of
			// returning errors.
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("failed to parse page %d: %v", pageNum, r)
				}
			}()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return ctx.Err()
			}

			page := pdfReader.Page(pageNum)
			if page.V.IsNull() {
				return nil
			}

			text, err := page.GetPlainText(nil)
			if err != nil {
				return fmt.Errorf("failed to extract text from page %d: %w", pageNum, err)
			}
			pageTexts[pageNum] = text
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	doc := &models.Document{
		Name:      src.Filename,
		PageCount: numPages,
	}
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		text := strings.TrimSpace(pageTexts[pageNum])
		if text == "" {
			continue
		}
		doc.Texts = append(doc.Texts, models.TextItem{
			Label: models.LabelText,
			Text:  text,
			Page:  pageNum,
		})
	}

	e.logger.Debug("Local PDF conversion finished",
		logger.String("filename", src.Filename),
		logger.Int("pages", numPages),
	)

	return doc, nil
}
