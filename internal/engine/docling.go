package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/feichai0017/doc-converter/internal/models"
	"github.com/feichai0017/doc-converter/pkg/logger"
)

// DoclingEngine drives a docling-serve sidecar over HTTP. It handles
// PDFs and office formats with the full enrichment pipeline; the
// sidecar internally runs the layout/OCR/table/formula models.
type DoclingEngine struct {
	endpoint string
	client   *http.Client
	logger   logger.Logger
}

type DoclingConfig struct {
	Endpoint string
	Timeout  time.Duration
}

func NewDoclingEngine(cfg DoclingConfig, log logger.Logger) *DoclingEngine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &DoclingEngine{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   log,
	}
}

func (e *DoclingEngine) CanConvert(mimeType string) bool {
	switch mimeType {
	case "application/pdf",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/msword",
		"text/html",
		"image/jpeg", "image/png", "image/tiff":
		return true
	}
	return false
}

// Wire types for the sidecar's convert endpoint.
type doclingRequest struct {
	Options doclingOptions  `json:"options"`
	Sources []doclingSource `json:"sources"`
}

type doclingOptions struct {
	ToFormats               []string `json:"to_formats"`
	DoOCR                   bool     `json:"do_ocr"`
	ForceOCR                bool     `json:"force_ocr"`
	DoTableStructure        bool     `json:"do_table_structure"`
	DoCellMatching          bool     `json:"do_cell_matching"`
	TableMode               string   `json:"table_mode"`
	DoCodeEnrichment        bool     `json:"do_code_enrichment"`
	DoFormulaEnrichment     bool     `json:"do_formula_enrichment"`
	DoPictureClassification bool     `json:"do_picture_classification"`
	DoPictureDescription    bool     `json:"do_picture_description"`
	GeneratePictureImages   bool     `json:"generate_picture_images"`
	ImagesScale             int      `json:"images_scale"`
	AcceleratorDevice       string   `json:"accelerator_device"`
	NumThreads              int      `json:"num_threads"`
	MaxNumPages             int      `json:"max_num_pages,omitempty"`
}

type doclingSource struct {
	Kind         string `json:"kind"`
	Base64String string `json:"base64_string"`
	Filename     string `json:"filename"`
}

type doclingResponse struct {
	Status   string          `json:"status"`
	Errors   []string        `json:"errors"`
	Document doclingDocument `json:"document"`
}

type doclingDocument struct {
	Name     string `json:"name"`
	NumPages int    `json:"num_pages"`
	Texts    []struct {
		Label string `json:"label"`
		Text  string `json:"text"`
		Level int    `json:"level"`
		Page  int    `json:"page_no"`
	} `json:"texts"`
	Tables []struct {
		NumRows int        `json:"num_rows"`
		NumCols int        `json:"num_cols"`
		Grid    [][]string `json:"grid"`
		Page    int        `json:"page_no"`
	} `json:"tables"`
	Pictures []struct {
		Classification string `json:"classification"`
		Description    string `json:"description"`
		Page           int    `json:"page_no"`
	} `json:"pictures"`
}

func (e *DoclingEngine) Convert(ctx context.Context, src Source, opts Options) (*models.Document, error) {
	payload, err := io.ReadAll(src.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	reqBody := doclingRequest{
		Options: doclingOptions{
			ToFormats:               []string{"json"},
			DoOCR:                   opts.OCR,
			ForceOCR:                opts.ForceFullPageOCR,
			DoTableStructure:        opts.TableStructure,
			DoCellMatching:          opts.CellMatching,
			TableMode:               opts.TableMode,
			DoCodeEnrichment:        opts.CodeEnrichment,
			DoFormulaEnrichment:     opts.FormulaEnrichment,
			DoPictureClassification: opts.PictureClassification,
			DoPictureDescription:    opts.PictureDescription,
			GeneratePictureImages:   opts.GeneratePictureImages,
			ImagesScale:             opts.ImageScale,
			AcceleratorDevice:       opts.Backend,
			NumThreads:              opts.ThreadCount,
			MaxNumPages:             opts.MaxPages,
		},
		Sources: []doclingSource{{
			Kind:         "file",
			Base64String: base64.StdEncoding.EncodeToString(payload),
			Filename:     src.Filename,
		}},
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal convert request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/v1/convert/source", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create convert request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("convert request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("engine returned status %d: %s", resp.StatusCode, string(body))
	}

	var converted doclingResponse
	if err := json.NewDecoder(resp.Body).Decode(&converted); err != nil {
		return nil, fmt.Errorf("failed to decode engine response: %w", err)
	}

	if converted.Status != "success" {
		if len(converted.Errors) > 0 {
			return nil, fmt.Errorf("engine reported failure: %s", converted.Errors[0])
		}
		return nil, fmt.Errorf("engine reported status %q", converted.Status)
	}

	return e.mapDocument(src.Filename, &converted.Document), nil
}

func (e *DoclingEngine) mapDocument(filename string, in *doclingDocument) *models.Document {
	doc := &models.Document{
		Name:      filename,
		PageCount: in.NumPages,
	}

	for _, t := range in.Texts {
		doc.Texts = append(doc.Texts, models.TextItem{
			Label: mapLabel(t.Label),
			Text:  t.Text,
			Page:  t.Page,
			Level: t.Level,
		})
	}
	for _, tbl := range in.Tables {
		doc.Tables = append(doc.Tables, models.Table{
			Rows:  tbl.NumRows,
			Cols:  tbl.NumCols,
			Cells: tbl.Grid,
			Page:  tbl.Page,
		})
	}
	for _, pic := range in.Pictures {
		doc.Pictures = append(doc.Pictures, models.Picture{
			Classification: pic.Classification,
			Description:    pic.Description,
			Page:           pic.Page,
		})
	}

	return doc
}

func mapLabel(label string) models.ItemLabel {
	switch label {
	case "section_header", "title":
		return models.LabelSectionHeader
	case "formula":
		return models.LabelFormula
	case "code":
		return models.LabelCode
	case "caption":
		return models.LabelCaption
	case "list_item":
		return models.LabelListItem
	default:
		return models.LabelText
	}
}

func (e *DoclingEngine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
