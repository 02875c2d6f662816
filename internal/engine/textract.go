package engine

import (
	"context"
	"fmt"
	"io"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/feichai0017/doc-converter/internal/models"
	"github.com/feichai0017/doc-converter/pkg/logger"
)

// TextractEngine is the cloud OCR backend for standalone images on the
// high tier.
type TextractEngine struct {
	client *textract.Client
	cfg    *TextractConfig
	logger logger.Logger
}

type TextractConfig struct {
	Region        string
	AccessKey     string
	SecretKey     string
	MinConfidence float32
}

func NewTextractEngine(ctx context.Context, cfg *TextractConfig, log logger.Logger) (*TextractEngine, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return &TextractEngine{
		client: textract.NewFromConfig(awsCfg),
		cfg:    cfg,
		logger: log,
	}, nil
}

func (e *TextractEngine) CanConvert(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/png", "image/tiff":
		return true
	}
	return false
}

func (e *TextractEngine) Convert(ctx context.Context, src Source, opts Options) (*models.Document, error) {
	data, err := io.ReadAll(src.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	doc := &models.Document{
		Name:      src.Filename,
		PageCount: 1,
		Pictures:  []models.Picture{{Page: 1}},
	}

	if !opts.OCR {
		return doc, nil
	}

	input := &textract.AnalyzeDocumentInput{
		Document:     &types.Document{Bytes: data},
		FeatureTypes: []types.FeatureType{types.FeatureTypeForms},
	}
	if opts.TableStructure {
		input.FeatureTypes = append(input.FeatureTypes, types.FeatureTypeTables)
	}

	result, err := e.client.AnalyzeDocument(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze document: %w", err)
	}

	lines := e.collectLines(result.Blocks)
	if len(lines) > 0 {
		doc.Texts = append(doc.Texts, models.TextItem{
			Label: models.LabelText,
			Text:  strings.Join(lines, "\n"),
			Page:  1,
		})
	}

	if opts.TableStructure {
		doc.Tables = e.collectTables(result.Blocks)
	}

	return doc, nil
}

func (e *TextractEngine) collectLines(blocks []types.Block) []string {
	var lines []string
	for _, block := range blocks {
		if block.BlockType != types.BlockTypeLine || block.Text == nil {
			continue
		}
		if block.Confidence != nil && *block.Confidence < e.cfg.MinConfidence {
			continue
		}
		lines = append(lines, *block.Text)
	}
	return lines
}

// collectTables recovers table shapes from TABLE blocks and the extents
// of their CELL children.
func (e *TextractEngine) collectTables(blocks []types.Block) []models.Table {
	cellsByID := make(map[string]types.Block)
	for _, block := range blocks {
		if block.BlockType == types.BlockTypeCell && block.Id != nil {
			cellsByID[*block.Id] = block
		}
	}

	var tables []models.Table
	for _, block := range blocks {
		if block.BlockType != types.BlockTypeTable {
			continue
		}

		table := models.Table{Page: 1}
		for _, rel := range block.Relationships {
			if rel.Type != types.RelationshipTypeChild {
				continue
			}
			for _, id := range rel.Ids {
				cell, ok := cellsByID[id]
				if !ok {
					continue
				}
				if cell.RowIndex != nil && int(*cell.RowIndex) > table.Rows {
					table.Rows = int(*cell.RowIndex)
				}
				if cell.ColumnIndex != nil && int(*cell.ColumnIndex) > table.Cols {
					table.Cols = int(*cell.ColumnIndex)
				}
			}
		}
		tables = append(tables, table)
	}
	return tables
}

func (e *TextractEngine) Close() error {
	return nil
}
