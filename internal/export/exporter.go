// Package export serializes a converted document tree into the
// requested output format and assembles the response envelope.
package export

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/feichai0017/doc-converter/internal/capability"
	"github.com/feichai0017/doc-converter/internal/models"
)

// Export renders doc in the requested format. Rendering is a pure
// function of the tree, so repeated calls produce identical bytes.
func Export(doc *models.Document, format models.ExportFormat) (string, error) {
	switch format {
	case models.FormatMarkdown:
		return toMarkdown(doc), nil
	case models.FormatHTML:
		return toHTML(doc), nil
	case models.FormatText:
		return toText(doc), nil
	case models.FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "", models.WrapJobError(models.KindExport, err, "failed to serialize document to JSON")
		}
		return string(data), nil
	default:
		return "", models.NewJobError(models.KindExport, "unsupported export format: %s", format)
	}
}

// Package assembles the success envelope for one converted document.
func Package(
	req *models.DocumentRequest,
	doc *models.Document,
	stats models.EnrichmentStats,
	format models.ExportFormat,
	profile capability.Profile,
) (*models.ResponseEnvelope, error) {
	content, err := Export(doc, format)
	if err != nil {
		return nil, err
	}

	return &models.ResponseEnvelope{
		Status:  models.StatusSuccess,
		Content: content,
		Metadata: &models.EnvelopeMetadata{
			Source:             req.Source(),
			Filename:           req.InferredFilename(),
			PageCount:          doc.PageCount,
			ExportFormat:       string(format),
			DeviceCapability:   string(profile.Level),
			EnrichmentsApplied: profile.Applied(),
			EnrichmentStats:    stats,
		},
	}, nil
}

// PackageError converts any pipeline failure into the uniform error
// envelope. Only the short classified message is exposed; the full
// cause stays in the logs.
func PackageError(err error) *models.ResponseEnvelope {
	return &models.ResponseEnvelope{
		Status:    models.StatusError,
		Error:     models.ShortMessage(err),
		ErrorKind: string(models.KindOf(err)),
	}
}

func toMarkdown(doc *models.Document) string {
	var b strings.Builder

	for _, item := range doc.Texts {
		switch item.Label {
		case models.LabelSectionHeader:
			level := item.Level
			if level < 1 {
				level = 2
			}
			b.WriteString(strings.Repeat("#", level) + " " + item.Text + "\n\n")
		case models.LabelFormula:
			b.WriteString("$$" + item.Text + "$$\n\n")
		case models.LabelCode:
			b.WriteString("```\n" + item.Text + "\n```\n\n")
		case models.LabelListItem:
			b.WriteString("- " + item.Text + "\n")
		default:
			b.WriteString(item.Text + "\n\n")
		}
	}

	for _, table := range doc.Tables {
		b.WriteString(tableToMarkdown(table))
	}

	for _, pic := range doc.Pictures {
		b.WriteString("<!-- image -->\n")
		if pic.Description != "" {
			b.WriteString("*" + pic.Description + "*\n")
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func tableToMarkdown(table models.Table) string {
	if len(table.Cells) == 0 {
		return fmt.Sprintf("<!-- table %dx%d -->\n\n", table.Rows, table.Cols)
	}

	var b strings.Builder
	for i, row := range table.Cells {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
		if i == 0 {
			b.WriteString("|" + strings.Repeat(" --- |", len(row)) + "\n")
		}
	}
	b.WriteString("\n")
	return b.String()
}

func toHTML(doc *models.Document) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<body>\n")

	for _, item := range doc.Texts {
		text := html.EscapeString(item.Text)
		switch item.Label {
		case models.LabelSectionHeader:
			level := item.Level
			if level < 1 || level > 6 {
				level = 2
			}
			b.WriteString(fmt.Sprintf("<h%d>%s</h%d>\n", level, text, level))
		case models.LabelFormula:
			b.WriteString("<div class=\"formula\">" + text + "</div>\n")
		case models.LabelCode:
			b.WriteString("<pre><code>" + text + "</code></pre>\n")
		case models.LabelListItem:
			b.WriteString("<li>" + text + "</li>\n")
		default:
			b.WriteString("<p>" + text + "</p>\n")
		}
	}

	for _, table := range doc.Tables {
		b.WriteString("<table>\n")
		for _, row := range table.Cells {
			b.WriteString("<tr>")
			for _, cell := range row {
				b.WriteString("<td>" + html.EscapeString(cell) + "</td>")
			}
			b.WriteString("</tr>\n")
		}
		b.WriteString("</table>\n")
	}

	for _, pic := range doc.Pictures {
		if pic.Description != "" {
			b.WriteString("<figure><figcaption>" + html.EscapeString(pic.Description) + "</figcaption></figure>\n")
		} else {
			b.WriteString("<figure></figure>\n")
		}
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func toText(doc *models.Document) string {
	var parts []string
	for _, item := range doc.Texts {
		parts = append(parts, item.Text)
	}
	for _, table := range doc.Tables {
		for _, row := range table.Cells {
			parts = append(parts, strings.Join(row, "\t"))
		}
	}
	return strings.Join(parts, "\n") + "\n"
}
