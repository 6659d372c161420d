package extractor

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmtext "github.com/yuin/goldmark/text"

	"docmind/internal/models"
)

const defaultPageNumber = 1

// Extractor converts raw document bytes into page-annotated plain text.
// PDF is the primary format; spreadsheet formats map sheets to pages and
// flat formats yield a single page.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract dispatches on the filename extension. It fails with
// models.ErrExtraction for malformed or unsupported input and with
// models.ErrEmptyDocument when no page carries any text.
func (e *Extractor) Extract(data []byte, filename string) ([]models.Page, error) {
	var (
		pages []models.Page
		err   error
	)

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		pages, err = extractPDF(data)
	case ".docx":
		pages, err = extractDOCX(data)
	case ".xlsx":
		pages, err = extractXLSX(data)
	case ".ods":
		pages, err = extractODS(data)
	case ".md", ".markdown":
		pages, err = extractMarkdown(data)
	case ".txt":
		pages = []models.Page{{Number: defaultPageNumber, Text: string(data)}}
	default:
		return nil, fmt.Errorf("%w: unsupported file format %q", models.ErrExtraction, ext)
	}
	if err != nil {
		return nil, err
	}

	if blank(pages) {
		return nil, fmt.Errorf("%w: %s might be scanned or image-based", models.ErrEmptyDocument, filename)
	}
	return pages, nil
}

func blank(pages []models.Page) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return false
		}
	}
	return true
}

func extractPDF(data []byte) (pages []models.Page, err error) {
	// ledongthuc/pdf panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("%w: %v", models.ErrExtraction, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, models.Page{Number: i})
			continue
		}
		// An image-only page yields empty text, which is fine.
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", models.ErrExtraction, i, err)
		}
		pages = append(pages, models.Page{Number: i, Text: pageText})
	}
	return pages, nil
}

func extractDOCX(data []byte) ([]models.Page, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	text := extractTextFromXML(content, "<w:t", "</w:t>")
	// DOCX has no page structure, treat the whole document as one page
	return []models.Page{{Number: defaultPageNumber, Text: text}}, nil
}

func extractXLSX(data []byte) ([]models.Page, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}

	var pages []models.Page
	for sheetNum, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, models.Page{Number: sheetNum + 1, Text: text.String()})
	}
	return pages, nil
}

func extractODS(data []byte) ([]models.Page, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}
	defer f.Close()

	var pages []models.Page
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, models.Page{Number: sheetNum + 1, Text: text.String()})
	}
	return pages, nil
}

// extractMarkdown walks the goldmark AST and collects the text content,
// separating block nodes with blank lines so paragraph boundaries survive
// for the chunker.
func extractMarkdown(data []byte) ([]models.Page, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	root := md.Parser().Parse(gmtext.NewReader(data))

	var text strings.Builder
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && text.Len() > 0 {
				text.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			text.Write(t.Segment.Value(data))
			if t.SoftLineBreak() || t.HardLineBreak() {
				text.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}

	return []models.Page{{Number: defaultPageNumber, Text: text.String()}}, nil
}

// extractTextFromXML pulls the inner text of every occurrence of the given
// tag, tolerating attributes on the opening tag.
func extractTextFromXML(xmlContent, openTag, closeTag string) string {
	var text strings.Builder
	parts := strings.Split(xmlContent, openTag)
	for i, part := range parts {
		if i == 0 {
			continue
		}
		// skip longer tag names sharing the prefix, e.g. <w:tbl> for <w:t
		if part != "" && part[0] != '>' && part[0] != ' ' {
			continue
		}
		gt := strings.Index(part, ">")
		if gt < 0 {
			continue
		}
		part = part[gt+1:]
		if endIdx := strings.Index(part, closeTag); endIdx >= 0 {
			text.WriteString(part[:endIdx] + " ")
		}
	}
	return text.String()
}
