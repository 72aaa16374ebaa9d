package assessment

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bobmcallan/assessor/internal/interfaces"
	"github.com/bobmcallan/assessor/internal/models"
	"github.com/ledongthuc/pdf"
	docx "github.com/lukasjarosch/go-docx"
)

// Extractor implements interfaces.TextExtractor for PDF, DOCX and TXT
// documents. Images are stored but never extracted — supported types are
// PDF, DOCX, and TXT only.
type Extractor struct{}

// NewExtractor returns a stateless TextExtractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract dispatches to the format-specific extraction routine for fileType.
func (e *Extractor) Extract(ctx context.Context, data []byte, fileType models.FileType) (string, error) {
	switch fileType {
	case models.FileTypePDF:
		return extractPDFText(data)
	case models.FileTypeDOCX:
		return extractDOCXText(data)
	case models.FileTypeTXT:
		return extractTXTText(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, fileType)
	}
}

// extractPDFText extracts text content from in-memory PDF bytes, page by
// page, recovering from panics raised by malformed PDFs (e.g. corrupt zlib
// streams). The full document is returned uncapped: character_count and
// word_count need an exact total, not a sample.
func extractPDFText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("panic during PDF extraction: %v", r)
		}
	}()

	reader := bytes.NewReader(data)
	r, openErr := pdf.NewReader(reader, int64(len(data)))
	if openErr != nil {
		return "", fmt.Errorf("open PDF: %w", openErr)
	}

	var sb strings.Builder
	totalPages := r.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

var docxTextRun = regexp.MustCompile(`<w:t[^>]*>(.*?)</w:t>`)
var docxParagraphBreak = regexp.MustCompile(`</w:p>`)
var xmlTagStripper = regexp.MustCompile(`<[^>]+>`)

// extractDOCXText extracts plain text from a DOCX file's word/document.xml
// part. go-docx exposes the raw part content via GetContent; runs are
// delimited by <w:t> elements and paragraphs by <w:p> closing tags.
func extractDOCXText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("panic during DOCX extraction: %v", r)
		}
	}()

	doc, openErr := docx.ReadDocxFromBytes(data)
	if openErr != nil {
		return "", fmt.Errorf("open DOCX: %w", openErr)
	}
	editable := doc.Editable()
	defer editable.Close()

	xmlContent := editable.GetContent()
	// Normalize paragraph breaks to newlines before stripping remaining tags,
	// so consecutive runs in different paragraphs don't merge into one word.
	normalized := docxParagraphBreak.ReplaceAllString(xmlContent, "</w:p>\n")

	var sb strings.Builder
	for _, match := range docxTextRun.FindAllStringSubmatch(normalized, -1) {
		sb.WriteString(unescapeXMLEntities(xmlTagStripper.ReplaceAllString(match[1], "")))
	}
	if sb.Len() == 0 {
		// Fall back to a coarse tag strip in case the run pattern didn't match
		// (e.g. a DOCX produced by a writer that nests runs unusually).
		sb.WriteString(xmlTagStripper.ReplaceAllString(normalized, " "))
	}

	return sb.String(), nil
}

func unescapeXMLEntities(s string) string {
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
	return replacer.Replace(s)
}

// extractTXTText validates the bytes are UTF-8 and returns them as a string.
func extractTXTText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: not valid UTF-8 text", ErrUnsupportedFileType)
	}
	return string(data), nil
}

var _ interfaces.TextExtractor = (*Extractor)(nil)
