package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeText = "text/plain"
)

const docxDocumentXMLPath = "word/document.xml"

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	docxTextRun      = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
)

// ExtractedText is the plain text of one document. Pages holds per-page text
// for PDFs and a single entry for every other format.
type ExtractedText struct {
	Text  string
	Pages []string
}

// PageOf returns the 1-based page whose text contains term, or 1.
func (e *ExtractedText) PageOf(term string) int {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return 1
	}
	for i, page := range e.Pages {
		if strings.Contains(strings.ToLower(page), needle) {
			return i + 1
		}
	}
	return 1
}

// ImageTranscriber reads the text out of a scanned page or photo.
type ImageTranscriber interface {
	TranscribeImage(ctx context.Context, data []byte, mimeType string) (string, error)
}

type TextExtractor interface {
	ExtractText(ctx context.Context, content []byte, mimeType string) (*ExtractedText, error)
}

type documentTextExtractor struct {
	transcriber ImageTranscriber
}

// NewDocumentTextExtractor handles PDF, DOCX and plain text locally and
// hands images to transcriber. A nil transcriber makes images fail.
func NewDocumentTextExtractor(transcriber ImageTranscriber) TextExtractor {
	return &documentTextExtractor{transcriber: transcriber}
}

func (d *documentTextExtractor) ExtractText(ctx context.Context, content []byte, mimeType string) (*ExtractedText, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	switch baseMime(mimeType) {
	case MimePDF:
		return extractPDF(content)
	case MimeDOCX:
		text, err := extractDOCX(content)
		if err != nil {
			return nil, err
		}
		return singlePage(text)
	case MimeText:
		return singlePage(string(content))
	case MimeJPEG, MimePNG:
		if d.transcriber == nil {
			return nil, fmt.Errorf("no image transcriber configured")
		}
		text, err := d.transcriber.TranscribeImage(ctx, content, baseMime(mimeType))
		if err != nil {
			return nil, fmt.Errorf("failed to transcribe image: %w", err)
		}
		return singlePage(text)
	}

	return nil, fmt.Errorf("unsupported mime type: %s", mimeType)
}

func extractPDF(content []byte) (*ExtractedText, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	totalPage := r.NumPage()
	pages := make([]string, 0, totalPage)
	var textBuilder strings.Builder

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// keep page numbering stable for evidence refs
			pages = append(pages, "")
			continue
		}

		text = CleanText(text)
		pages = append(pages, text)
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	text := strings.TrimSpace(textBuilder.String())
	if text == "" {
		return nil, fmt.Errorf("no text content found in PDF")
	}

	return &ExtractedText{Text: text, Pages: pages}, nil
}

// extractDOCX reads word/document.xml out of the zip container and keeps one
// line per paragraph.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name != docxDocumentXMLPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		docXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		break
	}
	if docXML == nil {
		return "", fmt.Errorf("%s not found in DOCX", docxDocumentXMLPath)
	}

	var lines []string
	for _, para := range docxParagraphEnd.Split(string(docXML), -1) {
		runs := docxTextRun.FindAllStringSubmatch(para, -1)
		if len(runs) == 0 {
			continue
		}
		var b strings.Builder
		for _, run := range runs {
			b.WriteString(html.UnescapeString(run[1]))
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func singlePage(text string) (*ExtractedText, error) {
	text = CleanText(text)
	if text == "" {
		return nil, fmt.Errorf("no text content found in document")
	}
	return &ExtractedText{Text: text, Pages: []string{text}}, nil
}

func baseMime(mimeType string) string {
	m, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(m))
}

// CleanText trims every line and drops blank ones.
func CleanText(text string) string {
	text = strings.TrimSpace(text)

	lines := strings.Split(text, "\n")
	var cleanedLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}
