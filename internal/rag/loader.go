package rag

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"rag-chatbot-platform/models"

	"github.com/ledongthuc/pdf"
)

// DocumentLoader extracts plain text from uploaded files.
// Supported: plain text (.txt), Markdown (.md, .markdown), PDF (.pdf).
type DocumentLoader struct{}

func NewDocumentLoader() *DocumentLoader { return &DocumentLoader{} }

// Load picks a loader by file extension, falling back to the declared content
// type. Unknown formats fail with ErrUnsupportedFileType.
func (l *DocumentLoader) Load(content []byte, filename, contentType string) (models.Document, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return l.loadPDF(content, filename)
	case ".txt":
		return l.loadText(content, filename, "text")
	case ".md", ".markdown":
		return l.loadText(content, filename, "markdown")
	}

	if contentType == "application/pdf" {
		return l.loadPDF(content, filename)
	}
	if strings.HasPrefix(contentType, "text/") {
		return l.loadText(content, filename, "text")
	}

	return models.Document{}, fmt.Errorf("%w: %q (supported: .txt, .md, .markdown, .pdf)", ErrUnsupportedFileType, filename)
}

func (l *DocumentLoader) loadText(content []byte, filename, docType string) (models.Document, error) {
	text := strings.ToValidUTF8(string(content), "")
	return models.Document{
		Content: text,
		Metadata: map[string]string{
			"source": filename,
			"type":   docType,
		},
	}, nil
}

func (l *DocumentLoader) loadPDF(content []byte, filename string) (models.Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return models.Document{}, fmt.Errorf("%w: %s: %v", ErrDocumentParse, filename, err)
	}

	var b strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		text, err := p.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}

	if strings.TrimSpace(b.String()) == "" {
		return models.Document{}, fmt.Errorf("%w: %s: no extractable text (empty or image-only PDF)", ErrDocumentParse, filename)
	}

	return models.Document{
		Content: b.String(),
		Metadata: map[string]string{
			"source": filename,
			"type":   "pdf",
			"pages":  strconv.Itoa(pages),
		},
	}, nil
}
