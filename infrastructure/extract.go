package infrastructure

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/sirupsen/logrus"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

const maxResumeChars = 20000

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
	blankRuns        = regexp.MustCompile(`[ \t]+`)
)

// ExtractResumeText returns the plain text of a résumé. File types that need OCR
// (images, legacy .doc, scanned PDFs) yield an empty string and no error.
func ExtractResumeText(filename string, data []byte, log *logrus.Logger) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		text = string(data)
	case ".pdf":
		text, err = extractPDFText(data, log)
	case ".docx":
		text, err = extractDocxText(data)
	case ".doc", ".png", ".jpg", ".jpeg":
		return "", nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", filename)
	}
	if err != nil {
		return "", err
	}
	return truncate(strings.TrimSpace(text), maxResumeChars), nil
}

// extractPDFText tries ledongthuc/pdf first and falls back to unipdf.
func extractPDFText(data []byte, log *logrus.Logger) (string, error) {
	text, err := extractPDFPlain(data)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if err != nil {
		log.WithError(err).Debug("plain pdf extraction failed, trying unipdf")
	}

	text, err = extractPDFUnipdf(data)
	if err != nil {
		// scanned or encrypted documents end up here; treat as "no text"
		log.WithError(err).Info("no text layer found in pdf")
		return "", nil
	}
	return text, nil
}

func extractPDFPlain(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func extractPDFUnipdf(data []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("failed to get page count: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			continue
		}
		pageText, err := ex.ExtractText()
		if err != nil {
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}

	result := strings.TrimSpace(b.String())
	if result == "" {
		return "", fmt.Errorf("no text could be extracted from any page of the PDF")
	}
	return result, nil
}

func extractDocxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return stripDocumentXML(doc.Editable().GetContent()), nil
}

// stripDocumentXML turns WordprocessingML into plain text, one line per paragraph.
func stripDocumentXML(content string) string {
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	lines := strings.Split(content, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimSpace(blankRuns.ReplaceAllString(l, " "))
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
