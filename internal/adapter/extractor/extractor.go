// Package extractor dispatches uploaded documents to format-specific text
// extraction with a size-guarded path for large files.
package extractor

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	pdf "github.com/ledongthuc/pdf"

	"github.com/hireloop/resume-ranker/internal/config"
	"github.com/hireloop/resume-ranker/internal/domain"
	"github.com/hireloop/resume-ranker/internal/observability"
	"github.com/hireloop/resume-ranker/pkg/textx"
)

const (
	// truncationNotice is appended when only a leading slice of a large PDF
	// was extracted.
	truncationNotice = "\n\n[Document truncated: only the beginning of this large file was processed]"

	// maxPartialPages bounds how many pages of a large PDF are read.
	maxPartialPages = 10
)

// Extractor implements domain.TextExtractor.
type Extractor struct {
	maxBytes     int64
	pdfThreshold int64
}

// New constructs an Extractor honoring the configured size policy.
func New(cfg config.Config) *Extractor {
	return &Extractor{
		maxBytes:     cfg.MaxUploadMB * 1024 * 1024,
		pdfThreshold: cfg.PDFPartialReadMB * 1024 * 1024,
	}
}

// Extract produces plain text from data. Dispatch is by extension with a
// MIME sniff guard; failures return the extraction sentinels and must not
// abort the overall ranking (callers fall back to manual text).
func (e *Extractor) Extract(_ domain.Context, filename string, data []byte) (string, error) {
	if int64(len(data)) > e.maxBytes {
		return "", fmt.Errorf("op=extractor.Extract: %w: %d bytes exceeds %d", domain.ErrFileTooLarge, len(data), e.maxBytes)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	format := strings.TrimPrefix(ext, ".")
	if !allowedExt(ext) {
		observability.ExtractionsTotal.WithLabelValues(format, "unsupported").Inc()
		return "", fmt.Errorf("op=extractor.Extract: %w: %q", domain.ErrUnsupportedFormat, ext)
	}

	// Content sniff: extension says document, bytes must agree.
	mt := mimetype.Detect(data)
	if !mimeMatchesExt(mt.String(), ext) {
		observability.ExtractionsTotal.WithLabelValues(format, "mime_mismatch").Inc()
		return "", fmt.Errorf("op=extractor.Extract: %w: content is %s, extension %s", domain.ErrUnsupportedFormat, mt.String(), ext)
	}

	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		text, err = e.extractPDF(data)
	case ".docx":
		text, err = extractDocx(data)
	case ".doc":
		text, err = extractDocLegacy(data)
	}
	if err != nil {
		observability.ExtractionsTotal.WithLabelValues(format, "failed").Inc()
		slog.Warn("document extraction failed",
			slog.String("filename", filename), slog.Any("error", err))
		return "", fmt.Errorf("op=extractor.Extract: %w: %v", domain.ErrExtractionFailed, err)
	}
	observability.ExtractionsTotal.WithLabelValues(format, "ok").Inc()
	return text, nil
}

func allowedExt(ext string) bool {
	return ext == ".pdf" || ext == ".doc" || ext == ".docx"
}

func mimeMatchesExt(m, ext string) bool {
	m = strings.ToLower(m)
	switch ext {
	case ".pdf":
		return strings.HasPrefix(m, "application/pdf")
	case ".docx":
		return strings.HasPrefix(m, "application/vnd.openxmlformats-officedocument.wordprocessingml") ||
			strings.HasPrefix(m, "application/zip")
	case ".doc":
		// Legacy .doc detection is unreliable across producers; accept the
		// OLE container types and fall through to best-effort decode.
		return strings.HasPrefix(m, "application/msword") ||
			strings.HasPrefix(m, "application/x-ole-storage") ||
			strings.HasPrefix(m, "application/octet-stream")
	}
	return false
}

// extractPDF reads the text layer. Files above the partial threshold get a
// bounded leading-page slice plus a truncation notice rather than risking
// unbounded memory use.
func (e *Extractor) extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	partial := int64(len(data)) > e.pdfThreshold
	if !partial {
		rs, err := r.GetPlainText()
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, rs); err != nil {
			return "", err
		}
		return textx.SanitizeText(buf.String()), nil
	}

	var b strings.Builder
	pages := r.NumPage()
	if pages > maxPartialPages {
		pages = maxPartialPages
	}
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			// A bad page in a large file is not fatal; keep what we have.
			slog.Debug("skipping unreadable pdf page", slog.Int("page", i), slog.Any("error", err))
			continue
		}
		b.WriteString(content)
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no extractable text in leading %d pages", pages)
	}
	return textx.SanitizeText(b.String()) + truncationNotice, nil
}

// extractDocx walks word/document.xml inside the zip container, turning
// paragraph boundaries into newlines and stripping the remaining tags.
func extractDocx(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var docXML []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				return "", err
			}
			docXML, err = io.ReadAll(rc)
			_ = rc.Close()
			if err != nil {
				return "", err
			}
			break
		}
	}
	if len(docXML) == 0 {
		return "", fmt.Errorf("no document.xml found in docx")
	}
	x := string(docXML)
	x = strings.ReplaceAll(x, "</w:p>", "\n")
	x = strings.ReplaceAll(x, "<w:tab/>", "\t")
	x = xmlTags.ReplaceAllString(x, " ")
	return textx.SanitizeText(x), nil
}

var xmlTags = regexp.MustCompile(`<[^>]+>`)

// extractDocLegacy best-effort decodes a binary .doc: keep printable runs,
// drop everything else. Good enough to recover most body text without an
// OLE parser.
func extractDocLegacy(data []byte) (string, error) {
	var b strings.Builder
	run := 0
	var current strings.Builder
	flush := func() {
		// Short printable runs inside a binary stream are noise.
		if run >= 4 {
			b.WriteString(current.String())
			b.WriteByte(' ')
		}
		current.Reset()
		run = 0
	}
	for _, r := range string(data) {
		if r == unicode.ReplacementChar || (!unicode.IsPrint(r) && r != '\n' && r != '\t') {
			flush()
			continue
		}
		current.WriteRune(r)
		run++
	}
	flush()
	out := textx.SanitizeText(b.String())
	if len(out) < 20 {
		return "", fmt.Errorf("no extractable text in legacy doc")
	}
	return out, nil
}
