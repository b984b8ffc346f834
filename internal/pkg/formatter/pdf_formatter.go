package formatter

import (
	"bytes"
	"fmt"
	"os"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/jung-kurt/gofpdf"
)

const (
	pdfContentType   = "application/pdf"
	pdfFileExtension = ".pdf"

	// pdfFontName is the internal name used by gofpdf
	// for the UTF-8 capable font.
	pdfFontName = "DejaVuSans"

	// Runtime layout: fonts copied next to the binary.
	pdfFontRuntimePath = "ttf/DejaVuSans.ttf"

	// Source layout, when running from the repo root.
	pdfFontSourcePath = "internal/pkg/formatter/ttf/DejaVuSans.ttf"
)

type PDFFormatter struct {
	fontPath string
}

func NewPDFFormatter() *PDFFormatter {
	return &PDFFormatter{fontPath: resolveFontPath()}
}

func resolveFontPath() string {
	for _, p := range []string{pdfFontRuntimePath, pdfFontSourcePath} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (pf *PDFFormatter) Format(t *entity.Transcript) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// Core fonts are cp1252 only; without the bundled TTF non-latin text is
	// passed through the translator and may lose characters.
	fontName := "Arial"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if pf.fontPath != "" {
		pdf.AddUTF8Font(pdfFontName, "", pf.fontPath)
		pdf.AddUTF8Font(pdfFontName, "B", pf.fontPath)
		fontName = pdfFontName
		tr = func(s string) string { return s }
	}

	pdf.SetFont(fontName, "B", 20)
	pdf.Cell(0, 10, tr(baseTitle))
	pdf.Ln(12)

	pdf.SetFont(fontName, "", 9)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Session %s, exported %s UTC", t.SessionID, t.ExportedAt.UTC().Format(timestampLayout))))
	pdf.Ln(10)

	for _, msg := range t.Messages {
		pdf.SetFont(fontName, "B", 12)
		pdf.Cell(0, 7, tr(fmt.Sprintf("%s (%s)", speaker(msg.Role), stamp(msg.Timestamp))))
		pdf.Ln(7)

		pdf.SetFont(fontName, "", 11)
		_, lineHeight := pdf.GetFontSize()
		pdf.MultiCell(0, lineHeight*1.5, tr(msg.Content), "", "", false)
		pdf.Ln(3)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (pf *PDFFormatter) ContentType() string {
	return pdfContentType
}

func (pf *PDFFormatter) FileExtension() string {
	return pdfFileExtension
}
