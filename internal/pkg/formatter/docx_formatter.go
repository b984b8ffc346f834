package formatter

import (
	"bytes"
	"fmt"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/unidoc/unioffice/document"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (df *DOCXFormatter) Format(t *entity.Transcript) ([]byte, error) {
	doc := document.New()
	defer doc.Close()

	titlePar := doc.AddParagraph()
	titlePar.SetStyle("Heading1")
	titlePar.AddRun().AddText(baseTitle)

	metaRun := doc.AddParagraph().AddRun()
	metaRun.Properties().SetItalic(true)
	metaRun.AddText(fmt.Sprintf("Session %s, exported %s UTC", t.SessionID, t.ExportedAt.UTC().Format(timestampLayout)))

	for _, msg := range t.Messages {
		headerRun := doc.AddParagraph().AddRun()
		headerRun.Properties().SetBold(true)
		headerRun.AddText(fmt.Sprintf("%s (%s)", speaker(msg.Role), stamp(msg.Timestamp)))

		doc.AddParagraph().AddRun().AddText(msg.Content)
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (df *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (df *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
