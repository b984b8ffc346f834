package formatter

import (
	"bytes"
	"fmt"

	"github.com/futig/knowledge-console/internal/entity"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(t *entity.Transcript) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", baseTitle)
	fmt.Fprintf(&buf, "_Session %s, exported %s UTC_\n", t.SessionID, t.ExportedAt.UTC().Format(timestampLayout))

	for _, msg := range t.Messages {
		fmt.Fprintf(&buf, "\n**%s** (%s)\n\n%s\n", speaker(msg.Role), stamp(msg.Timestamp), msg.Content)
	}
	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
