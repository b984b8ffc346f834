package formatter

import (
	"fmt"
	"time"

	"github.com/futig/knowledge-console/internal/entity"
)

const (
	baseTitle       = "Conversation transcript"
	timestampLayout = "2006-01-02 15:04:05"
)

type Formatter interface {
	Format(t *entity.Transcript) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.ExportFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported format: %s", entity.ErrInvalidFormat, format)
	}
}

// FileName builds the download name of an exported transcript.
func FileName(t *entity.Transcript, f Formatter) string {
	return fmt.Sprintf("transcript-%s%s", t.ExportedAt.UTC().Format("20060102-150405"), f.FileExtension())
}

func speaker(role entity.Role) string {
	switch role {
	case entity.RoleUser:
		return "You"
	case entity.RoleAssistant:
		return "Assistant"
	default:
		return string(role)
	}
}

func stamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(timestampLayout)
}
