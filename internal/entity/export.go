package entity

import (
	"fmt"
	"strings"
	"time"
)

type ExportFormat string

const (
	FormatMarkdown ExportFormat = "md"
	FormatPDF      ExportFormat = "pdf"
	FormatDOCX     ExportFormat = "docx"
)

func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "pdf":
		return FormatPDF, nil
	case "docx", "word":
		return FormatDOCX, nil
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", ErrInvalidFormat, s)
	}
}

// Transcript is a session's history prepared for export. It is produced on
// demand and never stored.
type Transcript struct {
	SessionID  string
	ExportedAt time.Time
	Messages   []ChatMessage
}
