package formatter

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/futig/knowledge-console/internal/entity"
)

func sampleTranscript() *entity.Transcript {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return &entity.Transcript{
		SessionID:  "s-1",
		ExportedAt: at,
		Messages: []entity.ChatMessage{
			entity.NewChatMessage(entity.RoleUser, "What is the refund policy?", at),
			entity.NewChatMessage(entity.RoleAssistant, "Refunds within 30 days.", at.Add(time.Second)),
		},
	}
}

func TestMarkdownFormatter(t *testing.T) {
	out, err := NewMarkdownFormatter().Format(sampleTranscript())
	if err != nil {
		t.Fatalf("format failed: %v", err)
	}

	text := string(out)
	if !strings.HasPrefix(text, "# Conversation transcript") {
		t.Errorf("missing title: %q", text)
	}
	userAt := strings.Index(text, "What is the refund policy?")
	answerAt := strings.Index(text, "Refunds within 30 days.")
	if userAt < 0 || answerAt < 0 || userAt > answerAt {
		t.Errorf("messages missing or out of order:\n%s", text)
	}
	if !strings.Contains(text, "**You** (2024-06-01 12:00:00)") {
		t.Errorf("missing speaker header:\n%s", text)
	}
}

func TestPDFFormatter(t *testing.T) {
	out, err := NewPDFFormatter().Format(sampleTranscript())
	if err != nil {
		t.Fatalf("format failed: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Error("output is not a pdf document")
	}
}

func TestFactory(t *testing.T) {
	f := NewFactory()

	for format, ext := range map[entity.ExportFormat]string{
		entity.FormatMarkdown: ".md",
		entity.FormatPDF:      ".pdf",
		entity.FormatDOCX:     ".docx",
	} {
		fm, err := f.Create(format)
		if err != nil {
			t.Fatalf("create %s: %v", format, err)
		}
		if fm.FileExtension() != ext {
			t.Errorf("%s: unexpected extension %s", format, fm.FileExtension())
		}
	}

	if _, err := f.Create("odt"); !errors.Is(err, entity.ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestFileName(t *testing.T) {
	name := FileName(sampleTranscript(), NewMarkdownFormatter())
	if name != "transcript-20240601-120000.md" {
		t.Errorf("unexpected file name: %s", name)
	}
}
