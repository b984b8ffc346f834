package render

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/highlight"
	pkgrender "github.com/futig/knowledge-console/internal/pkg/render"
	"github.com/futig/knowledge-console/internal/usecase/query"
)

const (
	// Telegram rejects messages longer than 4096 characters
	maxMessageRunes = 4000
	maxSnippetRunes = 600
	maxStatusDocs   = 10
)

const (
	MsgWelcome = `👋 Hi! I answer questions from your knowledge base.

Just send a question. Send a document (.md, .pdf, .html) to add it to the index.

/help lists everything I can do.`

	MsgHelp = `<b>Commands</b>

/start - Start over
/help - Show this help
/clear - Forget the conversation
/sources - Sources of the last answer
/metrics - Latency, tokens, cost and confidence of the last answer
/status - Index status
/ingest &lt;path&gt; ... - Ingest server-side paths
/rebuild - Rebuild the index
/export [md|pdf|docx] - Download the conversation
/feedback &lt;1-5&gt; [comment] - Rate the last answer

Any other text is a question. Documents are uploaded to the index.`

	MsgCleared         = `🧹 Conversation cleared.`
	MsgQueryPending    = `⏳ Still working on your previous question.`
	MsgIngestPending   = `⏳ An ingestion of this kind is already running. Try again when it finishes.`
	MsgNoAnswerYet     = `Nothing answered yet. Ask a question first.`
	MsgIngestUsage     = `Usage: /ingest &lt;path&gt; [path ...]`
	MsgFeedbackUsage   = `Usage: /feedback &lt;1-5&gt; [comment]`
	MsgFeedbackThanks  = `🙏 Thanks for the feedback!`
	MsgChooseFormat    = `📄 Choose a format:`
	MsgUploading       = `📤 Uploading <b>%s</b>...`
	MsgRebuildStarted  = `🔄 Rebuild requested: %s`
	MsgIngestAccepted  = `📥 Ingestion requested: %s`
	MsgEmptyTranscript = `The conversation is empty.`
	MsgSlowDown        = `⚠️ Too many requests. Please slow down.`
	MsgRateLimited     = `⚠️ Rate limit exceeded. Wait about 30 seconds before the next message.`
	MsgTooOften        = `🛑 You are sending messages too often. Please wait a minute.`

	ErrGeneric         = `❌ Something went wrong. Try again.`
	ErrUnknownCommand  = `❌ Unknown command. See /help`
	ErrUnsupportedFile = `❌ Unsupported file %s. Supported: %s`
	ErrBackendDown     = `❌ Cannot reach the knowledge backend. Try again in a minute.`
	ErrBackend         = `❌ The backend returned an error: %s`
	ErrMalformed       = `❌ The backend sent a response I could not read.`
	ErrTimeout         = `❌ The backend did not answer in time. Try again.`
	ErrNetworkIssue    = `❌ Connection problem. Try again later.`
	ErrInvalidInput    = `❌ %s`
	ErrFileTooLarge    = `❌ The file is too large.`
	ErrDownload        = `❌ Could not download the file from Telegram.`
)

// Escape escapes text for Telegram's HTML parse mode.
func Escape(text string) string {
	return html.EscapeString(text)
}

// Answer renders an answer followed by its metrics line.
func Answer(r *query.Result) string {
	metrics := pkgrender.MetricsOf(r.Response)

	var b strings.Builder
	b.WriteString(Escape(Truncate(r.Response.Answer, maxMessageRunes-300)))
	fmt.Fprintf(&b, "\n\n%s <i>%s</i>", confidenceEmoji(metrics.Level), Escape(metrics.String()))
	return b.String()
}

// Failure renders the assistant message recorded for a failed question.
func Failure(msg entity.ChatMessage) string {
	return "⚠️ " + Escape(msg.Content)
}

// Sources renders the sources of r with query terms in bold. Snippets are
// shortened before highlighting so markup is never cut.
func Sources(r *query.Result) string {
	if len(r.Sources) == 0 {
		return "No sources."
	}

	h := highlight.Telegram()
	var b strings.Builder
	for i, s := range r.Sources {
		if i > 0 {
			b.WriteString("\n\n")
		}

		fmt.Fprintf(&b, "<b>[%d]</b> ", s.Rank)
		if s.URL != "" {
			fmt.Fprintf(&b, `<a href="%s">%s</a>`, Escape(s.URL), Escape(s.Title))
		} else {
			b.WriteString(Escape(s.Title))
		}
		if s.Score != nil {
			fmt.Fprintf(&b, " <i>(score %.3f)</i>", *s.Score)
		}
		if !s.Cited {
			b.WriteString(" <i>not cited</i>")
		}
		if s.Text != nil {
			b.WriteString("\n")
			b.WriteString(h.Render(Truncate(*s.Text, maxSnippetRunes), r.Query))
		}

		if utf8.RuneCountInString(b.String()) > maxMessageRunes-maxSnippetRunes {
			if rest := len(r.Sources) - i - 1; rest > 0 {
				fmt.Fprintf(&b, "\n\n... and %d more", rest)
			}
			break
		}
	}
	return b.String()
}

// Metrics renders the metrics line of r.
func Metrics(r *query.Result) string {
	m := pkgrender.MetricsOf(r.Response)
	return fmt.Sprintf("%s %s", confidenceEmoji(m.Level), Escape(m.String()))
}

// Status renders index status as preformatted text.
func Status(status *entity.IngestStatus) string {
	return "<pre>" + Escape(pkgrender.StatusText(status, maxStatusDocs)) + "</pre>"
}

// UploadResult renders an upload summary.
func UploadResult(summary string) string {
	return "✅ " + Escape(summary)
}

// Truncate cuts s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

func confidenceEmoji(level entity.ConfidenceLevel) string {
	switch level {
	case entity.ConfidenceHigh:
		return "🟢"
	case entity.ConfidenceMedium:
		return "🟡"
	default:
		return "🔴"
	}
}
