package cli

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/highlight"
	"github.com/futig/knowledge-console/internal/pkg/render"
	"github.com/futig/knowledge-console/internal/pkg/response"
	"github.com/futig/knowledge-console/internal/usecase/ingest"
	"github.com/futig/knowledge-console/internal/usecase/query"
)

const wordWrap = 100

// Highlighter marks query terms as markdown bold so the glamour renderer and
// MCP clients both show them emphasised.
func Highlighter() *highlight.Highlighter {
	return highlight.New("**", "**")
}

type renderFunc func(markdown string) string

func newRenderer(width int) renderFunc {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return plain
	}
	return func(md string) string {
		out, err := r.Render(md)
		if err != nil {
			return plain(md)
		}
		return out
	}
}

func plain(md string) string {
	return md + "\n"
}

func answerMarkdown(r *query.Result) string {
	var b strings.Builder
	b.WriteString(r.Response.Answer)

	if len(r.Response.Citations) > 0 {
		b.WriteString("\n\n**Citations**\n")
		for _, c := range r.Response.Citations {
			fmt.Fprintf(&b, "\n- [%d] %s", c.Rank, link(c.Title, c.URL))
		}
	}
	return b.String()
}

func sourcesMarkdown(sources []highlight.Source) string {
	if len(sources) == 0 {
		return "_No sources._"
	}

	var b strings.Builder
	for i, s := range sources {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "### [%d] %s", s.Rank, s.Title)

		var meta []string
		if s.Section != "" {
			meta = append(meta, s.Section)
		}
		if s.Score != nil {
			meta = append(meta, fmt.Sprintf("score %.3f", *s.Score))
		}
		if !s.Cited {
			meta = append(meta, "not cited")
		}
		if len(meta) > 0 {
			fmt.Fprintf(&b, "\n\n_%s_", strings.Join(meta, ", "))
		}
		if s.URL != "" {
			fmt.Fprintf(&b, "\n\n%s", s.URL)
		}

		text := s.Highlighted
		if text == "" && s.Text != nil {
			text = *s.Text
		}
		if text != "" {
			fmt.Fprintf(&b, "\n\n> %s", strings.ReplaceAll(text, "\n", "\n> "))
		}
	}
	return b.String()
}

func metricsLine(m render.Metrics) string {
	bar := metricsStyle.Render(fmt.Sprintf("%dms | prompt %d | completion %d | $%.4f",
		m.LatencyMS, m.TokensPrompt, m.TokensCompletion, m.CostUSD))
	conf := confidenceStyle(m.Level).Render(fmt.Sprintf("confidence %.0f%% (%s)", m.Confidence*100, m.Level))
	return bar + " " + conf
}

func link(title, url string) string {
	if url == "" {
		return title
	}
	return fmt.Sprintf("[%s](%s)", title, url)
}

// describe turns an error into the line shown to a terminal user.
func describe(err error) string {
	status, msg := response.Classify(err)
	if status == http.StatusInternalServerError {
		return err.Error()
	}
	return msg
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("Error: "+describe(err)))
}

func printUploadResult(w io.Writer, resp *entity.IngestUploadResponse, submitted int, rejected []string) {
	for _, name := range rejected {
		fmt.Fprintln(w, warnStyle.Render("skipped unsupported file: "+name))
	}
	style := successStyle
	if resp.Status != entity.IngestStatusOK {
		style = warnStyle
	}
	fmt.Fprintln(w, style.Render(ingest.UploadSummary(resp, submitted)))
}
