// Package render turns query results and index status into plain text shared
// by the terminal, Telegram and MCP surfaces.
package render

import (
	"fmt"
	"strings"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/highlight"
)

const (
	createdAtLayout = "2006-01-02 15:04"
	unknownDate     = "unknown"
)

// Metrics is the metrics bar of one answer.
type Metrics struct {
	LatencyMS        int64
	TokensPrompt     int64
	TokensCompletion int64
	CostUSD          float64
	Confidence       float64
	Level            entity.ConfidenceLevel
}

func MetricsOf(resp *entity.QueryResponse) Metrics {
	return Metrics{
		LatencyMS:        resp.Telemetry.LatencyMS,
		TokensPrompt:     resp.Telemetry.TokensPrompt,
		TokensCompletion: resp.Telemetry.TokensCompletion,
		CostUSD:          resp.Telemetry.CostUSD,
		Confidence:       resp.Confidence,
		Level:            entity.ConfidenceLevelOf(resp.Confidence),
	}
}

func (m Metrics) String() string {
	return fmt.Sprintf("latency %dms | prompt %d | completion %d | cost $%.4f | confidence %.0f%% (%s)",
		m.LatencyMS, m.TokensPrompt, m.TokensCompletion, m.CostUSD, m.Confidence*100, m.Level)
}

// SourcesText lists sources as numbered entries. highlighted selects the
// marked-up text over the raw snippet text.
func SourcesText(sources []highlight.Source, highlighted bool) string {
	if len(sources) == 0 {
		return "No sources."
	}

	var b strings.Builder
	for i, s := range sources {
		if i > 0 {
			b.WriteString("\n\n")
		}

		fmt.Fprintf(&b, "[%d] %s", s.Rank, s.Title)
		if s.Score != nil {
			fmt.Fprintf(&b, " (score %.3f)", *s.Score)
		}
		if !s.Cited {
			b.WriteString(" - not cited")
		}
		if s.URL != "" {
			fmt.Fprintf(&b, "\n%s", s.URL)
		}

		switch {
		case highlighted && s.Highlighted != "":
			fmt.Fprintf(&b, "\n%s", s.Highlighted)
		case s.Text != nil:
			fmt.Fprintf(&b, "\n%s", *s.Text)
		}
	}
	return b.String()
}

// StatusText summarises index status as reported, listing at most limit
// documents (all when limit <= 0).
func StatusText(status *entity.IngestStatus, limit int) string {
	if status == nil {
		return "Index status unknown."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Status: %s\nDocuments: %d\nChunks: %d", status.Status, status.TotalDocuments, status.TotalChunks)

	docs := status.Documents
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	for _, d := range docs {
		fmt.Fprintf(&b, "\n- %s (%d chunks, added %s)", d.Title, d.ChunkCount, CreatedAt(d))
	}
	if len(docs) < len(status.Documents) {
		fmt.Fprintf(&b, "\n... and %d more", len(status.Documents)-len(docs))
	}
	return b.String()
}

// CreatedAt formats a document date, or "unknown" when the backend sent none.
func CreatedAt(d entity.DocumentSummary) string {
	if !d.CreatedAt.Known() {
		return unknownDate
	}
	return d.CreatedAt.Format(createdAtLayout)
}
