package render

import (
	"strings"
	"testing"
	"time"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/highlight"
)

func TestMetricsString(t *testing.T) {
	m := MetricsOf(&entity.QueryResponse{
		Confidence: 0.82,
		Telemetry:  entity.Telemetry{LatencyMS: 120, TokensPrompt: 50, TokensCompletion: 10, CostUSD: 0.0004},
	})

	want := "latency 120ms | prompt 50 | completion 10 | cost $0.0004 | confidence 82% (high)"
	if m.String() != want {
		t.Errorf("got %q, want %q", m.String(), want)
	}
}

func TestSourcesText(t *testing.T) {
	score := 0.91
	text := "Refunds are allowed"
	sources := []highlight.Source{
		{Rank: 1, Title: "Policy", URL: "https://x/policy", Score: &score, Text: &text, Highlighted: "<b>Refund</b>s are allowed", Cited: true},
		{Rank: 2, Title: "FAQ"},
	}

	out := SourcesText(sources, true)
	if !strings.Contains(out, "[1] Policy (score 0.910)") || !strings.Contains(out, "<b>Refund</b>s") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "[2] FAQ - not cited") {
		t.Errorf("uncited source not marked:\n%s", out)
	}

	if plain := SourcesText(sources, false); strings.Contains(plain, "<b>") {
		t.Errorf("plain output carries markup:\n%s", plain)
	}
	if SourcesText(nil, true) != "No sources." {
		t.Error("unexpected empty output")
	}
}

func TestStatusText(t *testing.T) {
	status := &entity.IngestStatus{
		Status:         "ok",
		TotalDocuments: 3,
		TotalChunks:    12,
		Documents: []entity.DocumentSummary{
			{Title: "a.md", ChunkCount: 4, CreatedAt: &entity.Timestamp{Time: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}},
			{Title: "b.md", ChunkCount: 4},
			{Title: "c.md", ChunkCount: 4},
		},
	}

	out := StatusText(status, 2)
	for _, want := range []string{"Documents: 3", "Chunks: 12", "a.md (4 chunks, added 2024-05-01 09:00)", "b.md (4 chunks, added unknown)", "... and 1 more"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "c.md") {
		t.Errorf("limit not applied:\n%s", out)
	}
}
