package highlight

import (
	"testing"

	"github.com/futig/knowledge-console/internal/entity"
)

func TestHighlight_RefundQuery(t *testing.T) {
	h := New("<mark>", "</mark>")

	got := h.Highlight("Refunds are available within 30 days.", "What is the refund policy?")
	want := "<mark>Refund</mark>s are available within 30 days."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHighlight_IdentityWithoutMatch(t *testing.T) {
	h := New("<mark>", "</mark>")
	text := "Shipping takes 3 to 5 business days."

	cases := []string{"", "   ", "refund", "is a to", "the and for"}
	for _, query := range cases {
		if got := h.Highlight(text, query); got != text {
			t.Errorf("query %q: expected identity, got %q", query, got)
		}
	}
}

func TestHighlight_PatternSpecialInput(t *testing.T) {
	h := New("[", "]")

	queries := []string{"(unclosed", "a.b*c?", `back\slash`, "[range", "$^|+", "((()))", "*"}
	for _, q := range queries {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("query %q panicked: %v", q, r)
				}
			}()
			h.Highlight("some (unclosed text with a.b*c and aXbbc", q)
		}()
	}

	got := h.Highlight("aXbYc vs a.b*c", "a.b*c")
	if got != "aXbYc vs [a.b*c]" {
		t.Errorf("metacharacters should match literally, got %q", got)
	}
}

func TestHighlight_CaseInsensitiveLongestFirst(t *testing.T) {
	h := New("<", ">")

	got := h.Highlight("Policy and POLICYHOLDER", "policy policyholder")
	if got != "<Policy> and <POLICYHOLDER>" {
		t.Errorf("got %q", got)
	}
}

func TestHighlight_HTMLEscapes(t *testing.T) {
	h := HTML()

	got := h.Highlight("<b>refund</b> & more", "refund")
	want := "&lt;b&gt;<mark>refund</mark>&lt;/b&gt; &amp; more"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHighlight_EscapingHighlightersKeepIdentity(t *testing.T) {
	text := "Returns aren't accepted for items over $50 & used goods."

	for name, h := range map[string]*Highlighter{"html": HTML(), "telegram": Telegram()} {
		for _, query := range []string{"", "shipping", "(x)"} {
			if got := h.Highlight(text, query); got != text {
				t.Errorf("%s, query %q: expected identity, got %q", name, query, got)
			}
		}
	}
}

func TestRender_EscapesWithoutMatch(t *testing.T) {
	h := Telegram()

	if got := h.Render("a < b & c", "shipping"); got != "a &lt; b &amp; c" {
		t.Errorf("unexpected render %q", got)
	}
	if got := h.Render("refund < 30 days", "refund"); got != "<b>refund</b> &lt; 30 days" {
		t.Errorf("unexpected render %q", got)
	}
}

func TestSources_HighlightedOnlyOnMatch(t *testing.T) {
	matched, other := "Refunds & returns", "Shipping isn't free"
	snippets := []entity.Snippet{
		{Rank: 1, Title: "Refunds", Text: &matched},
		{Rank: 2, Title: "Shipping", Text: &other},
	}

	sources := HTML().Sources("refund", nil, snippets)
	if sources[0].Highlighted != "<mark>Refund</mark>s &amp; returns" {
		t.Errorf("unexpected highlight %q", sources[0].Highlighted)
	}
	if sources[1].Highlighted != "" || *sources[1].Text != other {
		t.Errorf("unmatched source must keep its text untouched: %+v", sources[1])
	}
}

func TestTerms(t *testing.T) {
	terms := Terms("What is the Refund policy? refund!")
	if len(terms) != 2 {
		t.Fatalf("expected 2 terms, got %v", terms)
	}
	if terms[0] != "Refund" && terms[0] != "policy" {
		t.Errorf("unexpected terms: %v", terms)
	}
}

func TestSources_JoinsByRank(t *testing.T) {
	h := New("<mark>", "</mark>")
	score := 0.91
	text := "Refunds are available"

	citations := []entity.Citation{
		{Rank: 2, Title: "Terms", URL: "https://x/terms"},
		{Rank: 1, Title: "Refund Policy", URL: "https://x/refunds"},
	}
	snippets := []entity.Snippet{
		{Rank: 1, Title: "Refund Policy", URL: "https://x/refunds", Score: &score, Text: &text},
		{Rank: 3, Title: "FAQ", URL: "https://x/faq"},
	}

	sources := h.Sources("refund policy", citations, snippets)
	if len(sources) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(sources))
	}

	for i, rank := range []int{1, 2, 3} {
		if sources[i].Rank != rank {
			t.Errorf("source %d has rank %d, want %d", i, sources[i].Rank, rank)
		}
	}

	if !sources[0].Cited || sources[0].Highlighted != "<mark>Refund</mark>s are available" {
		t.Errorf("unexpected first source: %+v", sources[0])
	}
	if !sources[1].Cited || sources[1].Text != nil {
		t.Errorf("citation without snippet should carry no text: %+v", sources[1])
	}
	if sources[2].Cited || sources[2].Highlighted != "" {
		t.Errorf("uncited snippet without text: %+v", sources[2])
	}
}
