package highlight

import (
	"sort"

	"github.com/futig/knowledge-console/internal/entity"
)

// Source is one row of the sources panel: a retrieved passage joined with
// its citation. Highlighted is set only when the query occurs in Text;
// otherwise surfaces show Text, escaped for their own markup.
type Source struct {
	Rank        int      `json:"rank"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Section     string   `json:"section,omitempty"`
	Score       *float64 `json:"score,omitempty"`
	Text        *string  `json:"text,omitempty"`
	Highlighted string   `json:"highlighted,omitempty"`
	Cited       bool     `json:"cited"`
}

// Sources joins citations and snippets by rank. Every snippet yields a row;
// a citation without a snippet yields a row with no text. Rows are ordered by rank.
func (h *Highlighter) Sources(query string, citations []entity.Citation, snippets []entity.Snippet) []Source {
	cited := make(map[int]entity.Citation, len(citations))
	for _, c := range citations {
		cited[c.Rank] = c
	}

	byRank := make(map[int]bool, len(snippets))
	sources := make([]Source, 0, len(snippets)+len(citations))

	for _, s := range snippets {
		src := Source{
			Rank:    s.Rank,
			Title:   s.Title,
			URL:     s.URL,
			Section: s.Section,
			Score:   s.Score,
			Text:    s.Text,
		}
		if c, ok := cited[s.Rank]; ok {
			src.Cited = true
			if src.Title == "" {
				src.Title = c.Title
			}
			if src.URL == "" {
				src.URL = c.URL
			}
		}
		if s.Text != nil {
			if marked, ok := h.mark(*s.Text, query); ok {
				src.Highlighted = marked
			}
		}
		byRank[s.Rank] = true
		sources = append(sources, src)
	}

	for _, c := range citations {
		if byRank[c.Rank] {
			continue
		}
		sources = append(sources, Source{
			Rank:  c.Rank,
			Title: c.Title,
			URL:   c.URL,
			Cited: true,
		})
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Rank < sources[j].Rank
	})
	return sources
}
