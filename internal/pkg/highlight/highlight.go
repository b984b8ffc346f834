package highlight

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const minTermLength = 3

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {},
	"all": {}, "any": {}, "can": {}, "was": {}, "our": {}, "has": {}, "have": {},
	"how": {}, "what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "why": {},
	"this": {}, "that": {}, "with": {}, "from": {}, "into": {}, "does": {}, "your": {},
	"there": {}, "their": {}, "about": {}, "would": {}, "could": {}, "should": {},
}

// Highlighter wraps query terms found in a text with Open and Close markers.
// Escape, when set, is applied to every text segment (matched or not) so the
// markers can be HTML while the text stays safe.
type Highlighter struct {
	Open   string
	Close  string
	Escape func(string) string
}

func New(open, close string) *Highlighter {
	return &Highlighter{Open: open, Close: close}
}

// HTML marks with <mark> and escapes the text for HTML output.
func HTML() *Highlighter {
	return &Highlighter{Open: "<mark>", Close: "</mark>", Escape: htmlEscape}
}

// Telegram marks with bold tags for Telegram's HTML parse mode.
func Telegram() *Highlighter {
	return &Highlighter{Open: "<b>", Close: "</b>", Escape: htmlEscape}
}

// Highlight returns text with every occurrence of a query term wrapped.
// If nothing can be highlighted the text comes back unchanged, unescaped
// even when an Escape func is set; it never panics on pattern-special input.
func (h *Highlighter) Highlight(text, query string) string {
	if out, ok := h.mark(text, query); ok {
		return out
	}
	return text
}

// Render is Highlight for output in the marker's markup: when nothing
// matches, the text is escaped instead of returned as is.
func (h *Highlighter) Render(text, query string) string {
	if out, ok := h.mark(text, query); ok {
		return out
	}
	return h.escape(text)
}

// mark reports false when the query yields no pattern, the text has no
// occurrence, or marking panicked.
func (h *Highlighter) mark(text, query string) (out string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			out, ok = "", false
		}
	}()

	re := compile(query)
	if re == nil {
		return "", false
	}
	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return "", false
	}

	var b strings.Builder
	b.Grow(len(text) + len(matches)*(len(h.Open)+len(h.Close)))
	prev := 0
	for _, m := range matches {
		b.WriteString(h.escape(text[prev:m[0]]))
		b.WriteString(h.Open)
		b.WriteString(h.escape(text[m[0]:m[1]]))
		b.WriteString(h.Close)
		prev = m[1]
	}
	b.WriteString(h.escape(text[prev:]))
	return b.String(), true
}

func (h *Highlighter) escape(s string) string {
	if h.Escape == nil {
		return s
	}
	return h.Escape(s)
}

// Terms splits a query into the terms that would be highlighted.
func Terms(query string) []string {
	seen := make(map[string]struct{})
	var terms []string

	for _, field := range strings.Fields(query) {
		term := strings.TrimFunc(field, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		lower := strings.ToLower(term)
		if utf8.RuneCountInString(term) < minTermLength {
			continue
		}
		if _, stop := stopWords[lower]; stop {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		terms = append(terms, term)
	}

	// Longest first so a longer term wins over its own prefix.
	sort.SliceStable(terms, func(i, j int) bool {
		return utf8.RuneCountInString(terms[i]) > utf8.RuneCountInString(terms[j])
	})
	return terms
}

func compile(query string) *regexp.Regexp {
	terms := Terms(query)
	if len(terms) == 0 {
		return nil
	}

	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = regexp.QuoteMeta(term)
	}

	re, err := regexp.Compile("(?i)(?:" + strings.Join(quoted, "|") + ")")
	if err != nil {
		return nil
	}
	return re
}

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&#34;",
	"'", "&#39;",
)

func htmlEscape(s string) string {
	return htmlReplacer.Replace(s)
}
