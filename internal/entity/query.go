package entity

const (
	DefaultTopK            = 20
	ConversationalKFinal   = 5
	StandaloneSearchKFinal = 10

	MinQueryLength = 3
	MaxQueryLength = 2000
	MinTopK        = 1
	MaxTopK        = 100
	MinKFinal      = 1
	MaxKFinal      = 20
)

type QueryRequest struct {
	Query  string `json:"query"`
	TopK   *int   `json:"top_k,omitempty"`
	KFinal *int   `json:"k_final,omitempty"`
}

func NewQueryRequest(query string, topK, kFinal int) *QueryRequest {
	return &QueryRequest{
		Query:  query,
		TopK:   &topK,
		KFinal: &kFinal,
	}
}

type Citation struct {
	Rank  int    `json:"rank"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Snippet is a retrieved passage. Score and Text are nil when the backend omits them.
type Snippet struct {
	Rank    int      `json:"rank"`
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Section string   `json:"section,omitempty"`
	Score   *float64 `json:"score,omitempty"`
	Text    *string  `json:"text,omitempty"`
}

type Telemetry struct {
	LatencyMS        int64   `json:"latency_ms"`
	TokensPrompt     int64   `json:"tokens_prompt"`
	TokensCompletion int64   `json:"tokens_completion"`
	CostUSD          float64 `json:"cost_usd"`
}

type QueryResponse struct {
	Answer     string     `json:"answer"`
	Citations  []Citation `json:"citations"`
	Confidence float64    `json:"confidence"`
	Telemetry  Telemetry  `json:"telemetry"`
	Snippets   []Snippet  `json:"snippets"`
}

type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// ConfidenceLevelOf bands a confidence score the way the metrics bar colours it.
func ConfidenceLevelOf(confidence float64) ConfidenceLevel {
	switch {
	case confidence < 0.4:
		return ConfidenceLow
	case confidence < 0.7:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}
