package ai

import "context"

// Request carries everything an analyzer may use to judge a single tender.
// Criteria, ExtraText and Document are all optional.
type Request struct {
	Title       string
	Description string
	// Criteria is the buyer profile text the tender is scored against.
	Criteria string
	// ExtraText is supplementary context, typically text extracted from an
	// attached document. Analyzers cap its length before prompting.
	ExtraText string
	// Document is a raw attachment forwarded to backends that can read it
	// visually. DocumentMIME declares its media type.
	Document     []byte
	DocumentMIME string
}

// Analysis is the scoring outcome for one tender. Score is in [0,100] and
// Reason is a non-empty Spanish sentence, prefixed with "[PDF] " when the
// backend used an attached document.
type Analysis struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// Analyzer produces a well-formed Analysis on every call. Failures of the
// backing service surface as degraded results, never as errors.
type Analyzer interface {
	Analyze(ctx context.Context, req *Request) *Analysis
}
