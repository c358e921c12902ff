package model

// PipelineState names a stage of the query pipeline. The non-terminal
// states trace progress through the stages; the terminal states report
// how a query ended.
type PipelineState string

const (
	StateEnhancing       PipelineState = "ENHANCING"
	StateRetrieving      PipelineState = "RETRIEVING"
	StatePrefiltering    PipelineState = "PREFILTERING"
	StateReranking       PipelineState = "RERANKING"
	StateThresholding    PipelineState = "THRESHOLDING"
	StateContextBuilding PipelineState = "CONTEXT_BUILDING"
	StateGenerating      PipelineState = "GENERATING"

	StateDone                 PipelineState = "DONE"
	StateDegradedNoDocs       PipelineState = "DEGRADED_NO_DOCS"
	StateDegradedLowRelevance PipelineState = "DEGRADED_LOW_RELEVANCE"
	StateFailed               PipelineState = "FAILED"
)

// Terminal reports whether the state ends a query.
func (s PipelineState) Terminal() bool {
	switch s {
	case StateDone, StateDegradedNoDocs, StateDegradedLowRelevance, StateFailed:
		return true
	}
	return false
}

// Source describes one context chunk cited in an answer.
type Source struct {
	Source         string  `json:"source"`
	ChunkIndex     int     `json:"chunk_index"`
	RelevanceScore float64 `json:"relevance_score"`
	RerankerScore  float64 `json:"reranker_score"`
}

// Answer is the caller-visible result of one query. Degraded terminal states
// still produce an Answer with an explanatory text and an empty source list.
type Answer struct {
	Text       string        `json:"text"`
	Sources    []Source      `json:"sources"`
	Suggestion string        `json:"suggestion,omitempty"`
	State      PipelineState `json:"state"`
}

// Chat roles for conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one prior exchange of a chat session, passed through to the LLM
// for conversational context.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
