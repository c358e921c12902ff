package model

// RetrievalResult is a chunk paired with the per-query metadata accumulated
// across pipeline stages. Results are always ordered most relevant first.
type RetrievalResult struct {
	Chunk           *Chunk          `json:"chunk"`
	Score           float64         `json:"score"`
	Metadata        Metadata        `json:"metadata,omitempty"`
	RetrievalMethod RetrievalMethod `json:"retrieval_method"`
}

// Clone returns a copy of the result with its own metadata map, so that
// later stages can annotate it without touching earlier stages' view.
func (r *RetrievalResult) Clone() *RetrievalResult {
	meta := make(Metadata, len(r.Metadata))
	for k, v := range r.Metadata {
		meta[k] = v
	}
	return &RetrievalResult{
		Chunk:           r.Chunk,
		Score:           r.Score,
		Metadata:        meta,
		RetrievalMethod: r.RetrievalMethod,
	}
}

// FloatMeta reads a numeric metadata value, tolerating the types a JSONB
// round trip can produce.
func (r *RetrievalResult) FloatMeta(key string) (float64, bool) {
	v, ok := r.Metadata[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
