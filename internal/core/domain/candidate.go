package domain

type Channel string

const (
	ChannelDense  Channel = "dense"
	ChannelSparse Channel = "sparse"
)

// ChunkMetadata is the attribute snapshot stored alongside an indexed chunk.
type ChunkMetadata struct {
	Category string  `json:"category,omitempty"`
	Brand    string  `json:"brand,omitempty"`
	Price    float64 `json:"price,omitempty"`
	Source   string  `json:"source,omitempty"`
	Language string  `json:"language,omitempty"`
}

// Candidate is a single chunk hit from one retrieval channel. Score is
// channel-local and not comparable across channels before fusion.
type Candidate struct {
	ProductID string
	ChunkID   string
	Text      string
	Channel   Channel
	Score     float64
	Metadata  ChunkMetadata
}

type Provenance string

const (
	ProvenanceDense  Provenance = "dense"
	ProvenanceSparse Provenance = "sparse"
	ProvenanceFused  Provenance = "fused"
)

// FusedCandidate carries the normalized fused score for a (product, chunk)
// pair, plus an optional rerank score that overrides the fused score for
// final ordering. At most one exists per pair in any fused pool.
type FusedCandidate struct {
	ProductID  string
	ChunkID    string
	Text       string
	Metadata   ChunkMetadata
	Fused      float64
	Rerank     *float64
	SeenDense  bool
	SeenSparse bool
}

func (c FusedCandidate) Provenance() Provenance {
	switch {
	case c.SeenDense && c.SeenSparse:
		return ProvenanceFused
	case c.SeenSparse:
		return ProvenanceSparse
	default:
		return ProvenanceDense
	}
}

func (c FusedCandidate) FinalScore() float64 {
	if c.Rerank != nil {
		return *c.Rerank
	}
	return c.Fused
}

// RankedResult is the final output unit: one product with its best chunk as
// citation. Product ids are unique within a result set.
type RankedResult struct {
	ProductID  string     `json:"product_id"`
	ChunkID    string     `json:"chunk_id"`
	Text       string     `json:"text"`
	Score      float64    `json:"score"`
	Provenance Provenance `json:"provenance"`
}
