package model

// ChunkStrategy selects how body text is split.
type ChunkStrategy string

const (
	StrategyFixed    ChunkStrategy = "fixed"
	StrategySemantic ChunkStrategy = "semantic"
	StrategyAuto     ChunkStrategy = "auto"
)

// ChunkOptions configures one chunking call.
type ChunkOptions struct {
	Strategy ChunkStrategy `json:"strategy"`
	// Fixed strategy parameters, measured in words
	WindowSize int `json:"window_size"`
	Overlap    int `json:"overlap"`
	// Semantic strategy ceilings; above either the chunker falls back to
	// fixed chunking with the fixed_large_doc label
	MaxSemanticChars int `json:"max_semantic_chars"`
	MaxSemanticPages int `json:"max_semantic_pages"`
	// Minimum joined text length for a section to get its own chunk
	MinSectionLength int `json:"min_section_length"`
}

// DefaultChunkOptions returns a sensible default configuration.
func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{
		Strategy:         StrategyAuto,
		WindowSize:       400,
		Overlap:          50,
		MaxSemanticChars: 100000,
		MaxSemanticPages: 50,
		MinSectionLength: 50,
	}
}

// ResolveOptions configures one entity resolution call.
type ResolveOptions struct {
	// Similarity at or above which an entity is linked as the same entity
	SameAsThreshold float64 `json:"same_as_threshold"`
	// Similarity at or above which an entity is linked as merely similar
	SimilarThreshold float64 `json:"similar_threshold"`
	// Maximum stored candidates fetched per entity
	MaxCandidates int `json:"max_candidates"`
}

// DefaultResolveOptions returns a sensible default configuration.
func DefaultResolveOptions() ResolveOptions {
	return ResolveOptions{
		SameAsThreshold:  0.92,
		SimilarThreshold: 0.85,
		MaxCandidates:    5,
	}
}

// QueryOptions configures one retrieval call.
type QueryOptions struct {
	// User the security filter is scoped to
	UserID string `json:"user_id"`
	// Caller-supplied filter expression, AND-composed with the security filter
	Filter string `json:"filter,omitempty"`
	TopK   int    `json:"top_k"`
	// Over-fetch multiplier applied before security trimming
	OverFetchFactor     int  `json:"over_fetch_factor"`
	GraphDepth          int  `json:"graph_depth"`
	IncludeGraphContext bool `json:"include_graph_context"`
	Temperature         float64 `json:"temperature"`
	MaxTokens           int     `json:"max_tokens"`
}

// DefaultQueryOptions returns a sensible default configuration.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		TopK:                5,
		OverFetchFactor:     3,
		GraphDepth:          2,
		IncludeGraphContext: true,
		Temperature:         0.3,
		MaxTokens:           1500,
	}
}
