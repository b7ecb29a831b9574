package semantic

// VectorRecord is a single point to store: the record id, its embedding,
// and the flattened metadata projection. Metadata is written wholesale on
// every upsert; it is never patched field by field.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Meta      map[string]string
}

// SearchResult is a single k-NN hit, ordered by descending cosine
// similarity.
type SearchResult struct {
	ID    string            `json:"id"`
	Score float32           `json:"score"`
	Meta  map[string]string `json:"meta"`
}

// Point is a fetched vector with its metadata.
type Point struct {
	Vector []float32
	Meta   map[string]string
}
