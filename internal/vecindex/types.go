package vecindex

// Record is one entry in the vector index: an identifier, its embedding
// vector, and flat string metadata (source text origin, owning user, tags).
// Records are immutable once upserted except via full replace.
type Record struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata map[string]string
}

// Match is one query result, best-first by Score.
type Match struct {
	ID       string
	Score    float64 // Cosine similarity, higher is better
	Content  string
	Metadata map[string]string
}

// Filter restricts query results to records whose metadata contains every
// given key/value pair (AND logic).
type Filter map[string]string
