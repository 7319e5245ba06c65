package index

// storedDocument is the bbolt value for one indexed event.
type storedDocument struct {
	Vector   []float32         `json:"v"`
	Text     string            `json:"d"`
	Metadata map[string]string `json:"m,omitempty"`
}

// collectionHeader is the collection metadata record, written once when
// the collection is first created.
type collectionHeader struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"`
}
