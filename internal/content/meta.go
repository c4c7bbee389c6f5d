package content

type Source string

const (
	SourceUnknown Source = "unknown"
	// SourceRemote: fetched from or saved to the remote store.
	SourceRemote Source = "remote"
	// SourceSample: the bundled fallback document.
	SourceSample Source = "sample"
	// SourceLocal: committed in memory while the remote store is not configured.
	SourceLocal Source = "local"
)

type Meta struct {
	// Version increases by one on every publish.
	Version string `json:"version,omitempty"`
	// Hash is the hex SHA-256 of the document's JSON encoding.
	Hash   string `json:"hash,omitempty"`
	Source Source `json:"source,omitempty"`
}
