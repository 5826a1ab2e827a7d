package model

// Writer is a generic interface for mirroring scored flows to a durable
// store. Writes are best-effort from the pipeline's perspective; the
// in-memory FlowStore remains the authoritative query source.
type Writer interface {
	// WriteFlows takes a batch of scored flows and persists it.
	WriteFlows(flows []*ScoredFlow) error

	Close() error
}
