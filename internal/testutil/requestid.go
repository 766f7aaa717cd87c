package testutil

// FixedRequestIDGenerator returns the same request id every time.
//
// Scenario runs use it so that logs and recorded headers are byte-identical
// across runs. Unlike engine.FixedGenerator it never runs out.
//
// Thread-safety: FixedRequestIDGenerator is stateless and safe for concurrent use.
type FixedRequestIDGenerator struct {
	id string
}

// NewFixedRequestIDGenerator creates a generator returning id.
// If id is empty, Generate() returns "test-request".
func NewFixedRequestIDGenerator(id string) *FixedRequestIDGenerator {
	if id == "" {
		id = "test-request"
	}
	return &FixedRequestIDGenerator{id: id}
}

// Generate returns the fixed id. Implements engine.RequestIDGenerator.
func (g *FixedRequestIDGenerator) Generate() string {
	return g.id
}
