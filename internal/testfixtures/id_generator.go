package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator hands out readable identifiers per entity kind, such as
// "house-001" or "token-002", so assertions can name them up front.
type IDGenerator struct {
	mu       sync.Mutex
	prefix   string
	counters map[string]uint64
}

// NewIDGenerator returns a generator whose NextFunc uses prefix. An empty
// prefix means "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix, counters: make(map[string]uint64)}
}

// NextFor returns the next identifier in the kind sequence.
func (g *IDGenerator) NextFor(kind string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[kind]++
	return fmt.Sprintf("%s-%03d", kind, g.counters[kind])
}

// Next returns the next identifier in the default sequence.
func (g *IDGenerator) Next() string {
	return g.NextFor(g.prefix)
}

// NextFunc exposes Next for injection; a nil generator yields empty ids.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Issued reports how many identifiers the kind sequence has produced.
func (g *IDGenerator) Issued(kind string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counters[kind]
}
