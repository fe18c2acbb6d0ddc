package search

import "time"

// EngineConfig configures the query engine.
type EngineConfig struct {
	// DefaultLimit applies when Query.Limit is not positive (default: 50).
	DefaultLimit int

	// MaxLimit caps Query.Limit (default: 500).
	MaxLimit int

	// MaxQueryRunes rejects longer queries (default: 256). Each rune pair
	// becomes an n-gram term.
	MaxQueryRunes int

	// VectorK is how many neighbours the vector list contributes (default: 10).
	VectorK int

	// VectorTimeout bounds the vector list, which needs an embedding call
	// (default: 10s). On timeout the list is simply empty.
	VectorTimeout time.Duration
}

// DefaultEngineConfig returns the defaults used by the CLI.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultLimit:  50,
		MaxLimit:      500,
		MaxQueryRunes: 256,
		VectorK:       10,
		VectorTimeout: 10 * time.Second,
	}
}

func (c EngineConfig) withDefaults() EngineConfig {
	d := DefaultEngineConfig()
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = d.MaxLimit
	}
	if c.MaxQueryRunes <= 0 {
		c.MaxQueryRunes = d.MaxQueryRunes
	}
	if c.VectorK <= 0 {
		c.VectorK = d.VectorK
	}
	if c.VectorTimeout <= 0 {
		c.VectorTimeout = d.VectorTimeout
	}
	return c
}

// applyDefaults fills in default values for a query.
func (e *Engine) applyDefaults(q Query) Query {
	if q.Limit <= 0 {
		q.Limit = e.config.DefaultLimit
	}
	if q.Limit > e.config.MaxLimit {
		q.Limit = e.config.MaxLimit
	}
	return q
}
