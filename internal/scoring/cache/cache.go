// Package cache memoizes iteration scores by a content fingerprint of the
// resume JSON and the job description text.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/spigell/resume-refiner/internal/scoring"
)

const separator = "\n||JD||\n"

// Fingerprint returns the hex SHA-256 of resume, a fixed separator and job.
// An absent job description is the empty string.
func Fingerprint(resume, job string) string {
	h := sha256.New()
	h.Write([]byte(resume))
	h.Write([]byte(separator))
	h.Write([]byte(job))
	return hex.EncodeToString(h.Sum(nil))
}

// Entry is a cached score. Extra carries whatever richer result the caller
// computed alongside it.
type Entry struct {
	Score   float64
	Details scoring.Details
	Extra   any
}

// ComputeFunc produces a score on a cache miss.
type ComputeFunc func() (float64, scoring.Details, error)

// Stats reports cache effectiveness.
type Stats struct {
	Hits    int
	Misses  int
	Entries int
}

// Cache is an unbounded in-memory score cache scoped to a single run.
// It is safe for concurrent use.
type Cache struct {
	enabled bool

	mu      sync.Mutex
	entries map[string]Entry
	hits    int
	misses  int
}

// New returns a cache. A disabled cache always calls compute.
func New(enabled bool) *Cache {
	return &Cache{
		enabled: enabled,
		entries: make(map[string]Entry),
	}
}

// Enabled reports whether lookups are served from memory.
func (c *Cache) Enabled() bool {
	return c != nil && c.enabled
}

// GetOrCompute returns the cached score for (resume, job) or calls compute and
// stores its result. Failed computations are not cached. Two concurrent misses
// on the same key may both compute; the result is identical either way.
func (c *Cache) GetOrCompute(resume, job string, compute ComputeFunc) (float64, scoring.Details, error) {
	e, err := c.GetOrComputeEntry(resume, job, func() (Entry, error) {
		score, details, err := compute()
		return Entry{Score: score, Details: details}, err
	})
	if err != nil {
		return 0, nil, err
	}
	return e.Score, e.Details, nil
}

// GetOrComputeEntry is GetOrCompute for callers that keep an Extra value next
// to the score.
func (c *Cache) GetOrComputeEntry(resume, job string, compute func() (Entry, error)) (Entry, error) {
	if !c.Enabled() {
		return compute()
	}

	key := Fingerprint(resume, job)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return e, nil
	}
	c.misses++
	c.mu.Unlock()

	e, err := compute()
	if err != nil {
		return Entry{}, err
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()

	return e, nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counters.
func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries)}
}
