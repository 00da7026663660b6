// Package linkbank tracks the quota-bounded primary link bank and the
// unlimited masking bank for one generation batch.
//
// Usage is detected after the fact: a link counts as used on a page when its
// URL occurs literally in the model output. That is a heuristic. It says
// nothing about whether the model used an approved anchor text.
package linkbank

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/jonathan/wiki-generator/internal/types"
)

// Tracker owns the link banks and the per-URL usage counts of one batch.
// A Tracker must not be shared between concurrently running batches.
type Tracker struct {
	mu      sync.Mutex
	links   []types.LinkEntry
	masking []types.MaskingLink
	usage   map[string]int
	rng     *rand.Rand
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithRand sets the random source used by SampleMasking.
func WithRand(r *rand.Rand) Option {
	return func(t *Tracker) {
		t.rng = r
	}
}

// New returns an empty tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{usage: map[string]int{}}
	for _, opt := range opts {
		opt(t)
	}
	if t.rng == nil {
		t.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return t
}

// Load replaces the primary bank and zeroes usage. Entries without a URL are
// dropped, and only the first entry for a repeated URL is kept.
func (t *Tracker) Load(links []types.LinkEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.links = make([]types.LinkEntry, 0, len(links))
	t.usage = make(map[string]int, len(links))
	for _, l := range links {
		if l.URL == "" {
			continue
		}
		if _, dup := t.usage[l.URL]; dup {
			continue
		}
		t.links = append(t.links, l)
		t.usage[l.URL] = 0
	}
}

// LoadMasking replaces the masking bank. Entries without a URL or with a repeated URL are dropped.
func (t *Tracker) LoadMasking(links []types.MaskingLink) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.masking = make([]types.MaskingLink, 0, len(links))
	seen := make(map[string]bool, len(links))
	for _, l := range links {
		if l.URL != "" && !seen[l.URL] {
			seen[l.URL] = true
			t.masking = append(t.masking, l)
		}
	}
}

// EligibleLinks returns, in bank order, every entry that is unlimited or still
// under its quota.
func (t *Tracker) EligibleLinks() []types.LinkEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	eligible := make([]types.LinkEntry, 0, len(t.links))
	for _, l := range t.links {
		if l.Unlimited() || t.usage[l.URL] < l.Count {
			eligible = append(eligible, l)
		}
	}
	return eligible
}

// RecordUsage counts one more page containing url. Unknown URLs are ignored.
// Callers record each link at most once per page.
func (t *Tracker) RecordUsage(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.usage[url]; ok {
		t.usage[url]++
	}
}

// SampleMasking returns min(n, bank size) distinct masking links chosen uniformly at random.
func (t *Tracker) SampleMasking(n int) []types.MaskingLink {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := min(n, len(t.masking))
	if k <= 0 {
		return []types.MaskingLink{}
	}
	// Partial Fisher-Yates over a copy so bank order is preserved.
	pool := make([]types.MaskingLink, len(t.masking))
	copy(pool, t.masking)
	for i := 0; i < k; i++ {
		j := i + t.rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// Usage returns a copy of the usage counts.
func (t *Tracker) Usage() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int, len(t.usage))
	for k, v := range t.usage {
		out[k] = v
	}
	return out
}

// Links returns a copy of the primary bank.
func (t *Tracker) Links() []types.LinkEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]types.LinkEntry(nil), t.links...)
}

// Summary is a one-line description of the banks for logs.
func (t *Tracker) Summary() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	exhausted := 0
	for _, l := range t.links {
		if !l.Unlimited() && t.usage[l.URL] >= l.Count {
			exhausted++
		}
	}
	return fmt.Sprintf("%d links (%d exhausted), %d masking links", len(t.links), exhausted, len(t.masking))
}

// Contains reports whether url occurs literally in content.
func Contains(content, url string) bool {
	return url != "" && strings.Contains(content, url)
}
