package scraper

import (
	"math/rand"
	"sync"
	"time"
)

// lockedRand serializes access to a math/rand source shared by the crawl
// workers.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand(r *rand.Rand) *lockedRand {
	return &lockedRand{r: r}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// Chance returns true with probability p.
func (l *lockedRand) Chance(p float64) bool {
	return l.Float64() < p
}

func (l *lockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}

// Between returns a duration drawn uniformly from [min, max].
func (l *lockedRand) Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return min + time.Duration(l.r.Int63n(int64(max-min)+1))
}
