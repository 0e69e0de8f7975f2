// Package ranking orders playlists, threads and comments for display.
//
// Items are sorted by score (or upvotes for comments) in descending order.
// Items with equal score are then shuffled among themselves so that no
// entry permanently wins a tie. The shuffle can be seeded or switched off.
package ranking

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"cinehub/internal/models"
)

// Ranker sorts and tie-shuffles. It is safe for concurrent use.
type Ranker struct {
	mu      sync.Mutex
	rng     *rand.Rand
	shuffle bool
}

type Option func(*Ranker)

// WithSeed makes tie shuffles reproducible.
func WithSeed(seed uint64) Option {
	return func(r *Ranker) {
		r.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithoutShuffle keeps ties in their incoming order.
func WithoutShuffle() Option {
	return func(r *Ranker) {
		r.shuffle = false
	}
}

func New(opts ...Option) *Ranker {
	now := uint64(time.Now().UnixNano())
	r := &Ranker{
		rng:     rand.New(rand.NewPCG(now, now>>1)),
		shuffle: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Entities returns a new slice of items ordered by score, highest first.
// The input slice is left untouched.
func Entities[E models.Votable](r *Ranker, items []E) []E {
	out := slices.Clone(items)
	score := func(e E) int { return e.Votes().Score }
	slices.SortStableFunc(out, func(a, b E) int {
		return score(b) - score(a)
	})
	r.shuffleTies(len(out), func(i, j int) bool { return score(out[i]) == score(out[j]) },
		func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Comments returns a new slice of comments ordered by upvotes, highest first.
func (r *Ranker) Comments(comments []models.Comment) []models.Comment {
	out := slices.Clone(comments)
	slices.SortStableFunc(out, func(a, b models.Comment) int {
		return b.Upvotes - a.Upvotes
	})
	r.shuffleTies(len(out), func(i, j int) bool { return out[i].Upvotes == out[j].Upvotes },
		func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// shuffleTies runs a Fisher-Yates shuffle over every maximal run of equal
// items in an already sorted sequence.
func (r *Ranker) shuffleTies(n int, equal func(i, j int) bool, swap func(i, j int)) {
	if r == nil || !r.shuffle {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for start := 0; start < n; {
		end := start + 1
		for end < n && equal(start, end) {
			end++
		}
		for i := end - 1; i > start; i-- {
			j := start + r.rng.IntN(i-start+1)
			swap(i, j)
		}
		start = end
	}
}
