package queue

import (
	"math/rand"
	"sync"
	"time"
)

// Engine computes new orderings of the upcoming approved requests. The
// now-playing request always keeps its position; only the tail moves.
type Engine struct {
	store *Store

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewEngine creates a reorder/shuffle engine over the given store.
func NewEngine(store *Store) *Engine {
	return &Engine{
		store: store,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Reorder applies a host-specified ordering of the upcoming request ids.
// The id set must exactly match the current upcoming set.
func (e *Engine) Reorder(ids []string) error {
	return e.store.ReorderUpcoming(ids)
}

// Shuffle replaces the upcoming ordering with a uniformly random
// permutation. No-op on fewer than two upcoming requests.
func (e *Engine) Shuffle() error {
	upcoming := e.store.Upcoming()
	if len(upcoming) < 2 {
		return nil
	}

	ids := make([]string, len(upcoming))
	for i, r := range upcoming {
		ids[i] = r.ID
	}

	e.rngMu.Lock()
	e.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	e.rngMu.Unlock()

	return e.store.ReorderUpcoming(ids)
}
