package app

import (
	"math/rand"
	"time"
)

// newRand builds the default engine RNG. Tests pass a seeded source instead.
func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Shuffle permutes items in place with a uniform Fisher-Yates: every index i
// from the last down to 1 swaps with a uniform index in [0, i].
func Shuffle[T any](rnd *rand.Rand, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// Shuffled returns a shuffled copy, leaving the input untouched.
func Shuffled[T any](rnd *rand.Rand, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	Shuffle(rnd, out)
	return out
}

// PickN returns a uniform random subset of min(n, len(items)) elements.
func PickN[T any](rnd *rand.Rand, items []T, n int) []T {
	if n > len(items) {
		n = len(items)
	}
	if n <= 0 {
		return nil
	}
	return Shuffled(rnd, items)[:n]
}
