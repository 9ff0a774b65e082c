package datasets

import (
	"math/rand"
	"time"
)

// BatchDriver decides which examples go into which batch: given a dataset
// size it produces an index permutation partitioned into batches. Keeping
// this behind an interface lets Collate and Loader be tested with a
// hand-written plan, independent of any shuffling policy.
type BatchDriver interface {
	// Plan returns the batches for one epoch over numExamples examples.
	// Each call may produce a different plan (e.g. a fresh shuffle).
	Plan(numExamples int) [][]int
}

// IndexDriver is the default BatchDriver: sequential or uniformly shuffled
// indices cut into fixed-size batches.
type IndexDriver struct {
	// BatchSize of each planned batch; the final batch may be smaller
	// unless DropLast is set.
	BatchSize int

	// Shuffle permutes the example order, re-drawn on every Plan call.
	Shuffle bool

	// DropLast discards a trailing batch smaller than BatchSize.
	DropLast bool

	rng *rand.Rand
}

// NewIndexDriver creates an IndexDriver. A non-positive batchSize falls back
// to DefaultBatchSize; seed 0 means seed from the clock.
func NewIndexDriver(batchSize int, shuffle bool, seed int64) *IndexDriver {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &IndexDriver{
		BatchSize: batchSize,
		Shuffle:   shuffle,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Plan implements BatchDriver. Every example index in [0, numExamples)
// appears in exactly one batch (except a dropped trailing batch).
func (d *IndexDriver) Plan(numExamples int) [][]int {
	indices := make([]int, numExamples)
	for i := range indices {
		indices[i] = i
	}
	if d.Shuffle {
		d.rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	batches := make([][]int, 0, (numExamples+d.BatchSize-1)/d.BatchSize)
	for start := 0; start < numExamples; start += d.BatchSize {
		end := start + d.BatchSize
		if end > numExamples {
			if d.DropLast {
				break
			}
			end = numExamples
		}
		batches = append(batches, indices[start:end])
	}
	return batches
}
