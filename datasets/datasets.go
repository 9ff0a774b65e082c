package datasets

// This package loads paired image/formula data for image-to-LaTeX model
// training and presents it as examples suitable for gomlx training loops.
//
// Three flat files describe a dataset:
//   - an index file, one "<image_filename> <formula_id>" pair per line;
//   - a formula file, one whitespace-tokenized formula per line, where the
//     0-based line number is the formula ID referenced by the index file;
//   - a vocabulary file, one token per line, where the 0-based line number is
//     the token's vocabulary index.
//
// All three are loaded eagerly into immutable in-memory tables at
// construction time; the tables are safe for concurrent read. Images are the
// expensive part and are decoded lazily, one per Example call, so memory
// stays proportional to the batch size rather than the dataset.
//
// Notes on gomlx tensors:
//   - Examples and batches are kept as contiguous float32 buffers plus shape
//     metadata (see Sample and FormulaBatchFlat). Converting these to gomlx
//     tensors is a small, well-defined final step (FormulaBatchFlat.ToBatch),
//     which keeps the loading and padding logic independent of any particular
//     tensor API.

// Dataset is the minimal interface the loader requires from a formula
// dataset. Batching and shuffling live behind BatchDriver, so a Dataset only
// needs random access by example index.
type Dataset interface {
	// Len returns the number of examples (rows of the index file).
	Len() int

	// Example produces the sample at the given index. Each call decodes and
	// transforms the image anew, so transforms may be stochastic per access.
	Example(idx int) (*Sample, error)

	// Batch produces one sample per index, in the same order as indices.
	Batch(indices []int) ([]*Sample, error)
}
