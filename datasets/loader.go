package datasets

import (
	"io"
	"math/rand"
	"time"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
)

const (
	// DefaultBatchSize used by NewDataLoader.
	DefaultBatchSize = 8

	// DefaultImageSize is the fixed side length images are resized to by
	// NewDataLoader's transform pipeline.
	DefaultImageSize = 1024

	// DefaultNormMean and DefaultNormStddev are NewDataLoader's pixel
	// normalization. A stddev of 1 makes the variance normalization a no-op;
	// kept as-is since trained models expect these exact input statistics.
	DefaultNormMean   = 0.5
	DefaultNormStddev = 1.0
)

// Loader drives a Dataset through a BatchDriver and yields collated batches
// as gomlx tensors. It implements train.Dataset, so it plugs directly into
// gomlx training loops.
type Loader struct {
	name      string
	ds        Dataset
	driver    BatchDriver
	backend   backends.Backend
	deviceNum backends.DeviceNum

	plan [][]int
	next int
}

var _ train.Dataset = &Loader{}

// NewLoader wires a Dataset, a BatchDriver and an optional compute backend
// (nil keeps batches in local storage) into a Loader. The first epoch plan is
// created immediately.
func NewLoader(name string, ds Dataset, driver BatchDriver, backend backends.Backend) *Loader {
	l := &Loader{
		name:    name,
		ds:      ds,
		driver:  driver,
		backend: backend,
	}
	l.Reset()
	return l
}

// NewDataLoader builds the standard training loader: a FormulaDataset with
// gaussian downsampling, a Lanczos resize to DefaultImageSize square,
// normalization (DefaultNormMean, DefaultNormStddev), batched by
// DefaultBatchSize with the given shuffle policy. backend may be nil to keep
// batches in local storage.
func NewDataLoader(dataPath, imageDir, formulasPath, vocabPath string,
	backend backends.Backend, shuffle bool) (*Loader, error) {
	ds, err := NewFormulaDataset(dataPath, imageDir, formulasPath, vocabPath,
		Compose(Resize(DefaultImageSize, DefaultImageSize)))
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ds.WithDownsampling(GaussianRatio(rng)).
		WithNormalization(DefaultNormMean, DefaultNormStddev)
	driver := NewIndexDriver(DefaultBatchSize, shuffle, 0)
	return NewLoader("im2latex", ds, driver, backend), nil
}

// WithDeviceNum selects which device of the backend batches are materialized
// on. Defaults to device 0. Returns the loader, so calls can be chained.
func (l *Loader) WithDeviceNum(deviceNum backends.DeviceNum) *Loader {
	l.deviceNum = deviceNum
	return l
}

// Name implements train.Dataset.
func (l *Loader) Name() string { return l.name }

// Dataset returns the wrapped dataset.
func (l *Loader) Dataset() Dataset { return l.ds }

// NumBatches returns the number of batches in the current epoch plan.
func (l *Loader) NumBatches() int { return len(l.plan) }

// Yield implements train.Dataset. It returns:
//
//   - inputs: one tensor, the image batch shaped
//     `[batch_size, height, width, 1]`.
//   - labels: two tensors, the padded one-hot token batch shaped
//     `[batch_size, max_len, vocab_size]` and the original sequence lengths
//     shaped `[batch_size]`.
//
// At the end of the epoch it returns io.EOF; call Reset to start a new epoch.
func (l *Loader) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	if l.next >= len(l.plan) {
		return nil, nil, nil, io.EOF
	}
	indices := l.plan[l.next]
	l.next++

	samples, err := l.ds.Batch(indices)
	if err != nil {
		return nil, nil, nil, errors.WithMessagef(err, "dataset %q", l.name)
	}
	flat, err := Collate(samples)
	if err != nil {
		return nil, nil, nil, errors.WithMessagef(err, "dataset %q", l.name)
	}
	batch, err := flat.ToBatch()
	if err != nil {
		return nil, nil, nil, errors.WithMessagef(err, "dataset %q", l.name)
	}
	if err = batch.MaterializeOnDevice(l.backend, l.deviceNum); err != nil {
		return nil, nil, nil, errors.WithMessagef(err, "dataset %q", l.name)
	}

	spec = l
	inputs = []*tensors.Tensor{batch.Images}
	labels = []*tensors.Tensor{batch.Tokens, tensors.FromValue(batch.SeqLens)}
	return
}

// Reset implements train.Dataset: it plans a new epoch (re-shuffling when the
// driver shuffles) and restarts from its first batch.
func (l *Loader) Reset() {
	l.plan = l.driver.Plan(l.ds.Len())
	l.next = 0
}
