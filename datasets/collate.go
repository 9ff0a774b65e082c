package datasets

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// FormulaBatchFlat stores a collated batch in flat contiguous buffers plus
// shape metadata. One-hot matrices are right-padded with zero rows to the
// longest formula in the batch; there is no truncation, so batch cost scales
// with its longest member.
type FormulaBatchFlat struct {
	// Images is flattened [BatchSize, Height, Width].
	Images []float32
	// Tokens is flattened [BatchSize, MaxLen, VocabSize], zero-padded past
	// each sample's original length.
	Tokens []float32
	// SeqLens holds the original (pre-pad) formula lengths, in sample order.
	SeqLens []int

	BatchSize, Height, Width int
	MaxLen, VocabSize        int
}

// Collate assembles samples into one FormulaBatchFlat, preserving sample
// order. All images must share the same dimensions (the loader's fixed resize
// guarantees this) and all samples the same vocabulary.
func Collate(samples []*Sample) (*FormulaBatchFlat, error) {
	if len(samples) == 0 {
		return nil, errors.Errorf("cannot collate an empty batch")
	}

	first := samples[0]
	batch := &FormulaBatchFlat{
		SeqLens:   make([]int, len(samples)),
		BatchSize: len(samples),
		Height:    first.Height,
		Width:     first.Width,
		VocabSize: first.VocabSize,
	}
	for i, sample := range samples {
		if sample.Height != batch.Height || sample.Width != batch.Width {
			return nil, errors.Errorf(
				"inconsistent image dimensions: sample 0 is %dx%d, sample %d is %dx%d",
				batch.Width, batch.Height, i, sample.Width, sample.Height)
		}
		if sample.VocabSize != batch.VocabSize {
			return nil, errors.Errorf(
				"inconsistent vocabulary size: sample 0 has %d, sample %d has %d",
				batch.VocabSize, i, sample.VocabSize)
		}
		batch.SeqLens[i] = sample.SeqLen
		if sample.SeqLen > batch.MaxLen {
			batch.MaxLen = sample.SeqLen
		}
	}

	imageSize := batch.Height * batch.Width
	batch.Images = make([]float32, batch.BatchSize*imageSize)
	batch.Tokens = make([]float32, batch.BatchSize*batch.MaxLen*batch.VocabSize)
	for i, sample := range samples {
		if len(sample.Image) != imageSize {
			return nil, errors.Errorf("sample %d image buffer has %d values, expected %d",
				i, len(sample.Image), imageSize)
		}
		copy(batch.Images[i*imageSize:], sample.Image)
		// Rows past SeqLen stay zero: that is the padding.
		copy(batch.Tokens[i*batch.MaxLen*batch.VocabSize:], sample.Tokens)
	}
	return batch, nil
}

// Batch holds a collated batch as gomlx tensors, ready for a training loop.
type Batch struct {
	// Images is shaped [batch_size, height, width, 1].
	Images *tensors.Tensor
	// Tokens is shaped [batch_size, max_len, vocab_size].
	Tokens *tensors.Tensor
	// SeqLens holds the original formula lengths, in sample order.
	SeqLens []int
}

// ToBatch converts the flat buffers into gomlx tensors. The extra trailing
// axis of Images is the single grayscale channel.
func (b *FormulaBatchFlat) ToBatch() (*Batch, error) {
	if len(b.Images) != b.BatchSize*b.Height*b.Width {
		return nil, errors.Errorf("flat image buffer has %d values, expected %d",
			len(b.Images), b.BatchSize*b.Height*b.Width)
	}
	if len(b.Tokens) != b.BatchSize*b.MaxLen*b.VocabSize {
		return nil, errors.Errorf("flat token buffer has %d values, expected %d",
			len(b.Tokens), b.BatchSize*b.MaxLen*b.VocabSize)
	}
	return &Batch{
		Images:  tensors.FromFlatDataAndDimensions(b.Images, b.BatchSize, b.Height, b.Width, 1),
		Tokens:  tensors.FromFlatDataAndDimensions(b.Tokens, b.BatchSize, b.MaxLen, b.VocabSize),
		SeqLens: append([]int(nil), b.SeqLens...),
	}, nil
}

// MaterializeOnDevice transfers the batch tensors onto the given compute
// device. A nil backend is a no-op, leaving the tensors in local storage.
func (b *Batch) MaterializeOnDevice(backend backends.Backend, deviceNum backends.DeviceNum) error {
	if backend == nil {
		return nil
	}
	err := exceptions.TryCatch[error](func() {
		b.Images.MaterializeOnDevices(backend, false, deviceNum)
		b.Tokens.MaterializeOnDevices(backend, false, deviceNum)
	})
	return errors.WithMessage(err, "failed to move batch to device")
}
