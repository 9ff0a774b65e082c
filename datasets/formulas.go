package datasets

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// indexEntry is one row of the index file.
type indexEntry struct {
	imageName string
	formulaID int
}

// Sample is one training example: a decoded, transformed grayscale image and
// the one-hot encoding of its formula. Buffers are flat and row-major.
type Sample struct {
	// Image is the grayscale pixel buffer, flattened [Height, Width], with
	// the dataset's normalization already applied.
	Image         []float32
	Height, Width int

	// Tokens is the one-hot encoding, flattened [SeqLen, VocabSize]: row j
	// has a single 1 at the vocabulary index of formula token j.
	Tokens    []float32
	SeqLen    int
	VocabSize int
}

// FormulaDataset loads an image-to-LaTeX dataset and produces one Sample per
// index-file row. The tables built at construction time are never mutated, so
// Example is safe to call from concurrent workers; the only shared mutable
// state is the downsampling ratio source, which the dataset serializes.
type FormulaDataset struct {
	imageDir string

	// Immutable tables, keyed by row position in their source files.
	entries  []indexEntry
	formulas [][]string
	vocab    *Vocabulary

	transform Transform
	ratio     RatioFunc
	muRatio   sync.Mutex

	// Normalization of pixel values: (pixel/255 - mean) / stddev.
	normMean, normStddev float32

	parallelism int
}

// NewFormulaDataset builds the dataset tables from the index file at
// dataPath, the formula file, and the vocabulary file; images are resolved
// against imageDir at access time. transform may be nil for no pipeline.
//
// Formula IDs are not bounds-checked at load time: a row pointing past the
// formula table loads fine and fails on Example, mirroring how the data
// files are produced (the index is generated from the formula file, so a bad
// ID means a corrupted pairing that should surface, not be skipped).
func NewFormulaDataset(dataPath, imageDir, formulasPath, vocabPath string, transform Transform) (*FormulaDataset, error) {
	formulaLines, err := readLines(formulasPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load formulas: %w", err)
	}
	formulas := make([][]string, len(formulaLines))
	for i, line := range formulaLines {
		formulas[i] = strings.Fields(line)
	}

	indexLines, err := readLines(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}
	entries := make([]indexEntry, 0, len(indexLines))
	for i, line := range indexLines {
		imageName, formulaID, err := parseIndexLine(line, i)
		if err != nil {
			return nil, fmt.Errorf("failed to load index %s: %w", dataPath, err)
		}
		entries = append(entries, indexEntry{imageName: imageName, formulaID: formulaID})
	}

	vocab, err := LoadVocabulary(vocabPath)
	if err != nil {
		return nil, err
	}

	return &FormulaDataset{
		imageDir:   imageDir,
		entries:    entries,
		formulas:   formulas,
		vocab:      vocab,
		transform:  transform,
		normStddev: 1,
	}, nil
}

// WithDownsampling sets the per-access downsampling ratio source. A nil
// source disables downsampling. Returns the dataset, so calls can be chained.
func (ds *FormulaDataset) WithDownsampling(ratio RatioFunc) *FormulaDataset {
	ds.ratio = ratio
	return ds
}

// WithNormalization sets the mean/stddev applied to pixel values after
// scaling to [0, 1]. Defaults are mean 0, stddev 1 (plain [0, 1] scaling).
// Returns the dataset, so calls can be chained.
func (ds *FormulaDataset) WithNormalization(mean, stddev float64) *FormulaDataset {
	ds.normMean = float32(mean)
	ds.normStddev = float32(stddev)
	return ds
}

// WithParallelism sets the number of worker goroutines Batch uses to decode
// samples. Values <= 1 keep Batch sequential. Returns the dataset, so calls
// can be chained.
func (ds *FormulaDataset) WithParallelism(n int) *FormulaDataset {
	ds.parallelism = n
	return ds
}

// Len returns the number of examples (rows of the index file).
func (ds *FormulaDataset) Len() int {
	return len(ds.entries)
}

// Vocab returns the loaded vocabulary.
func (ds *FormulaDataset) Vocab() *Vocabulary {
	return ds.vocab
}

// Formula returns the token sequence for the example at idx, resolving the
// index row to its formula-table entry.
func (ds *FormulaDataset) Formula(idx int) ([]string, error) {
	if idx < 0 || idx >= len(ds.entries) {
		return nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(ds.entries))
	}
	formulaID := ds.entries[idx].formulaID
	if formulaID < 0 || formulaID >= len(ds.formulas) {
		return nil, fmt.Errorf("example %d: formula ID %d out of range [0, %d)",
			idx, formulaID, len(ds.formulas))
	}
	return ds.formulas[formulaID], nil
}

// ImageName returns the image filename of the example at idx, as written in
// the index file.
func (ds *FormulaDataset) ImageName(idx int) (string, error) {
	if idx < 0 || idx >= len(ds.entries) {
		return "", fmt.Errorf("index %d out of range [0, %d)", idx, len(ds.entries))
	}
	return ds.entries[idx].imageName, nil
}

// Example produces the sample at idx: it decodes the image as grayscale,
// applies the stochastic downsampling and the transform pipeline, and one-hot
// encodes the formula. Any I/O or decode failure is returned as-is; there is
// no skip-and-continue.
func (ds *FormulaDataset) Example(idx int) (*Sample, error) {
	formula, err := ds.Formula(idx)
	if err != nil {
		return nil, err
	}

	imagePath := filepath.Join(ds.imageDir, ds.entries[idx].imageName)
	img, err := decodeImageFile(imagePath)
	if err != nil {
		return nil, errors.Wrapf(err, "example %d", idx)
	}
	img = imaging.Grayscale(img)

	if ds.ratio != nil {
		img, err = downsampleImage(img, ds.drawRatio())
		if err != nil {
			return nil, errors.Wrapf(err, "example %d (%s)", idx, imagePath)
		}
	}
	if ds.transform != nil {
		img = ds.transform.Apply(img)
	}

	sample := &Sample{
		SeqLen:    len(formula),
		VocabSize: ds.vocab.Len(),
		Tokens:    encodeTokens(formula, ds.vocab),
	}
	sample.Image, sample.Height, sample.Width = grayToFloat32(img, ds.normMean, ds.normStddev)
	return sample, nil
}

// Batch produces one sample per index, preserving the order of indices. With
// WithParallelism(n > 1) samples are decoded by a worker pool; workers only
// read the immutable tables, and each result is written to its own batch
// position, so ordering is unaffected. The first error aborts the batch.
func (ds *FormulaDataset) Batch(indices []int) ([]*Sample, error) {
	samples := make([]*Sample, len(indices))
	if ds.parallelism <= 1 || len(indices) <= 1 {
		for i, idx := range indices {
			sample, err := ds.Example(idx)
			if err != nil {
				return nil, err
			}
			samples[i] = sample
		}
		return samples, nil
	}

	workers := ds.parallelism
	if workers > len(indices) {
		workers = len(indices)
	}
	var next atomic.Int64
	errChan := make(chan error, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				pos := int(next.Add(1)) - 1
				if pos >= len(indices) {
					return
				}
				sample, err := ds.Example(indices[pos])
				if err != nil {
					errChan <- err
					return
				}
				samples[pos] = sample
			}
		}()
	}
	wg.Wait()
	close(errChan)
	for err := range errChan {
		return nil, err
	}
	return samples, nil
}

// drawRatio serializes draws from the ratio source, which is the one piece of
// mutable state shared by parallel workers.
func (ds *FormulaDataset) drawRatio() float64 {
	ds.muRatio.Lock()
	defer ds.muRatio.Unlock()
	return ds.ratio()
}

// encodeTokens one-hot encodes a formula against the vocabulary, producing a
// flat [len(formula), vocab.Len()] matrix. Out-of-vocabulary tokens hit the
// UNKNOWN column.
func encodeTokens(formula []string, vocab *Vocabulary) []float32 {
	vocabSize := vocab.Len()
	tokens := make([]float32, len(formula)*vocabSize)
	for j, token := range formula {
		tokens[j*vocabSize+vocab.Index(token)] = 1
	}
	return tokens
}

// decodeImageFile opens and decodes a single image file.
func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %s", path)
	}
	return img, nil
}

// grayToFloat32 flattens a grayscale image into a [height, width] float32
// buffer, scaling pixels to [0, 1] and then applying (v - mean) / stddev.
// The image is assumed gray (all color channels equal); the red channel is
// read.
func grayToFloat32(img image.Image, mean, stddev float32) (buf []float32, height, width int) {
	bounds := img.Bounds()
	width, height = bounds.Dx(), bounds.Dy()
	buf = make([]float32, height*width)
	pos := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			v := float32(r>>8) / 255
			buf[pos] = (v - mean) / stddev
			pos++
		}
	}
	return
}
