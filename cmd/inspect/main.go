// Command inspect loads an image-to-LaTeX dataset and reports what a training
// run would see: example counts, sequence-length statistics, the
// unknown-token rate against the vocabulary, and optionally whether every
// referenced image decodes. It can also write a sequence-length histogram.
//
// Usage:
//
//	inspect -data train.lst -images ./images -formulas formulas.lst -vocab vocab.txt \
//	    -hist lengths.png -decode
package main

import (
	"flag"
	"fmt"
	"log"
	"runtime"

	"github.com/Noofbiz/im2latex/datasets"

	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	dataPath     = flag.String("data", "", "index file with <image> <formula_id> lines")
	imageDir     = flag.String("images", "", "directory holding the images")
	formulasPath = flag.String("formulas", "", "formula file, one tokenized formula per line")
	vocabPath    = flag.String("vocab", "", "vocabulary file, one token per line")
	histPath     = flag.String("hist", "", "write a sequence-length histogram PNG to this path")
	decode       = flag.Bool("decode", false, "decode every referenced image to verify it is readable")
	limit        = flag.Int("limit", 0, "inspect only the first N examples (0 = all)")
)

func main() {
	flag.Parse()
	if *dataPath == "" || *imageDir == "" || *formulasPath == "" || *vocabPath == "" {
		flag.Usage()
		log.Fatalf("-data, -images, -formulas and -vocab are all required")
	}

	ds, err := datasets.NewFormulaDataset(*dataPath, *imageDir, *formulasPath, *vocabPath, nil)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}

	n := ds.Len()
	if *limit > 0 && *limit < n {
		n = *limit
	}
	fmt.Printf("examples: %d (inspecting %d)\n", ds.Len(), n)
	fmt.Printf("vocabulary: %d tokens\n", ds.Vocab().Len())

	lengths, err := scanFormulas(ds, n)
	if err != nil {
		log.Fatalf("failed to scan formulas: %v", err)
	}

	if *decode {
		if err := decodeImages(ds, n); err != nil {
			log.Fatalf("image decode check failed: %v", err)
		}
	}

	if *histPath != "" {
		if err := plotLengths(lengths, *histPath); err != nil {
			log.Fatalf("failed to plot histogram: %v", err)
		}
		fmt.Printf("histogram written to %s\n", *histPath)
	}
}

// scanFormulas resolves every index row to its formula and reports length and
// unknown-token statistics. It returns the per-example sequence lengths.
func scanFormulas(ds *datasets.FormulaDataset, n int) ([]int, error) {
	vocab := ds.Vocab()
	lengths := make([]int, 0, n)
	minLen, maxLen := -1, 0
	var totalTokens, unknownTokens int

	for idx := 0; idx < n; idx++ {
		formula, err := ds.Formula(idx)
		if err != nil {
			return nil, err
		}
		lengths = append(lengths, len(formula))
		if minLen < 0 || len(formula) < minLen {
			minLen = len(formula)
		}
		if len(formula) > maxLen {
			maxLen = len(formula)
		}
		totalTokens += len(formula)
		for _, token := range formula {
			if !vocab.Contains(token) {
				unknownTokens++
			}
		}
	}

	if n > 0 {
		fmt.Printf("sequence length: min %d, max %d, mean %.1f\n",
			minLen, maxLen, float64(totalTokens)/float64(n))
	}
	if totalTokens > 0 {
		fmt.Printf("unknown tokens: %d of %d (%.2f%%)\n",
			unknownTokens, totalTokens, 100*float64(unknownTokens)/float64(totalTokens))
	}
	return lengths, nil
}

// decodeImages produces every sample once, in parallel, so unreadable or
// missing images surface before a training run does the same walk.
func decodeImages(ds *datasets.FormulaDataset, n int) error {
	ds.WithParallelism(runtime.NumCPU())
	bar := progressbar.NewOptions(n,
		progressbar.OptionSetDescription("Decoding"),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
	)

	const chunk = 64
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		indices := make([]int, 0, end-start)
		for idx := start; idx < end; idx++ {
			indices = append(indices, idx)
		}
		if _, err := ds.Batch(indices); err != nil {
			return err
		}
		_ = bar.Add(len(indices))
	}
	fmt.Println()
	return nil
}

// plotLengths writes a histogram of formula lengths.
func plotLengths(lengths []int, path string) error {
	values := make(plotter.Values, len(lengths))
	for i, n := range lengths {
		values[i] = float64(n)
	}

	p := plot.New()
	p.Title.Text = "Formula lengths"
	p.X.Label.Text = "tokens"
	p.Y.Label.Text = "examples"

	h, err := plotter.NewHist(values, 40)
	if err != nil {
		return err
	}
	p.Add(h, plotter.NewGrid())

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
