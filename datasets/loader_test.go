package datasets

import (
	"io"
	"path/filepath"
	"testing"
)

func TestLoader_YieldsCollatedBatches(t *testing.T) {
	ds := buildDataset(t, Compose(Resize(8, 8)))
	loader := NewLoader("test", ds, NewIndexDriver(2, false, 1), nil)
	if got := loader.NumBatches(); got != 1 {
		t.Fatalf("expected 1 batch, got %d", got)
	}

	spec, inputs, labels, err := loader.Yield()
	if err != nil {
		t.Fatalf("Yield error: %v", err)
	}
	if spec != loader {
		t.Fatalf("spec is not the loader")
	}
	if len(inputs) != 1 || len(labels) != 2 {
		t.Fatalf("expected 1 input and 2 label tensors, got %d and %d", len(inputs), len(labels))
	}

	// Formulas are "a b c" and "b a" over a 4-token vocabulary, so tokens
	// pad to max len 3.
	checkDims := func(name string, got []int, want []int) {
		if len(got) != len(want) {
			t.Fatalf("%s rank %d, want %d", name, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("%s dims %v, want %v", name, got, want)
			}
		}
	}
	checkDims("images", inputs[0].Shape().Dimensions, []int{2, 8, 8, 1})
	checkDims("tokens", labels[0].Shape().Dimensions, []int{2, 3, 4})
	checkDims("seq lens", labels[1].Shape().Dimensions, []int{2})

	if _, _, _, err := loader.Yield(); err != io.EOF {
		t.Fatalf("expected io.EOF at end of epoch, got %v", err)
	}

	loader.Reset()
	if _, _, _, err := loader.Yield(); err != nil {
		t.Fatalf("Yield after Reset error: %v", err)
	}
}

func TestLoader_BatchBoundaries(t *testing.T) {
	ds := buildDataset(t, Compose(Resize(4, 4)))
	// Batch size 1 over 2 examples: two batches per epoch.
	loader := NewLoader("test", ds, NewIndexDriver(1, false, 1), nil)
	if got := loader.NumBatches(); got != 2 {
		t.Fatalf("expected 2 batches, got %d", got)
	}
	for i := 0; i < 2; i++ {
		if _, _, _, err := loader.Yield(); err != nil {
			t.Fatalf("Yield %d error: %v", i, err)
		}
	}
	if _, _, _, err := loader.Yield(); err != io.EOF {
		t.Fatalf("expected io.EOF after 2 batches, got %v", err)
	}
}

func TestNewDataLoader_Construction(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, filepath.Join(tmp, "train.lst"), []string{"img1.png 0"})
	writeFile(t, filepath.Join(tmp, "formulas.lst"), []string{"a b"})
	writeFile(t, filepath.Join(tmp, "vocab.txt"), []string{"a", "b", "UNKNOWN"})
	writePNG(t, filepath.Join(tmp, "img1.png"), 6, 4)

	loader, err := NewDataLoader(
		filepath.Join(tmp, "train.lst"), tmp,
		filepath.Join(tmp, "formulas.lst"), filepath.Join(tmp, "vocab.txt"),
		nil, false)
	if err != nil {
		t.Fatalf("NewDataLoader failed: %v", err)
	}
	if loader.Name() != "im2latex" {
		t.Fatalf("unexpected loader name %q", loader.Name())
	}
	if got := loader.NumBatches(); got != 1 {
		t.Fatalf("expected 1 batch for 1 example, got %d", got)
	}
}

func TestNewDataLoader_MissingFiles(t *testing.T) {
	tmp := t.TempDir()
	_, err := NewDataLoader(
		filepath.Join(tmp, "nope.lst"), tmp,
		filepath.Join(tmp, "nope.lst"), filepath.Join(tmp, "nope.txt"),
		nil, false)
	if err == nil {
		t.Fatalf("expected error for missing dataset files, got nil")
	}
}
