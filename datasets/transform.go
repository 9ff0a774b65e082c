package datasets

import (
	"image"
	"math/rand"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Transform is one step of an image pipeline, applied per sample at access
// time (not at load time), so implementations may be stochastic.
type Transform interface {
	Apply(img image.Image) image.Image
}

// TransformFunc adapts a plain function to the Transform interface.
type TransformFunc func(img image.Image) image.Image

// Apply implements Transform.
func (f TransformFunc) Apply(img image.Image) image.Image { return f(img) }

// Compose chains transforms into a single Transform, applied left to right.
func Compose(transforms ...Transform) Transform {
	return TransformFunc(func(img image.Image) image.Image {
		for _, t := range transforms {
			img = t.Apply(img)
		}
		return img
	})
}

// Resize scales images to exactly width x height with a Lanczos filter,
// distorting the aspect ratio if needed.
func Resize(width, height int) Transform {
	return TransformFunc(func(img image.Image) image.Image {
		return imaging.Resize(img, width, height, imaging.Lanczos)
	})
}

// Grayscale converts images to grayscale. FormulaDataset already converts
// every decoded image, so this is only needed in custom pipelines.
func Grayscale() Transform {
	return TransformFunc(func(img image.Image) image.Image {
		return imaging.Grayscale(img)
	})
}

// RatioFunc draws one downsampling ratio per sample access.
type RatioFunc func() float64

// GaussianRatio draws ratios as N(0,1)/2 + 1, i.e. centered at 1 with spread
// 0.5. The distribution is unclamped: a draw can be <= 0 or small enough to
// collapse the target size, in which case downsampleImage fails loudly
// instead of clamping. Not safe for concurrent use on its own; FormulaDataset
// serializes draws.
func GaussianRatio(rng *rand.Rand) RatioFunc {
	return func() float64 {
		return rng.NormFloat64()/2 + 1
	}
}

// FixedRatio always draws the same ratio. Useful for deterministic tests and
// for disabling the randomness without changing the pipeline shape.
func FixedRatio(ratio float64) RatioFunc {
	return func() float64 { return ratio }
}

// downsampleImage shrinks (or grows, for ratio < 1) an image by the given
// ratio, computing each target dimension as floor(old/ratio) and resampling
// with a Lanczos filter. Degenerate ratios are an error, never clamped.
func downsampleImage(img image.Image, ratio float64) (image.Image, error) {
	if ratio <= 0 {
		return nil, errors.Errorf("downsample ratio %g is not positive", ratio)
	}
	size := img.Bounds().Size()
	newWidth := int(float64(size.X) / ratio)
	newHeight := int(float64(size.Y) / ratio)
	if newWidth <= 0 || newHeight <= 0 {
		return nil, errors.Errorf("downsample ratio %g collapses %dx%d image to %dx%d",
			ratio, size.X, size.Y, newWidth, newHeight)
	}
	return imaging.Resize(img, newWidth, newHeight, imaging.Lanczos), nil
}
