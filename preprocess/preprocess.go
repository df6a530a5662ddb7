// Package preprocess turns decoded photographs into the fixed-shape float tensor
// the classifier reads.
package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Input geometry of the classifier.
const (
	H, W     = 224, 224
	Channels = 3
)

// DefaultMaxPixels bounds the declared size of a decoded image.
const DefaultMaxPixels = 50_000_000

// InvalidImageError reports an image that cannot be fed to the classifier.
type InvalidImageError struct {
	Reason string
}

func (e *InvalidImageError) Error() string {
	return "invalid image: " + e.Reason
}

// Tensor is a single HWC float32 image.
type Tensor struct {
	Height, Width, Channels int
	Data                    []float32
}

// Shape returns the tensor shape with a leading batch dimension of 1.
func (t *Tensor) Shape() []int64 {
	return []int64{1, int64(t.Height), int64(t.Width), int64(t.Channels)}
}

// At returns the value at row y, column x, channel c.
func (t *Tensor) At(y, x, c int) float32 {
	return t.Data[(y*t.Width+x)*t.Channels+c]
}

// Batch returns the tensor as a [1][H][W][C] nested slice sharing Data.
func (t *Tensor) Batch() [][][][]float32 {
	img := make([][][]float32, t.Height)
	for y := range img {
		img[y] = make([][]float32, t.Width)
		for x := range img[y] {
			off := (y*t.Width + x) * t.Channels
			img[y][x] = t.Data[off : off+t.Channels : off+t.Channels]
		}
	}
	return [][][][]float32{img}
}

// Preprocessor stretches an image to H x W with bilinear interpolation and maps
// every 8-bit channel value v to (v - Mean) / Scale.
type Preprocessor struct {
	Mean  float32
	Scale float32

	// MaxPixels caps width*height accepted by Decode, 0 means DefaultMaxPixels.
	MaxPixels int64
}

// Default feeds raw 0..255 values.
var Default = &Preprocessor{Mean: 0, Scale: 1}

// New returns a preprocessor with the given pixel scaling.
func New(mean, scale float32) (*Preprocessor, error) {
	if scale == 0 {
		return nil, errors.New("preprocess scale must be non-zero")
	}
	return &Preprocessor{Mean: mean, Scale: scale}, nil
}

// Normalize uses the Default preprocessor.
func Normalize(img image.Image) (*Tensor, error) {
	return Default.Normalize(img)
}

// Normalize resizes img to the classifier input and returns it as a tensor.
func (p *Preprocessor) Normalize(img image.Image) (*Tensor, error) {
	if img == nil {
		return nil, &InvalidImageError{Reason: "nil image"}
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, &InvalidImageError{
			Reason: fmt.Sprintf("zero sized image %dx%d", bounds.Dx(), bounds.Dy()),
		}
	}

	// straight alpha, so translucent pixels keep their colour
	dst := image.NewNRGBA(image.Rect(0, 0, W, H))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)

	t := &Tensor{
		Height:   H,
		Width:    W,
		Channels: Channels,
		Data:     make([]float32, H*W*Channels),
	}

	// Pix is NRGBA, drop alpha
	for i, j := 0, 0; i < len(dst.Pix); i += 4 {
		for c := 0; c < Channels; c++ {
			t.Data[j] = (float32(dst.Pix[i+c]) - p.Mean) / p.Scale
			j++
		}
	}

	return t, nil
}

// Decode reads a JPEG, PNG or WebP image with the Default limits.
func Decode(r io.Reader) (image.Image, error) {
	return Default.Decode(r)
}

// Decode reads a JPEG, PNG or WebP image. The header is checked against
// MaxPixels before any pixel data is allocated.
func (p *Preprocessor) Decode(r io.Reader) (image.Image, error) {
	var head bytes.Buffer
	cfg, format, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return nil, &InvalidImageError{Reason: err.Error()}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &InvalidImageError{Reason: "empty " + format + " image"}
	}
	if n := int64(cfg.Width) * int64(cfg.Height); n > p.maxPixels() {
		return nil, &InvalidImageError{
			Reason: fmt.Sprintf("%s image %dx%d exceeds %d pixels", format, cfg.Width, cfg.Height, p.maxPixels()),
		}
	}

	img, _, err := image.Decode(io.MultiReader(&head, r))
	if err != nil {
		return nil, &InvalidImageError{Reason: err.Error()}
	}
	if img.Bounds().Empty() {
		return nil, &InvalidImageError{Reason: "empty " + format + " image"}
	}
	return img, nil
}

func (p *Preprocessor) maxPixels() int64 {
	if p.MaxPixels <= 0 {
		return DefaultMaxPixels
	}
	return p.MaxPixels
}
