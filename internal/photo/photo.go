// Package photo applies rotation, brightness and contrast to an uploaded
// image. Processing always returns a new image; the input is never modified.
package photo

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// Parameter ranges accepted by Process.
const (
	MinRotate = -180.0
	MaxRotate = 180.0
	MinFactor = 0.5
	MaxFactor = 2.0
)

// ErrUnsupportedFormat is returned for image extensions other than jpg, jpeg and png.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ParameterError reports an out-of-range parameter. Callers clamp input
// before processing, so seeing one indicates a bug in the caller.
type ParameterError struct {
	Name     string
	Value    float64
	Min, Max float64
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s=%g outside [%g, %g]", e.Name, e.Value, e.Min, e.Max)
}

// FormatError reports an image that cannot be decoded or encoded.
type FormatError struct {
	Name string
	Err  error
}

func (e *FormatError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("image %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("image: %v", e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Params are the three adjustments, applied in field order.
type Params struct {
	// Rotate is counter-clockwise degrees.
	Rotate float64 `json:"rotate"`
	// Brightness and Contrast are multipliers; 1 leaves the image unchanged.
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
}

// DefaultParams leaves the image unchanged.
func DefaultParams() Params {
	return Params{Rotate: 0, Brightness: 1, Contrast: 1}
}

// Validate checks every parameter against its range.
func (p Params) Validate() error {
	if err := check("rotate", p.Rotate, MinRotate, MaxRotate); err != nil {
		return err
	}
	if err := check("brightness", p.Brightness, MinFactor, MaxFactor); err != nil {
		return err
	}
	return check("contrast", p.Contrast, MinFactor, MaxFactor)
}

func check(name string, v, lo, hi float64) error {
	if math.IsNaN(v) || v < lo || v > hi {
		return &ParameterError{Name: name, Value: v, Min: lo, Max: hi}
	}
	return nil
}

// Clamp pins every parameter into its range. NaN becomes the default.
func (p Params) Clamp() Params {
	d := DefaultParams()
	return Params{
		Rotate:     clamp(p.Rotate, MinRotate, MaxRotate, d.Rotate),
		Brightness: clamp(p.Brightness, MinFactor, MaxFactor, d.Brightness),
		Contrast:   clamp(p.Contrast, MinFactor, MaxFactor, d.Contrast),
	}
}

func clamp(v, lo, hi, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	return math.Max(lo, math.Min(hi, v))
}

// Process rotates, then adjusts brightness, then contrast.
//
// Rotation is counter-clockwise about the centre and keeps the source
// canvas size: corners that leave the frame are clipped and uncovered
// areas are filled black.
func Process(img image.Image, p Params) (*image.NRGBA, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	out := Rotate(img, p.Rotate)
	out = Brightness(out, p.Brightness)
	out = Contrast(out, p.Contrast)
	return out, nil
}

// Rotate turns img counter-clockwise by deg degrees on a canvas of the
// original size.
func Rotate(img image.Image, deg float64) *image.NRGBA {
	b := img.Bounds()
	out := imaging.Rotate(img, deg, color.Black)
	if out.Bounds().Dx() == b.Dx() && out.Bounds().Dy() == b.Dy() {
		return out
	}
	return imaging.PasteCenter(imaging.New(b.Dx(), b.Dy(), color.Black), out)
}

// Brightness blends img with black: each channel is scaled by f.
func Brightness(img image.Image, f float64) *image.NRGBA {
	if f == 1 {
		return imaging.Clone(img)
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: scale(c.R, 0, f), G: scale(c.G, 0, f), B: scale(c.B, 0, f), A: c.A}
	})
}

// Contrast blends img with a uniform gray at its mean luminance.
func Contrast(img image.Image, f float64) *image.NRGBA {
	if f == 1 {
		return imaging.Clone(img)
	}
	mean := meanLuminance(img)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: scale(c.R, mean, f), G: scale(c.G, mean, f), B: scale(c.B, mean, f), A: c.A}
	})
}

// scale computes base·(1-f) + v·f, rounded and clamped to a byte.
func scale(v uint8, base, f float64) uint8 {
	x := base*(1-f) + float64(v)*f
	return uint8(math.Max(0, math.Min(255, math.Round(x))))
}

// meanLuminance averages ITU-R 601 luma over all pixels.
func meanLuminance(img image.Image) float64 {
	src := imaging.Clone(img)
	n := len(src.Pix) / 4
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < len(src.Pix); i += 4 {
		sum += 0.299*float64(src.Pix[i]) + 0.587*float64(src.Pix[i+1]) + 0.114*float64(src.Pix[i+2])
	}
	return math.Round(sum / float64(n))
}

// Format is an accepted image encoding.
type Format = imaging.Format

const (
	JPEG = imaging.JPEG
	PNG  = imaging.PNG
)

// FormatFor maps a file name to an accepted format.
func FormatFor(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return JPEG, nil
	case ".png":
		return PNG, nil
	}
	return 0, &FormatError{Name: name, Err: ErrUnsupportedFormat}
}

// Decode reads an image whose name must carry an accepted extension.
// EXIF orientation is applied so the original displays upright.
func Decode(name string, r io.Reader) (image.Image, error) {
	if _, err := FormatFor(name); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &FormatError{Name: name, Err: err}
	}
	return img, nil
}

// Encode writes img in format f.
func Encode(w io.Writer, img image.Image, f Format) error {
	if err := imaging.Encode(w, img, f, imaging.JPEGQuality(90)); err != nil {
		return &FormatError{Err: err}
	}
	return nil
}
