package service

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// Fit modes control how a source is mapped onto the target box when aspect
// ratios differ.
const (
	FitContain = "contain" // scale to fit, pad to the exact box
	FitCover   = "cover"   // scale to cover, crop centered to the exact box
	FitFill    = "fill"    // stretch to the exact box
	FitInside  = "inside"  // scale to fit within the box, no padding
	FitOutside = "outside" // scale until both axes cover the box, no crop
)

const (
	DefaultFit  = FitCover
	webpQuality = 85
)

// VariantContentType is the content type of every rendered variant.
const VariantContentType = "image/webp"

var fitModes = map[string]bool{
	FitContain: true,
	FitCover:   true,
	FitFill:    true,
	FitInside:  true,
	FitOutside: true,
}

func ValidFit(fit string) bool {
	return fitModes[fit]
}

// ResizeSpec describes one variant to render. Exactly one of Width/Height
// may be nil, not both.
type ResizeSpec struct {
	Fit    string
	Width  *int
	Height *int
}

// RenderVariant decodes the source bytes, resizes per the spec and re-encodes
// as lossy WebP. Pure transform: safe to call concurrently and deterministic
// for identical input, subject to encoder determinism.
func RenderVariant(source []byte, spec ResizeSpec) ([]byte, error) {
	fit := spec.Fit
	if fit == "" {
		fit = DefaultFit
	}
	if !ValidFit(fit) {
		return nil, fmt.Errorf("%w: unknown fit mode %q", ErrInvalidArgument, spec.Fit)
	}
	if err := validateDimensions(spec.Width, spec.Height, MaxImageDimension); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(source), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	resized := resizeToSpec(img, fit, spec.Width, spec.Height)

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, webpQuality)
	if err != nil {
		return nil, fmt.Errorf("prepare webp encoder: %w", err)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, resized, options); err != nil {
		return nil, fmt.Errorf("encode webp variant: %w", err)
	}
	return buf.Bytes(), nil
}

func resizeToSpec(img image.Image, fit string, width, height *int) image.Image {
	// A single present dimension always means an aspect-preserving resize,
	// whatever the fit mode.
	if width == nil {
		return imaging.Resize(img, 0, *height, imaging.Lanczos)
	}
	if height == nil {
		return imaging.Resize(img, *width, 0, imaging.Lanczos)
	}

	w, h := *width, *height
	switch fit {
	case FitCover:
		return imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos)
	case FitContain:
		fitted := imaging.Fit(img, w, h, imaging.Lanczos)
		canvas := imaging.New(w, h, color.NRGBA{})
		return imaging.PasteCenter(canvas, fitted)
	case FitFill:
		return imaging.Resize(img, w, h, imaging.Lanczos)
	case FitInside:
		return imaging.Fit(img, w, h, imaging.Lanczos)
	case FitOutside:
		bounds := img.Bounds()
		srcW, srcH := bounds.Dx(), bounds.Dy()
		// Scale along the axis that needs the larger factor so both axes
		// end up at or beyond the target box.
		if w*srcH >= h*srcW {
			return imaging.Resize(img, w, 0, imaging.Lanczos)
		}
		return imaging.Resize(img, 0, h, imaging.Lanczos)
	default:
		return imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos)
	}
}
