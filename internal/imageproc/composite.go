package imageproc

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// CompositeOptions tunes the synthetic try-on render.
type CompositeOptions struct {
	// MaxEdge bounds the longest side of the output.
	MaxEdge int
	// GarmentScale is the garment width relative to the subject width.
	GarmentScale float64
	// TorsoOffset places the garment top at this fraction of the subject height.
	TorsoOffset float64
	// Opacity of the garment layer.
	Opacity float64
}

// DefaultCompositeOptions returns the settings used by the generation worker.
func DefaultCompositeOptions() CompositeOptions {
	return CompositeOptions{MaxEdge: 1024, GarmentScale: 0.6, TorsoOffset: 0.25, Opacity: 0.9}
}

// Composite fits the garment over the subject's torso and returns the result
// encoded as PNG together with its dimensions. It stands in for the real
// inference backend.
func Composite(subject, garment []byte, opts CompositeOptions) ([]byte, Info, error) {
	if opts.MaxEdge <= 0 {
		opts = DefaultCompositeOptions()
	}

	base, err := decodeBounded(subject)
	if err != nil {
		return nil, Info{}, fmt.Errorf("decode subject: %w", err)
	}
	layer, err := decodeBounded(garment)
	if err != nil {
		return nil, Info{}, fmt.Errorf("decode garment: %w", err)
	}

	canvas := imaging.Fit(base, opts.MaxEdge, opts.MaxEdge, imaging.Lanczos)
	cb := canvas.Bounds()

	boxW := int(float64(cb.Dx()) * opts.GarmentScale)
	boxH := cb.Dy() - int(float64(cb.Dy())*opts.TorsoOffset)
	if boxW < 1 {
		boxW = 1
	}
	if boxH < 1 {
		boxH = 1
	}
	fitted := imaging.Fit(layer, boxW, boxH, imaging.Lanczos)
	fb := fitted.Bounds()

	at := image.Pt((cb.Dx()-fb.Dx())/2, int(float64(cb.Dy())*opts.TorsoOffset))
	out := imaging.Overlay(canvas, fitted, at, opts.Opacity)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, Info{}, fmt.Errorf("encode result: %w", err)
	}
	ob := out.Bounds()
	return buf.Bytes(), Info{
		MIME:   "image/png",
		Ext:    ".png",
		Width:  ob.Dx(),
		Height: ob.Dy(),
		Size:   int64(buf.Len()),
	}, nil
}
