package processor

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/aliskhannn/jpg-converter/internal/model"
)

const (
	DefaultSVGScale   = 2.0
	DefaultSVGQuality = 92
	DefaultSVGSize    = 800

	// maxSurfaceSide bounds each side of the drawing surface.
	maxSurfaceSide = 16384
)

var svgRule = acceptRule{
	extensions:   []string{".svg"},
	contentTypes: []string{"image/svg+xml"},
}

// SVGOptions controls SVG rasterization.
type SVGOptions struct {
	Scale          float64 // oversampling factor applied to the intrinsic size
	Quality        int     // JPEG quality, 1-100
	FallbackWidth  int     // used when the document declares no width
	FallbackHeight int     // used when the document declares no height
}

// DefaultSVGOptions returns 2x oversampling, quality 92 and an 800x800 fallback.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Scale:          DefaultSVGScale,
		Quality:        DefaultSVGQuality,
		FallbackWidth:  DefaultSVGSize,
		FallbackHeight: DefaultSVGSize,
	}
}

// SVG rasterizes SVG documents onto a white background and encodes them as JPEG.
type SVG struct {
	opts SVGOptions
}

// NewSVG creates an SVG strategy. Zero option fields take their defaults.
func NewSVG(opts SVGOptions) *SVG {
	def := DefaultSVGOptions()
	if opts.Scale <= 0 {
		opts.Scale = def.Scale
	}
	if opts.Quality <= 0 {
		opts.Quality = def.Quality
	}
	if opts.FallbackWidth <= 0 {
		opts.FallbackWidth = def.FallbackWidth
	}
	if opts.FallbackHeight <= 0 {
		opts.FallbackHeight = def.FallbackHeight
	}
	return &SVG{opts: opts}
}

func (s *SVG) Mode() model.Mode { return model.ModeSVG }

// Accepts reports whether src is an SVG file.
func (s *SVG) Accepts(src model.SourceFile) bool {
	return svgRule.match(src)
}

// Decode renders src at its intrinsic size times the scale factor and
// returns the JPEG encoding.
func (s *SVG) Decode(_ context.Context, src model.SourceFile) ([]byte, error) {
	w, h, ok := intrinsicSize(src.Data)
	if !ok {
		return nil, decodeError(model.ModeSVG, src.Name, "content is not an SVG document", nil)
	}

	icon, err := s.load(src)
	if err != nil {
		return nil, err
	}

	// Size the surface from the intrinsic dimensions. Declared width and
	// height win over the viewBox.
	if w <= 0 {
		w = icon.ViewBox.W
	}
	if w <= 0 {
		w = float64(s.opts.FallbackWidth)
	}
	if h <= 0 {
		h = icon.ViewBox.H
	}
	if h <= 0 {
		h = float64(s.opts.FallbackHeight)
	}

	// Without a viewBox the document is drawn in its own user units.
	if icon.ViewBox.W <= 0 {
		icon.ViewBox.W = w
	}
	if icon.ViewBox.H <= 0 {
		icon.ViewBox.H = h
	}

	width := int(math.Round(w * s.opts.Scale))
	height := int(math.Round(h * s.opts.Scale))

	if width <= 0 || height <= 0 || width > maxSurfaceSide || height > maxSurfaceSide {
		return nil, decodeError(model.ModeSVG, src.Name,
			fmt.Sprintf("surface %dx%d cannot be created", width, height), nil)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))

	// JPEG has no alpha channel, so paint an opaque background first.
	dc := gg.NewContextForRGBA(canvas)
	dc.SetColor(color.White)
	dc.Clear()

	// Draw the document scaled to fill the whole surface.
	icon.SetTarget(0, 0, float64(width), float64(height))
	scanner := rasterx.NewScannerGV(width, height, canvas, canvas.Bounds())
	icon.Draw(rasterx.NewDasher(width, height, scanner), 1.0)

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, canvas, imaging.JPEG, imaging.JPEGQuality(s.opts.Quality)); err != nil {
		return nil, decodeError(model.ModeSVG, src.Name, "failed to encode surface", err)
	}

	return buf.Bytes(), nil
}

// load parses src into a drawable icon. The reader it parses from does not
// outlive this call.
func (s *SVG) load(src model.SourceFile) (*oksvg.SvgIcon, error) {
	r := bytes.NewReader(src.Data)
	icon, err := oksvg.ReadIconStream(r, oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, decodeError(model.ModeSVG, src.Name, "failed to load image", err)
	}

	return icon, nil
}

// intrinsicSize reads the width and height declared on the root element.
// Missing or relative lengths are reported as 0. ok is false when the
// document has no root element or the root is not <svg>.
func intrinsicSize(data []byte) (width, height float64, ok bool) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	for {
		tok, err := dec.Token()
		if err != nil {
			return 0, 0, false
		}

		el, isStart := tok.(xml.StartElement)
		if !isStart {
			continue
		}
		if el.Name.Local != "svg" {
			return 0, 0, false
		}

		for _, attr := range el.Attr {
			switch attr.Name.Local {
			case "width":
				width = parseLength(attr.Value)
			case "height":
				height = parseLength(attr.Value)
			}
		}
		return width, height, true
	}
}

// pxPerUnit converts absolute CSS units to pixels at 96 dpi.
var pxPerUnit = map[string]float64{
	"px": 1,
	"pt": 96.0 / 72,
	"pc": 16,
	"in": 96,
	"cm": 96 / 2.54,
	"mm": 96 / 25.4,
	"q":  96 / 101.6,
}

// parseLength parses an absolute SVG length into pixels. Relative units
// (%, em, ex) and malformed values yield 0.
func parseLength(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))

	factor := 1.0
	for unit, f := range pxPerUnit {
		if strings.HasSuffix(s, unit) {
			s, factor = strings.TrimSpace(strings.TrimSuffix(s, unit)), f
			break
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v * factor
}
