package render

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/llgcode/draw2d/draw2dimg"

	"github.com/model-collapse/cocoviz/internal/coco"
)

func init() {
	Register(DefaultBackend, func(src image.Image, style Style) (Surface, error) {
		return NewCanvas(src, style), nil
	})
}

// Canvas is a pure Go Surface backed by an opaque RGBA copy of the source
// image whose bounds start at the origin.
type Canvas struct {
	img   *image.RGBA
	style Style
	err   error
}

// NewCanvas copies src and drops its alpha channel: every pixel keeps its
// straight color values and becomes fully opaque.
func NewCanvas(src image.Image, style Style) *Canvas {
	n := imaging.Clone(src)
	for i := 3; i < len(n.Pix); i += 4 {
		n.Pix[i] = 0xff
	}

	// Opaque NRGBA and RGBA pixels share one layout.
	img := &image.RGBA{Pix: n.Pix, Stride: n.Stride, Rect: n.Rect}
	return &Canvas{img: img, style: style}
}

// RGBA returns the canvas pixels. Later draws mutate the returned image.
func (c *Canvas) RGBA() *image.RGBA { return c.img }

// Image returns the canvas and the first error hit while drawing labels.
func (c *Canvas) Image() (image.Image, error) { return c.img, c.err }

func (c *Canvas) Close() error { return nil }

// DrawPolygon outlines pts, blends a filled copy of the polygon over the
// canvas and writes label above the polygon. Overlapping fills compound.
func (c *Canvas) DrawPolygon(pts []image.Point, col color.RGBA, label string) {
	if len(pts) == 0 {
		return
	}

	c.stroke(pts, col)
	c.fill(pts, col)
	if err := drawLabel(c.img, label, coco.LabelAnchor(pts, c.style.LabelOffset), col, c.style); err != nil && c.err == nil {
		c.err = err
	}
}

func tracePolygon(gc *draw2dimg.GraphicContext, pts []image.Point) {
	gc.BeginPath()
	gc.MoveTo(float64(pts[0].X), float64(pts[0].Y))
	for _, pt := range pts[1:] {
		gc.LineTo(float64(pt.X), float64(pt.Y))
	}
	gc.Close()
}

func (c *Canvas) stroke(pts []image.Point, col color.RGBA) {
	gc := draw2dimg.NewGraphicContext(c.img)
	gc.SetStrokeColor(col)
	gc.SetLineWidth(c.style.StrokeWidth)
	tracePolygon(gc, pts)
	gc.Stroke()
}

func (c *Canvas) fill(pts []image.Point, col color.RGBA) {
	overlay := image.NewRGBA(c.img.Rect)
	copy(overlay.Pix, c.img.Pix)

	gc := draw2dimg.NewGraphicContext(overlay)
	gc.SetFillColor(col)
	tracePolygon(gc, pts)
	gc.Fill()

	// Only pixels the fill can reach differ from the canvas.
	r := coco.Bounds(pts).Inset(-2).Intersect(c.img.Rect)
	blend(c.img, overlay, r, c.style.FillOpacity)
}

// blend sets dst = dst*(1-alpha) + src*alpha inside r, rounding to nearest.
func blend(dst, src *image.RGBA, r image.Rectangle, alpha float64) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := dst.PixOffset(r.Min.X, y)
		end := dst.PixOffset(r.Max.X, y)
		for ; i < end; i++ {
			d, s := dst.Pix[i], src.Pix[i]
			if d == s {
				continue
			}
			v := float64(d)*(1-alpha) + float64(s)*alpha
			dst.Pix[i] = uint8(math.Min(math.Round(v), 255))
		}
	}
}
