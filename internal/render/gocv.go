//go:build gocv

package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/model-collapse/cocoviz/internal/coco"
)

func init() {
	Register("gocv", func(src image.Image, style Style) (Surface, error) {
		mat, err := gocv.ImageToMatRGB(src)
		if err != nil {
			return nil, err
		}
		return NewMatCanvas(mat, style), nil
	})
}

// MatCanvas draws with OpenCV primitives onto a BGR Mat. It owns the Mat.
type MatCanvas struct {
	mat   gocv.Mat
	style Style
}

func NewMatCanvas(mat gocv.Mat, style Style) *MatCanvas {
	return &MatCanvas{mat: mat, style: style}
}

func (c *MatCanvas) Mat() gocv.Mat { return c.mat }

func (c *MatCanvas) Image() (image.Image, error) { return c.mat.ToImage() }

func (c *MatCanvas) Close() error { return c.mat.Close() }

func (c *MatCanvas) DrawPolygon(pts []image.Point, col color.RGBA, label string) {
	if len(pts) == 0 {
		return
	}

	thickness := int(c.style.StrokeWidth)
	for i := range pts {
		gocv.Line(&c.mat, pts[i], pts[(i+1)%len(pts)], col, thickness)
	}

	overlay := c.mat.Clone()
	defer overlay.Close()

	gocv.FillPoly(&overlay, [][]image.Point{pts}, col)
	gocv.AddWeighted(overlay, c.style.FillOpacity, c.mat, 1-c.style.FillOpacity, 0, &c.mat)

	org := coco.LabelAnchor(pts, c.style.LabelOffset)
	gocv.PutText(&c.mat, label, org, gocv.FontHersheySimplex, 0.5, col, c.style.TextThickness)
}
