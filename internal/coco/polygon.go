package coco

import (
	"fmt"
	"image"
	"math"
)

// ValidatePolygon checks that p holds at least three x,y pairs.
func ValidatePolygon(p []float64) error {
	if len(p)%2 != 0 {
		return fmt.Errorf("%w: odd coordinate count %d", ErrMalformedPolygon, len(p))
	}
	if len(p) < 6 {
		return fmt.Errorf("%w: %d points, need at least 3", ErrMalformedPolygon, len(p)/2)
	}

	return nil
}

// Points converts a flat x,y list to integer points, truncating toward zero.
// A trailing unpaired coordinate is dropped.
func Points(p []float64) []image.Point {
	pts := make([]image.Point, 0, len(p)/2)
	for i := 0; i+1 < len(p); i += 2 {
		pts = append(pts, image.Point{X: int(p[i]), Y: int(p[i+1])})
	}

	return pts
}

// Bounds returns the smallest rectangle whose Min is the minimum x and y of
// pts and whose Max is the maximum x and y.
func Bounds(pts []image.Point) (r image.Rectangle) {
	if len(pts) == 0 {
		return
	}

	r.Min = image.Point{X: math.MaxInt32, Y: math.MaxInt32}
	r.Max = image.Point{X: math.MinInt32, Y: math.MinInt32}
	for _, pt := range pts {
		r.Min.X = min(r.Min.X, pt.X)
		r.Min.Y = min(r.Min.Y, pt.Y)

		r.Max.X = max(r.Max.X, pt.X)
		r.Max.Y = max(r.Max.Y, pt.Y)
	}

	return
}

// LabelAnchor returns the text origin for a polygon label: the top-left
// corner of its bounds raised by offset pixels. The result is not clamped to
// the image.
func LabelAnchor(pts []image.Point, offset int) image.Point {
	return Bounds(pts).Min.Sub(image.Point{Y: offset})
}
