// Package palette assigns visually distinct colors to annotation categories.
package palette

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	saturation = 0.9
	value      = 0.9
)

// Generate returns n colors with hues spread evenly around the color wheel
// at fixed saturation and value. Channels are scaled to [0,255] by
// truncation. Generate returns nil when n < 1.
func Generate(n int) []color.RGBA {
	if n < 1 {
		return nil
	}

	colors := make([]color.RGBA, n)
	for i := range colors {
		c := hsv(float64(i)/float64(n), saturation, value)
		colors[i] = color.RGBA{R: channel(c.R), G: channel(c.G), B: channel(c.B), A: 255}
	}

	return colors
}

// Assign maps each id to a color. Colors follow the order of ids, not their
// numeric value, so the same category list always yields the same colors.
func Assign(ids []int64) map[int64]color.RGBA {
	colors := Generate(len(ids))
	ret := make(map[int64]color.RGBA, len(ids))
	for i, id := range ids {
		ret[id] = colors[i]
	}

	return ret
}

// hsv converts a hue in [0,1) using the sector/fraction form. colorful.Hsv
// computes the same color through a different float path and lands one
// level lower on a few channels after truncation.
func hsv(h, s, v float64) colorful.Color {
	sector := int(h * 6)
	f := h*6 - float64(sector)
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	switch sector % 6 {
	case 0:
		return colorful.Color{R: v, G: t, B: p}
	case 1:
		return colorful.Color{R: q, G: v, B: p}
	case 2:
		return colorful.Color{R: p, G: v, B: t}
	case 3:
		return colorful.Color{R: p, G: q, B: v}
	case 4:
		return colorful.Color{R: t, G: p, B: v}
	}
	return colorful.Color{R: v, G: p, B: q}
}

func channel(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}

	return uint8(v * 255)
}
