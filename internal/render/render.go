// Package render draws annotation polygons onto images.
//
// Each polygon gets a solid outline, a translucent fill blended over the
// image and a text label above its top-left corner. Drawing is delegated to
// a Surface; the pure Go draw2d surface is always available and an OpenCV
// surface is registered when built with the gocv tag.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"slices"
	"sync"

	"github.com/model-collapse/cocoviz/internal/coco"
)

// DefaultBackend is the surface used when none is configured.
const DefaultBackend = "draw2d"

var (
	// ErrUnknownCategory is returned when an annotation refers to a category
	// missing from the name or color map.
	ErrUnknownCategory = errors.New("render: unknown category")

	// ErrUnknownBackend is returned by Lookup for an unregistered surface.
	ErrUnknownBackend = errors.New("render: unknown backend")
)

// Style controls how polygons are drawn.
type Style struct {
	StrokeWidth   float64 `json:"stroke_width" toml:"stroke_width"`
	FillOpacity   float64 `json:"fill_opacity" toml:"fill_opacity"`
	LabelOffset   int     `json:"label_offset" toml:"label_offset"`
	FontSize      float64 `json:"font_size" toml:"font_size"`
	TextThickness int     `json:"text_thickness" toml:"text_thickness"`
}

// DefaultStyle returns a width 2 outline, a 30% fill and labels raised 10
// pixels above the polygon.
func DefaultStyle() Style {
	return Style{
		StrokeWidth:   2,
		FillOpacity:   0.3,
		LabelOffset:   10,
		FontSize:      14,
		TextThickness: 2,
	}
}

// Drawer draws one closed polygon with its label.
type Drawer interface {
	DrawPolygon(pts []image.Point, c color.RGBA, label string)
}

// Surface is a Drawer that owns a copy of the image being annotated.
type Surface interface {
	Drawer
	Image() (image.Image, error)
	Close() error
}

// Factory creates a Surface holding a copy of src.
type Factory func(src image.Image, style Style) (Surface, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]Factory)
)

// Register makes a surface available under name. It panics on duplicates.
func Register(name string, f Factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	if _, dup := backends[name]; dup {
		panic("render: Register called twice for backend " + name)
	}
	backends[name] = f
}

// Lookup returns the surface factory registered under name.
func Lookup(name string) (Factory, error) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	f, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, name)
	}
	return f, nil
}

// Backends lists the registered surface names in sorted order.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Render draws every polygon of anns in order. It stops at the first
// annotation whose category is missing from names or colors; polygons drawn
// before that stay on d.
func Render(d Drawer, anns []*coco.Annotation, names map[int64]string, colors map[int64]color.RGBA) error {
	for _, ann := range anns {
		name, ok := names[ann.CategoryID]
		if !ok {
			return fmt.Errorf("%w %d in annotation %d", ErrUnknownCategory, ann.CategoryID, ann.ID)
		}
		c, ok := colors[ann.CategoryID]
		if !ok {
			return fmt.Errorf("%w %d in annotation %d: no color", ErrUnknownCategory, ann.CategoryID, ann.ID)
		}

		for _, p := range ann.Segmentation.Polygons {
			d.DrawPolygon(coco.Points(p), c, name)
		}
	}

	return nil
}
