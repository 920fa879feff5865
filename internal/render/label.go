package render

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var labelFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

// labelFace returns the face labels are drawn with. The caller closes it.
var labelFace = func(size float64) (font.Face, error) {
	f, err := labelFont()
	if err != nil {
		return nil, err
	}

	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// drawLabel writes text with its baseline starting at org. Thickness is
// emulated by repeating the text shifted one pixel to the right.
func drawLabel(dst draw.Image, text string, org image.Point, c color.RGBA, style Style) error {
	if text == "" {
		return nil
	}

	face, err := labelFace(style.FontSize)
	if err != nil {
		return fmt.Errorf("render: label %q: %w", text, err)
	}
	defer func() {
		_ = face.Close()
	}()

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
	}
	for dx, n := 0, max(style.TextThickness, 1); dx < n; dx++ {
		d.Dot = fixed.P(org.X+dx, org.Y)
		d.DrawString(text)
	}

	return nil
}
