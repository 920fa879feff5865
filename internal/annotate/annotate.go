// Package annotate drives a rendering pass over every image of a dataset.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/model-collapse/cocoviz/internal/coco"
	"github.com/model-collapse/cocoviz/internal/palette"
	"github.com/model-collapse/cocoviz/internal/render"
)

// OutputPrefix is prepended to the file name of every annotated image.
const OutputPrefix = "annotated_"

var (
	// ErrImageNotFound is returned when an image is absent from the dataset
	// or from disk.
	ErrImageNotFound = errors.New("annotate: image not found")

	// ErrUnreadableImage is returned when an image file exists but cannot be
	// decoded.
	ErrUnreadableImage = errors.New("annotate: could not load image")
)

// Summary counts the outcome of a Run.
type Summary struct {
	Processed  int
	Missing    int
	Unreadable int
}

// PrepareOutput creates dir if needed and returns its cleaned path. Existing
// files are left in place.
func PrepareOutput(dir string) (string, error) {
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	return dir, nil
}

// Runner renders the annotations of a dataset onto its images.
type Runner struct {
	ds        *coco.Dataset
	imageDir  string
	outputDir string
	names     map[int64]string
	colors    map[int64]color.RGBA
	style     render.Style
	backend   render.Factory
	out       io.Writer
	logger    *log.Logger
}

type Option func(*Runner)

// WithStyle overrides render.DefaultStyle.
func WithStyle(s render.Style) Option {
	return func(r *Runner) { r.style = s }
}

// WithBackend selects the drawing surface.
func WithBackend(f render.Factory) Option {
	return func(r *Runner) { r.backend = f }
}

// WithColors replaces the palette assigned from the dataset's categories.
func WithColors(colors map[int64]color.RGBA) Option {
	return func(r *Runner) { r.colors = colors }
}

// WithOutput sets where per-image status lines are written.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

func WithLogger(l *log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New returns a Runner reading images from imageDir and writing annotated
// copies to outputDir. Colors default to one palette entry per category in
// file order.
func New(ds *coco.Dataset, imageDir, outputDir string, opts ...Option) *Runner {
	r := &Runner{
		ds:        ds,
		imageDir:  imageDir,
		outputDir: outputDir,
		names:     ds.CategoryNames(),
		style:     render.DefaultStyle(),
		out:       os.Stdout,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.colors == nil {
		r.colors = palette.Assign(ds.CategoryIDs())
	}
	if r.backend == nil {
		f, err := render.Lookup(render.DefaultBackend)
		if err != nil {
			panic(err)
		}
		r.backend = f
	}

	return r
}

// Run processes every image in file order. Missing and undecodable images
// are reported and skipped; any other failure stops the run.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	for _, rec := range r.ds.Images {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		img, err := r.load(rec)
		switch {
		case errors.Is(err, ErrImageNotFound):
			fmt.Fprintf(r.out, "Warning: Image %s not found\n", rec.FileName)
			sum.Missing++
			continue
		case errors.Is(err, ErrUnreadableImage):
			fmt.Fprintf(r.out, "Warning: Could not load image %s\n", rec.FileName)
			r.logger.Debug("decode failed", "image", rec.FileName, "err", err)
			sum.Unreadable++
			continue
		case err != nil:
			return sum, err
		}

		out, err := r.annotate(img, rec)
		if err != nil {
			return sum, fmt.Errorf("%s: %w", rec.FileName, err)
		}

		if err := r.save(out, rec); err != nil {
			return sum, err
		}

		fmt.Fprintf(r.out, "Processed %s\n", rec.FileName)
		sum.Processed++
	}

	return sum, nil
}

// RenderOne annotates the image with the given file name without writing it.
func (r *Runner) RenderOne(name string) (image.Image, error) {
	rec, ok := r.ds.ImageByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not in the dataset", ErrImageNotFound, name)
	}

	img, err := r.load(rec)
	if err != nil {
		return nil, err
	}

	return r.annotate(img, rec)
}

// OutputPath returns where the annotated copy of name is written.
func (r *Runner) OutputPath(name string) string {
	return filepath.Join(r.outputDir, OutputPrefix+name)
}

func (r *Runner) load(rec coco.Image) (image.Image, error) {
	path := filepath.Join(r.imageDir, rec.FileName)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageNotFound, err)
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}

	return img, nil
}

func (r *Runner) annotate(img image.Image, rec coco.Image) (image.Image, error) {
	s, err := r.backend(img, r.style)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	anns := r.ds.AnnotationsFor(rec.ID)
	for _, a := range anns {
		if a.Segmentation.RLE {
			r.logger.Debug("skipping RLE segmentation", "image", rec.FileName, "annotation", a.ID)
		}
	}

	if err := render.Render(s, anns, r.names, r.colors); err != nil {
		return nil, err
	}

	r.logger.Debug("rendered", "image", rec.FileName, "annotations", len(anns))
	return s.Image()
}

func (r *Runner) save(img image.Image, rec coco.Image) error {
	dst := r.OutputPath(rec.FileName)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	if err := imaging.Save(img, dst); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}

	return nil
}
