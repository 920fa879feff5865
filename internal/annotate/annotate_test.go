package annotate

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/model-collapse/cocoviz/internal/coco"
	"github.com/model-collapse/cocoviz/internal/render"
)

const catSquare = `{
  "categories": [{"id": 1, "name": "cat"}],
  "images": [{"id": 10, "file_name": "a.jpg"}],
  "annotations": [{"image_id": 10, "category_id": 1, "segmentation": [[0, 0, 10, 0, 10, 10, 0, 10]]}]
}`

func dataset(t *testing.T, doc string) *coco.Dataset {
	t.Helper()
	ds, err := coco.Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return ds
}

func writeGray(t *testing.T, path string) {
	t.Helper()
	img := imaging.New(64, 64, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	if err := imaging.Save(img, path); err != nil {
		t.Fatal(err)
	}
}

func newRunner(ds *coco.Dataset, in, out string, stdout io.Writer) *Runner {
	return New(ds, in, out, WithOutput(stdout), WithLogger(log.New(io.Discard)))
}

func TestRunEndToEnd(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeGray(t, filepath.Join(in, "a.jpg"))

	var stdout bytes.Buffer
	sum, err := newRunner(dataset(t, catSquare), in, out, &stdout).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := stdout.String(); got != "Processed a.jpg\n" {
		t.Errorf("stdout = %q, want a single Processed line", got)
	}
	if sum != (Summary{Processed: 1}) {
		t.Errorf("summary = %+v", sum)
	}

	img, err := imaging.Open(filepath.Join(out, "annotated_a.jpg"))
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	if got := img.Bounds(); got != image.Rect(0, 0, 64, 64) {
		t.Errorf("output bounds = %v, want 64x64", got)
	}

	r, g, _, _ := img.At(5, 5).RGBA()
	if int(r>>8)-int(g>>8) < 25 {
		t.Errorf("pixel (5,5) = %v, want tinted toward red", img.At(5, 5))
	}

	r, g, b, _ := img.At(50, 50).RGBA()
	for _, v := range []uint32{r >> 8, g >> 8, b >> 8} {
		if v < 124 || v > 132 {
			t.Errorf("pixel (50,50) = %v, want ~gray", img.At(50, 50))
			break
		}
	}
}

func TestRunMissingImage(t *testing.T) {
	doc := `{
	  "categories": [{"id": 1, "name": "cat"}],
	  "images": [{"id": 1, "file_name": "gone.png"}, {"id": 2, "file_name": "b.png"}],
	  "annotations": []
	}`
	in, out := t.TempDir(), t.TempDir()
	writeGray(t, filepath.Join(in, "b.png"))

	var stdout bytes.Buffer
	sum, err := newRunner(dataset(t, doc), in, out, &stdout).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := "Warning: Image gone.png not found\nProcessed b.png\n"
	if got := stdout.String(); got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
	if sum != (Summary{Processed: 1, Missing: 1}) {
		t.Errorf("summary = %+v", sum)
	}
	if _, err := os.Stat(filepath.Join(out, "annotated_gone.png")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("output for missing image exists: %v", err)
	}
}

func TestRunUnreadableImage(t *testing.T) {
	doc := `{
	  "categories": [{"id": 1, "name": "cat"}],
	  "images": [{"id": 1, "file_name": "empty.jpg"}, {"id": 2, "file_name": "notes.png"}],
	  "annotations": [{"image_id": 1, "category_id": 1, "segmentation": [[0, 0, 4, 0, 4, 4]]}]
	}`
	in, out := t.TempDir(), t.TempDir()
	if err := os.WriteFile(filepath.Join(in, "empty.jpg"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(in, "notes.png"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout bytes.Buffer
	sum, err := newRunner(dataset(t, doc), in, out, &stdout).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := "Warning: Could not load image empty.jpg\nWarning: Could not load image notes.png\n"
	if got := stdout.String(); got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
	if sum != (Summary{Unreadable: 2}) {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRunUnknownCategoryAborts(t *testing.T) {
	doc := `{
	  "categories": [{"id": 1, "name": "cat"}],
	  "images": [{"id": 1, "file_name": "a.png"}, {"id": 2, "file_name": "b.png"}],
	  "annotations": [{"image_id": 1, "category_id": 7, "segmentation": [[0, 0, 4, 0, 4, 4]]}]
	}`
	in, out := t.TempDir(), t.TempDir()
	writeGray(t, filepath.Join(in, "a.png"))
	writeGray(t, filepath.Join(in, "b.png"))

	var stdout bytes.Buffer
	_, err := newRunner(dataset(t, doc), in, out, &stdout).Run(context.Background())
	if !errors.Is(err, render.ErrUnknownCategory) {
		t.Fatalf("Run() error = %v, want ErrUnknownCategory", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want nothing", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(out, "annotated_b.png")); !errors.Is(err, os.ErrNotExist) {
		t.Error("run continued past the failing image")
	}
}

func TestRunCanceled(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeGray(t, filepath.Join(in, "a.jpg"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout bytes.Buffer
	if _, err := newRunner(dataset(t, catSquare), in, out, &stdout).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunNestedFileName(t *testing.T) {
	doc := `{
	  "categories": [{"id": 1, "name": "cat"}],
	  "images": [{"id": 1, "file_name": "batch1/a.png"}],
	  "annotations": []
	}`
	in, out := t.TempDir(), t.TempDir()
	if err := os.Mkdir(filepath.Join(in, "batch1"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeGray(t, filepath.Join(in, "batch1", "a.png"))

	r := newRunner(dataset(t, doc), in, out, io.Discard)
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(r.OutputPath("batch1/a.png")); err != nil {
		t.Errorf("nested output missing: %v", err)
	}
}

func TestRenderOne(t *testing.T) {
	in := t.TempDir()
	writeGray(t, filepath.Join(in, "a.jpg"))
	r := newRunner(dataset(t, catSquare), in, t.TempDir(), io.Discard)

	img, err := r.RenderOne("a.jpg")
	if err != nil {
		t.Fatalf("RenderOne() error = %v", err)
	}
	if img.Bounds().Dx() != 64 {
		t.Errorf("RenderOne() bounds = %v", img.Bounds())
	}

	if _, err := r.RenderOne("z.jpg"); !errors.Is(err, ErrImageNotFound) {
		t.Errorf("RenderOne(z.jpg) error = %v, want ErrImageNotFound", err)
	}
}

func TestPrepareOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "annotated_images")
	keep := filepath.Join(dir, "old.png")

	got, err := PrepareOutput(dir)
	if err != nil {
		t.Fatalf("PrepareOutput() error = %v", err)
	}
	if got != dir {
		t.Errorf("PrepareOutput() = %q, want %q", got, dir)
	}
	if err := os.WriteFile(keep, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := PrepareOutput(dir); err != nil {
		t.Fatalf("second PrepareOutput() error = %v", err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("existing file removed: %v", err)
	}
}

func TestNewDefaultBackend(t *testing.T) {
	r := newRunner(dataset(t, catSquare), t.TempDir(), t.TempDir(), io.Discard)

	s, err := r.backend(image.NewRGBA(image.Rect(0, 0, 4, 4)), render.DefaultStyle())
	if err != nil {
		t.Fatalf("default backend error = %v", err)
	}
	defer s.Close()

	if _, ok := s.(*render.Canvas); !ok {
		t.Errorf("default surface is %T, want *render.Canvas", s)
	}
}

func TestRunSurfaceErrorAborts(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeGray(t, filepath.Join(in, "a.jpg"))

	boom := errors.New("surface unavailable")
	r := New(dataset(t, catSquare), in, out,
		WithOutput(io.Discard),
		WithLogger(log.New(io.Discard)),
		WithBackend(func(image.Image, render.Style) (render.Surface, error) { return nil, boom }))

	if _, err := r.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
}
