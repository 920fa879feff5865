// Package coco loads COCO instance annotation files and indexes them for
// rendering.
package coco

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
)

var (
	// ErrParse is returned when an annotation file is not valid JSON or lacks
	// one of the categories, images or annotations sections.
	ErrParse = errors.New("coco: malformed annotation file")

	// ErrMalformedPolygon is returned for a segmentation polygon with an odd
	// number of coordinates or fewer than three points.
	ErrMalformedPolygon = errors.New("coco: malformed polygon")
)

type Category struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory,omitempty"`
}

type Image struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

type Annotation struct {
	ID           int64        `json:"id"`
	ImageID      int64        `json:"image_id"`
	CategoryID   int64        `json:"category_id"`
	Segmentation Segmentation `json:"segmentation"`
	Area         float64      `json:"area,omitempty"`
	BBox         []float64    `json:"bbox,omitempty"`
	IsCrowd      int          `json:"iscrowd,omitempty"`
}

// Segmentation holds either a list of flat x,y polygons or, for crowd
// annotations, a run-length encoded mask. RLE masks are recorded but carry
// no polygons.
type Segmentation struct {
	Polygons [][]float64
	RLE      bool
}

func (s *Segmentation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		s.Polygons = nil
		s.RLE = true
		return nil
	}

	s.RLE = false
	return json.Unmarshal(data, &s.Polygons)
}

// Dataset is a parsed annotation file. It is read-only once loaded.
type Dataset struct {
	Categories  []Category
	Images      []Image
	Annotations []*Annotation

	names   map[int64]string
	order   []int64
	byImage map[int64][]*Annotation
}

type document struct {
	Categories  *[]Category    `json:"categories"`
	Images      *[]Image       `json:"images"`
	Annotations *[]*Annotation `json:"annotations"`
}

// Load reads and indexes the annotation file at path.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return ds, nil
}

// Decode parses a single annotation document from r.
func Decode(r io.Reader) (*Dataset, error) {
	var doc document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after document", ErrParse)
	}

	switch {
	case doc.Categories == nil:
		return nil, fmt.Errorf("%w: missing \"categories\"", ErrParse)
	case doc.Images == nil:
		return nil, fmt.Errorf("%w: missing \"images\"", ErrParse)
	case doc.Annotations == nil:
		return nil, fmt.Errorf("%w: missing \"annotations\"", ErrParse)
	}

	return newDataset(*doc.Categories, *doc.Images, *doc.Annotations)
}

func newDataset(cats []Category, imgs []Image, anns []*Annotation) (*Dataset, error) {
	ds := &Dataset{
		Categories:  cats,
		Images:      imgs,
		Annotations: anns,
		names:       make(map[int64]string, len(cats)),
		byImage:     make(map[int64][]*Annotation),
	}

	// A repeated id keeps its first position and takes the last name.
	for _, c := range cats {
		if _, ok := ds.names[c.ID]; !ok {
			ds.order = append(ds.order, c.ID)
		}
		ds.names[c.ID] = c.Name
	}

	for i, a := range anns {
		if a == nil {
			return nil, fmt.Errorf("%w: annotation %d is null", ErrParse, i)
		}
		for j, p := range a.Segmentation.Polygons {
			if err := ValidatePolygon(p); err != nil {
				return nil, fmt.Errorf("annotation %d polygon %d: %w", a.ID, j, err)
			}
		}
		ds.byImage[a.ImageID] = append(ds.byImage[a.ImageID], a)
	}

	return ds, nil
}

// CategoryNames returns a copy of the category id to name mapping.
func (d *Dataset) CategoryNames() map[int64]string {
	return maps.Clone(d.names)
}

// CategoryIDs returns the distinct category ids in order of first appearance.
func (d *Dataset) CategoryIDs() []int64 {
	return slices.Clone(d.order)
}

// AnnotationsFor returns the annotations of one image in file order.
func (d *Dataset) AnnotationsFor(imageID int64) []*Annotation {
	return d.byImage[imageID]
}

// ImageByName returns the first image record with the given file name.
func (d *Dataset) ImageByName(name string) (Image, bool) {
	for _, img := range d.Images {
		if img.FileName == name {
			return img, true
		}
	}

	return Image{}, false
}
