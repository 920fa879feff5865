// Package serve exposes annotated previews of a dataset over HTTP.
package serve

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	http "github.com/valyala/fasthttp"

	"github.com/model-collapse/cocoviz/internal/annotate"
	"github.com/model-collapse/cocoviz/internal/coco"
)

const jpegQuality = 90

// Server renders images on request. The dataset is read-only, so requests
// are served concurrently without locking.
type Server struct {
	runner *annotate.Runner
	ds     *coco.Dataset
	logger *log.Logger
}

func New(ds *coco.Dataset, r *annotate.Runner, logger *log.Logger) *Server {
	return &Server{runner: r, ds: ds, logger: logger}
}

// Handler routes /images and /render.
func (s *Server) Handler() http.RequestHandler {
	return func(c *http.RequestCtx) {
		if !c.IsGet() {
			c.Error("method not allowed", http.StatusMethodNotAllowed)
			return
		}

		switch string(c.Path()) {
		case "/images":
			s.images(c)
		case "/render":
			s.render(c)
		default:
			c.Error("not found", http.StatusNotFound)
		}
	}
}

// ListenAndServe serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Handler: s.Handler(), Name: "cocoviz"}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe(addr) }()

	s.logger.Info("Serving", "addr", addr)
	select {
	case <-ctx.Done():
		return srv.Shutdown()
	case err := <-errc:
		return err
	}
}

func (s *Server) images(c *http.RequestCtx) {
	names := make([]string, 0, len(s.ds.Images))
	for _, img := range s.ds.Images {
		names = append(names, img.FileName)
	}

	data, err := json.Marshal(names)
	if err != nil {
		c.Error(err.Error(), http.StatusInternalServerError)
		return
	}

	c.SetContentType("application/json")
	c.Write(data)
}

func (s *Server) render(c *http.RequestCtx) {
	name := string(c.QueryArgs().Peek("image"))
	if name == "" {
		c.Error("missing image parameter", http.StatusBadRequest)
		return
	}

	img, err := s.runner.RenderOne(name)
	switch {
	case errors.Is(err, annotate.ErrImageNotFound):
		c.Error(err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, annotate.ErrUnreadableImage):
		c.Error(err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		s.logger.Error("render failed", "image", name, "err", err)
		c.Error(err.Error(), http.StatusInternalServerError)
		return
	}

	c.SetContentType("image/jpeg")
	if err := imaging.Encode(c, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		s.logger.Error("encode failed", "image", name, "err", err)
		c.ResetBody()
		c.Error(err.Error(), http.StatusInternalServerError)
	}
}
