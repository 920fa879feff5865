package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/model-collapse/cocoviz/internal/render"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "conf.json",
			content: `{
  "images": "frames/",
  "output": "out",
  "style": {"fill_opacity": 0.5, "stroke_width": 3}
}`,
		},
		{
			name: "toml",
			file: "cocoviz.toml",
			content: `images = "frames/"
output = "out"

[style]
fill_opacity = 0.5
stroke_width = 3.0
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(write(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			want := Default()
			want.Images = "frames/"
			want.Output = "out"
			want.Style.FillOpacity = 0.5
			want.Style.StrokeWidth = 3
			if cfg != want {
				t.Errorf("Load() = %+v, want %+v", cfg, want)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(write(t, "conf.yaml", "images: x")); err == nil {
		t.Error("Load(yaml) succeeded, want unsupported format error")
	}
	if _, err := Load(write(t, "conf.json", "{")); err == nil {
		t.Error("Load(bad json) succeeded")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "none.toml")); !os.IsNotExist(err) {
		t.Errorf("Load(missing) error = %v, want not exist", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Annotations != "annotations/instances_default.json" || cfg.Images != "input_images/" {
		t.Errorf("Default() paths = %q, %q", cfg.Annotations, cfg.Images)
	}
	if cfg.Style != render.DefaultStyle() {
		t.Errorf("Default().Style = %+v", cfg.Style)
	}
}
