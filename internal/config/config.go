// Package config loads cocoviz settings from JSON or TOML files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/model-collapse/cocoviz/internal/render"
)

type Config struct {
	Annotations string       `json:"annotations" toml:"annotations"`
	Images      string       `json:"images" toml:"images"`
	Output      string       `json:"output" toml:"output"`
	Backend     string       `json:"backend" toml:"backend"`
	Addr        string       `json:"addr" toml:"addr"`
	Style       render.Style `json:"style" toml:"style"`
}

func Default() Config {
	return Config{
		Annotations: "annotations/instances_default.json",
		Images:      "input_images/",
		Output:      "annotated_images",
		Backend:     render.DefaultBackend,
		Addr:        "127.0.0.1:8093",
		Style:       render.DefaultStyle(),
	}
}

// Load reads path over the defaults. The format follows the extension:
// .json or .toml. Keys absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return cfg, fmt.Errorf("config %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}
