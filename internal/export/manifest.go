package export

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Manifest summarises one run. It is written after every other file.
type Manifest struct {
	RunID        string        `yaml:"run_id"`
	RelationID   int64         `yaml:"relation_id"`
	Endpoint     string        `yaml:"endpoint"`
	OSMBase      string        `yaml:"osm_base,omitempty"`
	GeneratedAt  time.Time     `yaml:"generated_at"`
	FeatureCount int           `yaml:"feature_count"`
	Layers       []LayerRecord `yaml:"layers"`
	Files        []string      `yaml:"files"`
}

// LayerRecord describes one written collection.
type LayerRecord struct {
	CRS    string     `yaml:"crs"`
	Bounds []float64 `yaml:"bounds,flow"`
}

// WriteManifest encodes m as YAML at path.
func WriteManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "export: encode manifest")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write manifest %s", path)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: read manifest %s", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "export: parse manifest")
	}
	return &m, nil
}
