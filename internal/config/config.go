package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Overpass   OverpassConfig   `yaml:"overpass" mapstructure:"overpass"`
	Projection ProjectionConfig `yaml:"projection" mapstructure:"projection"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Map        MapConfig        `yaml:"map" mapstructure:"map"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// OverpassConfig configures the relation query and the mirror endpoints it is sent to.
type OverpassConfig struct {
	Endpoints          []string `yaml:"endpoints" mapstructure:"endpoints"`
	RelationID         int64    `yaml:"relation_id" mapstructure:"relation_id"`
	QueryTimeoutSecs   int      `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	PauseMs            int      `yaml:"pause_ms" mapstructure:"pause_ms"`
	UserAgent          string   `yaml:"user_agent" mapstructure:"user_agent"`
}

// ProjectionConfig selects the planar CRS the features are reprojected into.
type ProjectionConfig struct {
	Target string `yaml:"target" mapstructure:"target"`
}

// OutputConfig controls where and under which names files are written.
type OutputConfig struct {
	Dir              string `yaml:"dir" mapstructure:"dir"`
	Basename         string `yaml:"basename" mapstructure:"basename"`
	GeographicSuffix string `yaml:"geographic_suffix" mapstructure:"geographic_suffix"`
	// PlanarSuffix defaults to the target CRS tag (utm33, utm32s, ...) when empty.
	PlanarSuffix     string `yaml:"planar_suffix" mapstructure:"planar_suffix"`
	GeoPackage       bool   `yaml:"geopackage" mapstructure:"geopackage"`
	SaveRaw          bool   `yaml:"save_raw" mapstructure:"save_raw"`
	Manifest         bool   `yaml:"manifest" mapstructure:"manifest"`
}

// MapConfig configures the rendered HTML map.
type MapConfig struct {
	Zoom        int     `yaml:"zoom" mapstructure:"zoom"`
	TileURL     string  `yaml:"tile_url" mapstructure:"tile_url"`
	Attribution string  `yaml:"attribution" mapstructure:"attribution"`
	LayerName   string  `yaml:"layer_name" mapstructure:"layer_name"`
	Color       string  `yaml:"color" mapstructure:"color"`
	Weight      float64 `yaml:"weight" mapstructure:"weight"`
	Opacity     float64 `yaml:"opacity" mapstructure:"opacity"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultEndpoints are the Overpass mirrors tried in order.
var DefaultEndpoints = []string{
	"https://overpass.kumi.systems/api/interpreter",
	"https://overpass-api.de/api/interpreter",
	"https://overpass.openstreetmap.ru/api/interpreter",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RELATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("overpass.endpoints", DefaultEndpoints)
	v.SetDefault("overpass.relation_id", 7382983)
	v.SetDefault("overpass.query_timeout_secs", 60)
	v.SetDefault("overpass.request_timeout_secs", 90)
	v.SetDefault("overpass.pause_ms", 2000)
	v.SetDefault("overpass.user_agent", "relation-cli/1.0")
	v.SetDefault("projection.target", "EPSG:25833")
	v.SetDefault("output.dir", "data")
	v.SetDefault("output.basename", "siemensbahn")
	v.SetDefault("output.geographic_suffix", "wgs84")
	v.SetDefault("output.planar_suffix", "")
	v.SetDefault("output.geopackage", true)
	v.SetDefault("output.save_raw", false)
	v.SetDefault("output.manifest", true)
	v.SetDefault("map.zoom", 13)
	v.SetDefault("map.tile_url", "https://tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("map.attribution", `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`)
	v.SetDefault("map.layer_name", "Siemensbahn")
	v.SetDefault("map.color", "#0066cc")
	v.SetDefault("map.weight", 4)
	v.SetDefault("map.opacity", 0.8)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Validate checks that the settings required by the given mode are present.
// Supported modes are "run" and "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "run":
		if len(c.Overpass.Endpoints) == 0 {
			errs = append(errs, "overpass.endpoints must not be empty")
		}
		if c.Overpass.RelationID <= 0 {
			errs = append(errs, "overpass.relation_id must be > 0")
		}
		if c.Projection.Target == "" {
			errs = append(errs, "projection.target is required")
		}
		if c.Map.Zoom < 0 || c.Map.Zoom > 19 {
			errs = append(errs, "map.zoom must be between 0 and 19")
		}
		if c.Map.Opacity < 0 || c.Map.Opacity > 1 {
			errs = append(errs, "map.opacity must be between 0 and 1")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Output.Dir == "" {
		errs = append(errs, "output.dir is required")
	}
	if c.Output.Basename == "" {
		errs = append(errs, "output.basename is required")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
