// Package config loads and validates the TOML file describing what to export
// from a CATMAID project and how to attribute it.
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/janelia-flyem/catpub/catpub"
)

// Config is the parsed TOML export configuration.
type Config struct {
	Project     ProjectConfig
	Citation    CitationConfig
	Annotations AnnotationsConfig
	Skeletons   SkeletonsConfig
	Landmarks   LandmarksConfig
	Volumes     VolumesConfig
	Logging     catpub.LogConfig

	location string
}

type ProjectConfig struct {
	ServerURL string `toml:"server_url"`
	ProjectID int    `toml:"project_id"`

	// Units of all spatial data, e.g. "nm".
	Units string `toml:"units"`

	// RequestsPerSecond caps the rate of requests to the server.  0 is unlimited.
	RequestsPerSecond float64 `toml:"requests_per_second"`

	// Timeout for a single request in seconds.  0 uses the client default.
	Timeout int `toml:"timeout"`
}

type CitationConfig struct {
	DOI      string `toml:"doi"`
	URL      string `toml:"url"`
	BibLaTeX string `toml:"biblatex"`
}

// Empty returns true if no citation information is given.
func (c CitationConfig) Empty() bool {
	return strings.TrimSpace(c.DOI) == "" && strings.TrimSpace(c.URL) == "" && strings.TrimSpace(c.BibLaTeX) == ""
}

type AnnotationsConfig struct {
	// Annotated exports these annotations and all of their sub-annotations.
	Annotated []string          `toml:"annotated"`
	Names     catpub.Selection  `toml:"names"`
	Rename    map[string]string `toml:"rename"`
}

type SkeletonsConfig struct {
	// Annotated exports every neuron annotated with any of these annotations.
	Annotated []string          `toml:"annotated"`
	Names     catpub.Selection  `toml:"names"`
	Rename    map[string]string `toml:"rename"`
	Tags      TagsConfig        `toml:"tags"`
}

type TagsConfig struct {
	Names  catpub.Selection  `toml:"names"`
	Rename map[string]string `toml:"rename"`
}

type LandmarksConfig struct {
	Groups      catpub.Selection  `toml:"groups"`
	GroupRename map[string]string `toml:"group_rename"`
	Names       catpub.Selection  `toml:"names"`
	Rename      map[string]string `toml:"rename"`
}

type VolumesConfig struct {
	Names  catpub.Selection  `toml:"names"`
	Rename map[string]string `toml:"rename"`
}

// Location returns the path of the file the configuration was loaded from.
func (c *Config) Location() string {
	return c.location
}

// Some settings in the TOML can be given as relative paths.
// This function converts them in-place to absolute paths,
// assuming the given paths were relative to the TOML file's own directory.
func (c *Config) convertPathsToAbsolute(configPath string) error {
	configDir := filepath.Dir(configPath)

	// [logging].logfile
	if c.Logging.Logfile != "" {
		abs, err := catpub.ConvertToAbsolute(c.Logging.Logfile, configDir)
		if err != nil {
			return fmt.Errorf("error converting logfile setting to absolute path: %w", err)
		}
		c.Logging.Logfile = abs
	}
	return nil
}

// LoadConfig loads export configuration from a TOML file.  The document is
// validated against the configuration schema before it is decoded.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("no TOML configuration file provided")
	}
	var raw map[string]interface{}
	if _, err := toml.DecodeFile(filename, &raw); err != nil {
		return nil, fmt.Errorf("could not decode TOML config %q: %w", filename, err)
	}
	if err := Validate(raw); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", filename, err)
	}

	c := new(Config)
	md, err := toml.DecodeFile(filename, c)
	if err != nil {
		return nil, fmt.Errorf("could not decode TOML config %q: %w", filename, err)
	}
	for _, key := range md.Undecoded() {
		catpub.Warningf("Ignoring unknown config key %q in %s\n", key.String(), filename)
	}
	c.location = filename
	if err := c.convertPathsToAbsolute(filename); err != nil {
		return nil, fmt.Errorf("could not convert relative paths to absolute paths in TOML config: %w", err)
	}
	catpub.Debugf("Loaded config from %s: %s\n", filename, c)
	return c, nil
}

// Decode parses a configuration from TOML text.  Relative paths are left as given.
func Decode(text string) (*Config, error) {
	var raw map[string]interface{}
	if _, err := toml.Decode(text, &raw); err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %w", err)
	}
	if err := Validate(raw); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	c := new(Config)
	if _, err := toml.Decode(text, c); err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %w", err)
	}
	return c, nil
}

// String summarizes the configuration without any citation text.
func (c *Config) String() string {
	b, err := json.Marshal(struct {
		Server      string
		ProjectID   int
		Units       string
		Annotations string
		Skeletons   string
		Landmarks   string
		Volumes     string
	}{
		c.Project.ServerURL,
		c.Project.ProjectID,
		c.Project.Units,
		c.Annotations.Names.String(),
		c.Skeletons.Names.String(),
		c.Landmarks.Names.String(),
		c.Volumes.Names.String(),
	})
	if err != nil {
		return fmt.Sprintf("config %s", c.location)
	}
	return string(b)
}
