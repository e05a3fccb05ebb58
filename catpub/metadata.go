package catpub

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// MetadataFile is the name of the file describing an export, at its top level.
const MetadataFile = "metadata.toml"

// TimestampFormat is the layout of export timestamps, always in UTC.
const TimestampFormat = "2006-01-02 15:04Z"

// Metadata describes how and from where an export was made.
type Metadata struct {
	Version    string   `toml:"version"`
	Timestamp  string   `toml:"timestamp"`
	ConfigHash string   `toml:"config_hash"`
	Units      string   `toml:"units"`
	Server     string   `toml:"server"`
	ProjectID  int      `toml:"project_id"`
	Citation   Citation `toml:"citation"`
}

// Citation tells users how to cite an export.
type Citation struct {
	DOI      string `toml:"doi,omitempty"`
	URL      string `toml:"url,omitempty"`
	BibLaTeX string `toml:"biblatex,omitempty"`
}

// WriteMetadata encodes the metadata as TOML at path.
func WriteMetadata(path string, m *Metadata) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("could not encode metadata: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// ReadMetadata decodes a metadata TOML file.
func ReadMetadata(path string) (*Metadata, error) {
	m := new(Metadata)
	md, err := toml.DecodeFile(path, m)
	if err != nil {
		return nil, fmt.Errorf("could not read metadata %q: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		Debugf("Ignoring unknown metadata key %q in %s\n", key.String(), path)
	}
	return m, nil
}
