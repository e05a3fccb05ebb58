/*
	Package publish runs a complete export: it loads the configuration, connects
	to CATMAID, exports landmarks, volumes, annotations and neurons in that order,
	and describes the result in a top-level README and metadata file.
*/
package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/janelia-flyem/catpub/catmaid"
	"github.com/janelia-flyem/catpub/catpub"
	"github.com/janelia-flyem/catpub/config"
	"github.com/janelia-flyem/catpub/datatype/annotations"
	"github.com/janelia-flyem/catpub/datatype/landmarks"
	"github.com/janelia-flyem/catpub/datatype/skeletons"
	"github.com/janelia-flyem/catpub/datatype/volumes"
)

// Options for an export.
type Options struct {
	// ConfigPath is the TOML configuration file.
	ConfigPath string

	// OutDir must not exist.  Its parents are created as needed.
	OutDir string

	// CredentialsPath is an optional JSON credentials file.
	CredentialsPath string

	// Lookup reads environment variables.  If nil, os.LookupEnv is used.
	Lookup config.LookupFunc

	// Progress receives a progress bar.  If nil, no progress is shown.
	Progress io.Writer

	// Now gives the export time.  If nil, time.Now is used.
	Now func() time.Time
}

// Result summarizes a finished export.
type Result struct {
	OutDir      string
	Metadata    catpub.Metadata
	Landmarks   bool
	Volumes     bool
	Annotations bool
	Neurons     int

	// Size is the total size in bytes of the exported files.
	Size int64
}

// Directories returns the exported data directories in README order.
func (r *Result) Directories() []string {
	var dirs []string
	if r.Landmarks {
		dirs = append(dirs, landmarks.DirName)
	}
	if r.Volumes {
		dirs = append(dirs, volumes.DirName)
	}
	if r.Annotations {
		dirs = append(dirs, annotations.DirName)
	}
	if r.Neurons > 0 {
		dirs = append(dirs, skeletons.DirName)
	}
	return dirs
}

// FromConfig exports the data described by a configuration file.
func FromConfig(ctx context.Context, opts Options) (*Result, error) {
	if opts.OutDir == "" {
		return nil, fmt.Errorf("no output directory given")
	}
	if _, err := os.Stat(opts.OutDir); err == nil {
		return nil, fmt.Errorf("output directory %q already exists", opts.OutDir)
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	timestamp := now().UTC().Format(catpub.TimestampFormat)

	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	hash, err := config.HashTOML(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	var fileCreds *config.Credentials
	if opts.CredentialsPath != "" {
		if fileCreds, err = config.ReadCredentials(opts.CredentialsPath); err != nil {
			return nil, err
		}
	}
	creds, err := config.ResolveCredentials(cfg.Project, fileCreds, opts.Lookup)
	if err != nil {
		return nil, err
	}
	catpub.Infof("Connecting to CATMAID: %s\n", creds)
	client, err := catmaid.NewClient(catmaid.ClientConfig{
		Server:            creds.Server,
		ProjectID:         creds.ProjectID,
		APIToken:          creds.APIToken,
		HTTPUser:          creds.HTTPUser,
		HTTPPassword:      creds.HTTPPassword,
		Timeout:           time.Duration(cfg.Project.Timeout) * time.Second,
		RequestsPerSecond: cfg.Project.RequestsPerSecond,
	})
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create output directory: %w", err)
	}
	res := &Result{
		OutDir: opts.OutDir,
		Metadata: catpub.Metadata{
			Version:    catpub.Version().String(),
			Timestamp:  timestamp,
			ConfigHash: hash,
			Units:      cfg.Project.Units,
			Server:     client.Server(),
			ProjectID:  client.ProjectID(),
			Citation: catpub.Citation{
				DOI:      strings.TrimSpace(cfg.Citation.DOI),
				URL:      strings.TrimSpace(cfg.Citation.URL),
				BibLaTeX: strings.TrimSpace(cfg.Citation.BibLaTeX),
			},
		},
	}

	timedLog := catpub.NewTimeLog()
	bar := newProgress(opts.Progress, 4)
	err = run(ctx, client, cfg, res, bar)
	bar.Finish()
	if err != nil {
		return res, err
	}

	if err := os.WriteFile(filepath.Join(opts.OutDir, "README.md"), []byte(Readme(res)), 0644); err != nil {
		return res, err
	}
	if err := catpub.WriteMetadata(filepath.Join(opts.OutDir, catpub.MetadataFile), &res.Metadata); err != nil {
		return res, err
	}
	if res.Size, err = dirSize(opts.OutDir); err != nil {
		return res, err
	}
	timedLog.Infof("Exported %v (%s) to %s", res.Directories(), humanize.Bytes(uint64(res.Size)), opts.OutDir)
	return res, nil
}

func run(ctx context.Context, client *catmaid.Client, cfg *config.Config, res *Result, bar progress) error {
	bar.Describe("Fetching landmarks")
	locs, err := landmarks.Fetch(ctx, client, cfg.Landmarks)
	if err != nil {
		return fmt.Errorf("landmark export failed: %w", err)
	}
	bar.Describe("Writing landmarks")
	if res.Landmarks, err = landmarks.Write(res.OutDir, locs); err != nil {
		return fmt.Errorf("landmark export failed: %w", err)
	}
	bar.Increment()

	bar.Describe("Fetching volumes")
	vols, err := volumes.Fetch(ctx, client, cfg.Volumes)
	if err != nil {
		return fmt.Errorf("volume export failed: %w", err)
	}
	bar.Describe("Writing volumes")
	if res.Volumes, err = volumes.Write(res.OutDir, vols); err != nil {
		return fmt.Errorf("volume export failed: %w", err)
	}
	bar.Increment()

	bar.Describe("Fetching annotations")
	anns, err := annotations.Fetch(ctx, client, cfg.Annotations)
	if err != nil {
		return fmt.Errorf("annotation export failed: %w", err)
	}
	bar.Describe("Writing annotations")
	if res.Annotations, err = annotations.Write(res.OutDir, anns); err != nil {
		return fmt.Errorf("annotation export failed: %w", err)
	}
	bar.Increment()

	bar.Describe("Handling skeletons")
	res.Neurons, err = skeletons.Export(ctx, client, cfg.Skeletons, anns.Rename, res.OutDir, func(done, total int) {
		bar.Describe(fmt.Sprintf("Skeleton %d/%d", done, total))
	})
	if err != nil {
		return fmt.Errorf("skeleton export failed: %w", err)
	}
	bar.Increment()
	return nil
}

// Readme returns the top-level README of an export.
func Readme(res *Result) string {
	m := res.Metadata
	lines := []string{
		"# README",
		"",
		fmt.Sprintf("This dataset was generated using `catpub v%s` at `%s` from a config file with hash `%s`.", m.Version, m.Timestamp, m.ConfigHash),
	}
	if cit := citationReadme(m.Citation); cit != "" {
		lines = append(lines, "", cit)
	}
	lines = append(lines, "", "Data and additional information can be found in the following directories:")
	for _, dir := range res.Directories() {
		lines = append(lines, fmt.Sprintf("- `%s`", dir))
	}
	lines = append(lines, "", fmt.Sprintf("Spatial data are in `%s`.\n", m.Units))
	return strings.Join(lines, "\n")
}

func citationReadme(c catpub.Citation) string {
	var out []string
	if doi := strings.TrimSpace(c.DOI); doi != "" {
		out = append(out, fmt.Sprintf("The DOI of this publication is [`%s`](https://doi.org/%s).", doi, doi))
	}
	if url := strings.TrimSpace(c.URL); url != "" {
		out = append(out, fmt.Sprintf("This publication can be accessed at %s", url))
	}
	if bib := strings.TrimSpace(c.BibLaTeX); bib != "" {
		out = append(out, fmt.Sprintf("This data can be cited with the below BibLaTeX snippet:\n\n```biblatex\n%s\n```", bib))
	}
	return strings.Join(out, "\n")
}

func dirSize(dir string) (int64, error) {
	var size int64
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
