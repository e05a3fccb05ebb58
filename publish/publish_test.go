package publish

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/janelia-flyem/catpub/catmaid"
	"github.com/janelia-flyem/catpub/catpub"
	"github.com/janelia-flyem/catpub/tests"
	"github.com/klauspost/compress/gzip"
)

const sampleConfig = `
[project]
server_url = "%s"
project_id = 1
units = "nm"

[citation]
doi = "10.1234/example"
url = "https://example.org/paper"

[annotations]
annotated = ["published"]

[skeletons]
annotated = ["paper 1 neurons"]
names = ["neuron B"]
rename = { "neuron A" = "Neuron A" }

[skeletons.tags]
names = true

[landmarks]
names = true
groups = ["left"]

[volumes]
names = ["neuropil"]
`

var exportTime = time.Date(2024, 3, 5, 14, 7, 33, 0, time.UTC)

func noEnv(string) (string, bool) {
	return "", false
}

// writeInputs writes a config and credentials file for the fake server into dir.
func writeInputs(t *testing.T, dir, serverURL, token string) (cfgPath, credsPath string) {
	cfgPath = filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte(fmt.Sprintf(sampleConfig, serverURL)), 0644); err != nil {
		t.Fatal(err)
	}
	credsPath = filepath.Join(dir, "credentials.json")
	if err := os.WriteFile(credsPath, []byte(fmt.Sprintf(`{"api_token": %q}`, token)), 0644); err != nil {
		t.Fatal(err)
	}
	return
}

func TestFromConfig(t *testing.T) {
	srv := tests.NewFakeCATMAID(tests.SampleProject())
	defer srv.Close()

	dir := t.TempDir()
	cfgPath, credsPath := writeInputs(t, dir, srv.URL, tests.SampleToken)
	outDir := filepath.Join(dir, "nested", "export")
	res, err := FromConfig(context.Background(), Options{
		ConfigPath:      cfgPath,
		OutDir:          outDir,
		CredentialsPath: credsPath,
		Lookup:          noEnv,
		Now:             func() time.Time { return exportTime },
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Landmarks || !res.Volumes || !res.Annotations || res.Neurons != 2 {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Size <= 0 {
		t.Errorf("expected positive export size, got %d", res.Size)
	}

	files, err := tests.ListFiles(outDir)
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{
		"README.md",
		"annotations/README.md",
		"annotations/annotation_graph.json",
		"landmarks/README.md",
		"landmarks/locations.json",
		"metadata.toml",
	}
	for _, skid := range []string{"11", "22"} {
		for _, fname := range []string{"connectors.tsv", "metadata.json", "nodes.tsv", "tags.json"} {
			expected = append(expected, "neurons/"+skid+"/"+fname)
		}
	}
	expected = append(expected, "neurons/README.md", "volumes/5.stl", "volumes/README.md", "volumes/names.tsv")
	if !reflect.DeepEqual(files, expected) {
		t.Errorf("expected files\n%v\ngot\n%v", expected, files)
	}

	readme := fmt.Sprintf("# README\n\n"+
		"This dataset was generated using `catpub v%s` at `2024-03-05 14:07Z` from a config file with hash `%s`.\n\n"+
		"The DOI of this publication is [`10.1234/example`](https://doi.org/10.1234/example).\n"+
		"This publication can be accessed at https://example.org/paper\n\n"+
		"Data and additional information can be found in the following directories:\n"+
		"- `landmarks`\n- `volumes`\n- `annotations`\n- `neurons`\n\n"+
		"Spatial data are in `nm`.\n", catpub.Version(), res.Metadata.ConfigHash)
	if got := tests.ReadFile(filepath.Join(outDir, "README.md")); got != readme {
		t.Errorf("unexpected README:\n%s", got)
	}
	if len(res.Metadata.ConfigHash) != 64 {
		t.Errorf("unexpected config hash %q", res.Metadata.ConfigHash)
	}

	meta, err := catpub.ReadMetadata(filepath.Join(outDir, catpub.MetadataFile))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(*meta, res.Metadata) {
		t.Errorf("expected metadata %+v, got %+v", res.Metadata, *meta)
	}
	if meta.Server != srv.URL || meta.ProjectID != 1 || meta.Units != "nm" || meta.Timestamp != "2024-03-05 14:07Z" {
		t.Errorf("unexpected metadata %+v", meta)
	}

	// annotations only keep the exported annotation of neuron A
	nrnMeta := tests.ReadFile(filepath.Join(outDir, "neurons", "11", "metadata.json"))
	if !strings.Contains(nrnMeta, `"paper 1 neurons"`) || strings.Contains(nrnMeta, `"internal"`) {
		t.Errorf("unexpected neuron metadata:\n%s", nrnMeta)
	}
	// all tags are exported
	if got := tests.ReadFile(filepath.Join(outDir, "neurons", "11", "tags.json")); !strings.Contains(got, `"todo"`) {
		t.Errorf("expected all tags, got:\n%s", got)
	}

	if _, err := FromConfig(context.Background(), Options{ConfigPath: cfgPath, OutDir: outDir, CredentialsPath: credsPath, Lookup: noEnv}); err == nil {
		t.Errorf("expected error exporting into existing directory")
	}
}

func TestDeterministic(t *testing.T) {
	srv := tests.NewFakeCATMAID(tests.SampleProject())
	defer srv.Close()

	dir := t.TempDir()
	cfgPath, credsPath := writeInputs(t, dir, srv.URL, tests.SampleToken)
	var outDirs []string
	for _, name := range []string{"first", "second"} {
		outDir := filepath.Join(dir, name, "export")
		_, err := FromConfig(context.Background(), Options{
			ConfigPath:      cfgPath,
			OutDir:          outDir,
			CredentialsPath: credsPath,
			Lookup:          noEnv,
			Progress:        io.Discard,
			Now:             func() time.Time { return exportTime },
		})
		if err != nil {
			t.Fatal(err)
		}
		outDirs = append(outDirs, outDir)
	}
	files, err := tests.ListFiles(outDirs[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, fname := range files {
		a := tests.ReadFile(filepath.Join(outDirs[0], fname))
		b := tests.ReadFile(filepath.Join(outDirs[1], fname))
		if a != b {
			t.Errorf("%s differs between exports", fname)
		}
	}

	var archives [][]byte
	for _, outDir := range outDirs {
		dst := outDir + ".tar.gz"
		if err := Archive(outDir, dst); err != nil {
			t.Fatal(err)
		}
		b, err := os.ReadFile(dst)
		if err != nil {
			t.Fatal(err)
		}
		archives = append(archives, b)
	}
	if !bytes.Equal(archives[0], archives[1]) {
		t.Errorf("archives of identical exports differ")
	}

	zr, err := gzip.NewReader(bytes.NewReader(archives[0]))
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(zr)
	var names []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if hdr.ModTime.Unix() != 0 {
			t.Errorf("entry %s has modification time %s", hdr.Name, hdr.ModTime)
		}
		if hdr.Typeflag == tar.TypeReg {
			names = append(names, strings.TrimPrefix(hdr.Name, "export/"))
		}
	}
	if !reflect.DeepEqual(names, files) {
		t.Errorf("archive holds %v, expected %v", names, files)
	}

	if err := Archive(filepath.Join(dir, "missing"), filepath.Join(dir, "missing.tar.gz")); err == nil {
		t.Errorf("expected error archiving a missing directory")
	}
}

func TestBadCredentials(t *testing.T) {
	srv := tests.NewFakeCATMAID(tests.SampleProject())
	defer srv.Close()

	dir := t.TempDir()
	cfgPath, credsPath := writeInputs(t, dir, srv.URL, "wrong-token")
	_, err := FromConfig(context.Background(), Options{
		ConfigPath:      cfgPath,
		OutDir:          filepath.Join(dir, "export"),
		CredentialsPath: credsPath,
		Lookup:          noEnv,
	})
	var apiErr *catmaid.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 403 {
		t.Errorf("expected permission error, got %v", err)
	}
}

func TestReadme(t *testing.T) {
	res := &Result{
		Metadata: catpub.Metadata{
			Version:    "1.2.3",
			Timestamp:  "2024-01-01 00:00Z",
			ConfigHash: "abc",
			Units:      "um",
			Citation:   catpub.Citation{BibLaTeX: "@article{x}"},
		},
		Neurons: 3,
	}
	expected := "# README\n\n" +
		"This dataset was generated using `catpub v1.2.3` at `2024-01-01 00:00Z` from a config file with hash `abc`.\n\n" +
		"This data can be cited with the below BibLaTeX snippet:\n\n```biblatex\n@article{x}\n```\n\n" +
		"Data and additional information can be found in the following directories:\n" +
		"- `neurons`\n\n" +
		"Spatial data are in `um`.\n"
	if got := Readme(res); got != expected {
		t.Errorf("unexpected README:\n%s", got)
	}

	res.Metadata.Citation = catpub.Citation{}
	if got := Readme(res); strings.Contains(got, "cite") || strings.Contains(got, "\n\n\n") {
		t.Errorf("unexpected README without citation:\n%s", got)
	}
}

func TestArchivePath(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "export")
	if err := os.MkdirAll(filepath.Join(outDir, "volumes"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "README.md"), []byte("# README\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tcs := []struct {
		dir      string
		expected string
	}{
		{outDir, outDir + ".tar.gz"},
		{outDir + string(filepath.Separator), outDir + ".tar.gz"},
		{filepath.Join(outDir, "volumes", ".."), outDir + ".tar.gz"},
	}
	for i, tc := range tcs {
		if got := ArchivePath(tc.dir); got != tc.expected {
			t.Errorf("test %d: expected %s, got %s", i, tc.expected, got)
		}
	}

	dst := ArchivePath(outDir + string(filepath.Separator))
	if err := Archive(outDir+string(filepath.Separator), dst); err != nil {
		t.Fatal(err)
	}
	files, err := tests.ListFiles(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(files, []string{"README.md"}) {
		t.Errorf("export changed by archiving: %v", files)
	}

	for _, inside := range []string{
		filepath.Join(outDir, ".tar.gz"),
		filepath.Join(outDir, "volumes", "x.tar.gz"),
	} {
		if err := Archive(outDir, inside); err == nil {
			t.Errorf("expected error writing archive %s inside the export", inside)
		}
		if catpub.IsFile(inside) {
			t.Errorf("archive %s was created inside the export", inside)
		}
	}
}
