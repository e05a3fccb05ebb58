/*
	The tests package provides a fake CATMAID server and sample project data for
	testing catpub packages.
*/
package tests

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/janelia-flyem/catpub/catpub"
)

func init() {
	catpub.SetLogMode(catpub.WarningMode)
}

// ListFiles returns the sorted slash-separated paths of all regular files under dir,
// relative to dir.
func ListFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(out)
	return out, err
}

// ReadFile returns the contents of a file as a string or panics.
func ReadFile(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	return string(b)
}
