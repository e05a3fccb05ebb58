package publish

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/janelia-flyem/catpub/catpub"
	"github.com/klauspost/compress/gzip"
)

// Archive writes the export in dir to dst as a gzip-compressed tarball.  Entries
// are sorted by path under the base name of dir, and carry zeroed modification
// times and ownership so the same export always gives the same archive.
func Archive(dir, dst string) error {
	if !catpub.IsDir(dir) {
		return fmt.Errorf("%q is not a directory", dir)
	}
	inside, err := within(dst, dir)
	if err != nil {
		return err
	}
	if inside {
		return fmt.Errorf("archive %q cannot be written inside %q", dst, dir)
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := writeArchive(f, dir); err != nil {
		f.Close()
		os.Remove(dst)
		return fmt.Errorf("could not archive %s: %w", dir, err)
	}
	return f.Close()
}

// ArchivePath returns the default archive path for an export: the directory
// name with a ".tar.gz" suffix, next to the directory.
func ArchivePath(dir string) string {
	return filepath.Clean(dir) + ".tar.gz"
}

// within returns true if path is dir or lies below it.
func within(path, dir string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false, nil
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))), nil
}

func writeArchive(w io.Writer, dir string) error {
	zw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(zw)
	base := filepath.Base(filepath.Clean(dir))
	epoch := time.Unix(0, 0)

	// Walk visits entries in lexical order.
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(filepath.Join(base, rel))
		hdr := &tar.Header{
			Name:    name,
			ModTime: epoch,
		}
		switch {
		case info.IsDir():
			hdr.Typeflag = tar.TypeDir
			hdr.Name += "/"
			hdr.Mode = 0755
		case info.Mode().IsRegular():
			hdr.Typeflag = tar.TypeReg
			hdr.Mode = 0644
			hdr.Size = info.Size()
		default:
			catpub.Warningf("Skipping %s in archive: not a regular file\n", path)
			return nil
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg {
			return nil
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})
	if err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return zw.Close()
}
