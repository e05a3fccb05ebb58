package catpub

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// FillIn returns a copy of the rename map where every given name that is not
// already a key maps to itself.
func FillIn(rename map[string]string, names []string) map[string]string {
	out := make(map[string]string, len(rename)+len(names))
	for k, v := range rename {
		out[k] = v
	}
	for _, name := range names {
		if _, found := out[name]; !found {
			out[name] = name
		}
	}
	return out
}

// SortedKeys returns the keys of a string-keyed map in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortInt64s sorts a slice of int64 in increasing order.
func SortInt64s(x []int64) {
	sort.Slice(x, func(i, j int) bool { return x[i] < x[j] })
}

// FormatDecimal formats a float so that the same value always gives the same
// text.  The shortest representation that round-trips is used, and integral
// values keep a trailing ".0" so columns read as decimals.
func FormatDecimal(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if f == math.Trunc(f) && !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseDecimal is the inverse of FormatDecimal.
func ParseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// MarshalJSON returns JSON with sorted keys, 2-space indentation and a trailing
// newline, the format of every JSON file in an export.
func MarshalJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON writes v to the given file path using MarshalJSON.
func WriteJSON(path string, v interface{}) error {
	b, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("unable to encode JSON for %s: %w", path, err)
	}
	return os.WriteFile(path, b, 0644)
}

// ReadJSON decodes the JSON file at path into v.
func ReadJSON(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("unable to decode JSON in %s: %w", path, err)
	}
	return nil
}

// IsDir returns true if path exists and is a directory.
func IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// IsFile returns true if path exists and is a regular file.
func IsFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// ConvertToAbsolute returns an absolute path, interpreting a relative path
// as relative to the given directory.
func ConvertToAbsolute(path, relativeTo string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Abs(filepath.Join(relativeTo, path))
}

// ErrNotFound is returned by readers when a requested object is not part of an export.
var ErrNotFound = errors.New("not found")
