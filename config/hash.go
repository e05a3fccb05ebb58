package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// HashTOML returns a hex digest of the decoded TOML document at fpath.  Tables
// are hashed with sorted keys and arrays with sorted elements, so formatting,
// comments, and the order of keys or array items do not change the hash.
func HashTOML(fpath string) (string, error) {
	var doc map[string]interface{}
	if _, err := toml.DecodeFile(fpath, &doc); err != nil {
		return "", fmt.Errorf("could not decode TOML %q for hashing: %w", fpath, err)
	}
	return HashDocument(doc), nil
}

// HashDocument returns the digest HashTOML would give for an already decoded document.
func HashDocument(doc map[string]interface{}) string {
	var buf bytes.Buffer
	writeCanonical(&buf, doc)
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

func writeCanonical(buf *bytes.Buffer, v interface{}) {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i != 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			writeCanonical(buf, t[k])
		}
		buf.WriteByte('}')
	case []map[string]interface{}:
		elems := make([]interface{}, len(t))
		for i := range t {
			elems[i] = t[i]
		}
		writeCanonicalArray(buf, elems)
	case []interface{}:
		writeCanonicalArray(buf, t)
	case string:
		writeString(buf, t)
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case int64:
		buf.WriteString(strconv.FormatInt(t, 10))
	case float64:
		buf.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	case time.Time:
		writeString(buf, t.Format(time.RFC3339Nano))
	default:
		writeString(buf, fmt.Sprintf("%v", t))
	}
}

func writeCanonicalArray(buf *bytes.Buffer, elems []interface{}) {
	encoded := make([]string, len(elems))
	for i, elem := range elems {
		var eb bytes.Buffer
		writeCanonical(&eb, elem)
		encoded[i] = eb.String()
	}
	sort.Strings(encoded)
	buf.WriteByte('[')
	for i, e := range encoded {
		if i != 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(e)
	}
	buf.WriteByte(']')
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}
