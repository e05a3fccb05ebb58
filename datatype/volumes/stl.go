package volumes

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/janelia-flyem/catpub/catpub"
)

// faceNormal is the unit normal of a triangle by the right-hand rule, or zero
// for a degenerate triangle.
func faceNormal(a, b, c catpub.Vector3d) catpub.Vector3d {
	return b.Subtract(a).Cross(c.Subtract(a)).Normalize()
}

func stlVector(v catpub.Vector3d) string {
	return catpub.FormatDecimal(v[0]) + " " + catpub.FormatDecimal(v[1]) + " " + catpub.FormatDecimal(v[2])
}

// EncodeSTL writes the mesh in ASCII STL format.
func EncodeSTL(w io.Writer, vol *Volume) error {
	bw := bufio.NewWriter(w)
	solid := fmt.Sprintf("volume_%d", vol.ID)
	fmt.Fprintf(bw, "solid %s\n", solid)
	for i, f := range vol.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(vol.Vertices) {
				return fmt.Errorf("face %d has vertex index %d out of range", i, idx)
			}
		}
		a, b, c := vol.Vertices[f[0]], vol.Vertices[f[1]], vol.Vertices[f[2]]
		fmt.Fprintf(bw, "  facet normal %s\n", stlVector(faceNormal(a, b, c)))
		fmt.Fprintf(bw, "    outer loop\n")
		for _, v := range []catpub.Vector3d{a, b, c} {
			fmt.Fprintf(bw, "      vertex %s\n", stlVector(v))
		}
		fmt.Fprintf(bw, "    endloop\n")
		fmt.Fprintf(bw, "  endfacet\n")
	}
	fmt.Fprintf(bw, "endsolid %s\n", solid)
	return bw.Flush()
}

func writeSTL(path string, vol *Volume) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeSTL(f, vol); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// DecodeSTL reads an ASCII STL mesh.  Identical vertices are merged so faces
// index a shared vertex list, in order of first appearance.
func DecodeSTL(r io.Reader) ([]catpub.Vector3d, [][3]int, error) {
	var vertices []catpub.Vector3d
	var faces [][3]int
	index := make(map[catpub.Vector3d]int)

	var face [3]int
	var inFacet bool
	var corner int
	scanner := bufio.NewScanner(r)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "solid", "endsolid", "outer", "endloop":
		case "facet":
			if inFacet {
				return nil, nil, fmt.Errorf("line %d: facet inside facet", lineNum)
			}
			inFacet, corner = true, 0
		case "endfacet":
			if !inFacet || corner != 3 {
				return nil, nil, fmt.Errorf("line %d: facet ended with %d vertices", lineNum, corner)
			}
			faces = append(faces, face)
			inFacet = false
		case "vertex":
			if !inFacet || corner >= 3 {
				return nil, nil, fmt.Errorf("line %d: unexpected vertex", lineNum)
			}
			if len(fields) != 4 {
				return nil, nil, fmt.Errorf("line %d: vertex needs 3 coordinates", lineNum)
			}
			var v catpub.Vector3d
			for i := 0; i < 3; i++ {
				f, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, nil, fmt.Errorf("line %d: %w", lineNum, err)
				}
				v[i] = f
			}
			idx, found := index[v]
			if !found {
				idx = len(vertices)
				index[v] = idx
				vertices = append(vertices, v)
			}
			face[corner] = idx
			corner++
		default:
			return nil, nil, fmt.Errorf("line %d: unexpected %q", lineNum, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	if inFacet {
		return nil, nil, fmt.Errorf("unterminated facet")
	}
	return vertices, faces, nil
}

func writeTSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	return f.Close()
}
