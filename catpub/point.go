package catpub

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Vector3d is a 3D vector of 64-bit floats, used for node, connector, landmark
// and mesh vertex coordinates.
type Vector3d [3]float64

func StringToVector3d(str, separator string) (Vector3d, error) {
	elems := strings.Split(str, separator)
	if len(elems) != 3 {
		return Vector3d{}, fmt.Errorf("can't convert string '%s' (length %d) to Vector3d", str, len(elems))
	}
	var v Vector3d
	var err error
	for i, elem := range elems {
		v[i], err = strconv.ParseFloat(strings.TrimSpace(elem), 64)
		if err != nil {
			return Vector3d{}, err
		}
	}
	return v, nil
}

// Distance returns the distance between two points a and b.
func (v Vector3d) Distance(x Vector3d) float64 {
	dx := x[0] - v[0]
	dy := x[1] - v[1]
	dz := x[2] - v[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (v Vector3d) Subtract(x Vector3d) Vector3d {
	return Vector3d{v[0] - x[0], v[1] - x[1], v[2] - x[2]}
}

func (v Vector3d) Add(x Vector3d) Vector3d {
	return Vector3d{v[0] + x[0], v[1] + x[1], v[2] + x[2]}
}

func (v Vector3d) DivideScalar(x float64) Vector3d {
	return Vector3d{v[0] / x, v[1] / x, v[2] / x}
}

// Cross returns the cross product v × x.
func (v Vector3d) Cross(x Vector3d) Vector3d {
	return Vector3d{
		v[1]*x[2] - v[2]*x[1],
		v[2]*x[0] - v[0]*x[2],
		v[0]*x[1] - v[1]*x[0],
	}
}

// Norm returns the length of the vector.
func (v Vector3d) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Normalize returns a unit vector in the direction of v, or the zero vector
// if v has no length.
func (v Vector3d) Normalize() Vector3d {
	n := v.Norm()
	if n == 0 {
		return Vector3d{}
	}
	return v.DivideScalar(n)
}

func (v *Vector3d) Increment(x Vector3d) {
	(*v)[0] += x[0]
	(*v)[1] += x[1]
	(*v)[2] += x[2]
}

func (v Vector3d) String() string {
	return fmt.Sprintf("(%s,%s,%s)", FormatDecimal(v[0]), FormatDecimal(v[1]), FormatDecimal(v[2]))
}

// MarshalJSON writes the vector as an array of decimals formatted by FormatDecimal.
func (v Vector3d) MarshalJSON() ([]byte, error) {
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("cannot encode %v as JSON", v)
		}
	}
	return []byte("[" + FormatDecimal(v[0]) + ", " + FormatDecimal(v[1]) + ", " + FormatDecimal(v[2]) + "]"), nil
}
