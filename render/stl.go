package render

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/spatial/r3"
)

// Binary STL layout: 80 byte header, little endian uint32 facet count, then
// 50 bytes per facet (normal, three vertices, attribute count).
const (
	sizeOfSTLHeader = 84
	stlTriangleSize = 50
	stlBatch        = 1 << 10 // facets encoded per write
)

// stlTitle fills the free-form header. It must not start with "solid" or
// readers sniff the file as ASCII STL.
var stlTitle = [80]byte{'s', 'h', 'a', 'p', 'e', 'r', ' ', 'b', 'i', 'n', 'a', 'r', 'y', ' ', 'S', 'T', 'L'}

// ErrNormalMismatch is returned when a stored facet normal disagrees with
// the normal implied by the facet's vertices.
var ErrNormalMismatch = errors.New("facet normal does not match vertex winding")

// WriteSTL encodes model as binary STL.
func WriteSTL(w io.Writer, model []Triangle3) error {
	if len(model) == 0 {
		return errors.New("empty triangle slice")
	}
	if err := writeSTLHeader(w, len(model)); err != nil {
		return err
	}
	buf := make([]byte, 0, stlBatch*stlTriangleSize)
	for i, t := range model {
		buf = appendFacet(buf, t)
		if len(buf) == cap(buf) || i == len(model)-1 {
			if _, err := w.Write(buf); err != nil {
				return err
			}
			buf = buf[:0]
		}
	}
	return nil
}

// CreateSTL streams the triangles of r to a binary STL file at path. The
// facet count is patched into the header once r is exhausted.
func CreateSTL(path string, r Renderer) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Seek(sizeOfSTLHeader, io.SeekStart); err != nil {
		return err
	}
	bw := bufio.NewWriterSize(f, stlBatch*stlTriangleSize)
	var (
		tris  = make([]Triangle3, stlBatch)
		buf   = make([]byte, 0, stlBatch*stlTriangleSize)
		count int
	)
	for {
		n, rerr := r.ReadTriangles(tris)
		buf = buf[:0]
		for _, t := range tris[:n] {
			buf = appendFacet(buf, t)
		}
		if _, err := bw.Write(buf); err != nil {
			return err
		}
		count += n
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	if count == 0 {
		return errors.New("renderer produced no triangles")
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return writeSTLHeader(f, count)
}

// ReadSTL decodes a binary STL stream. Facets whose stored normal disagrees
// with their winding, reversed normals included, are kept and reported with
// an error wrapping ErrNormalMismatch.
func ReadSTL(r io.Reader) ([]Triangle3, error) {
	return readBinarySTL(r)
}

func readBinarySTL(r io.Reader) ([]Triangle3, error) {
	var head [sizeOfSTLHeader]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, fmt.Errorf("reading STL header: %w", err)
	}
	count := binary.LittleEndian.Uint32(head[80:])
	if count == 0 {
		return nil, errors.New("STL header declares no facets")
	}
	br := bufio.NewReader(r)
	out := make([]Triangle3, 0, count)
	var (
		b          [stlTriangleSize]byte
		mismatched int
	)
	for i := 0; i < int(count); i++ {
		if _, err := io.ReadFull(br, b[:]); err != nil {
			return nil, fmt.Errorf("facet %d of %d: %w", i+1, count, err)
		}
		normal, t := decodeFacet(b[:])
		switch err := checkFacet(normal, t); {
		case errors.Is(err, ErrNormalMismatch):
			mismatched++
		case err != nil:
			return nil, fmt.Errorf("facet %d of %d: %w", i+1, count, err)
		}
		out = append(out, t)
	}
	if mismatched > 0 {
		return out, fmt.Errorf("%d of %d facets: %w", mismatched, count, ErrNormalMismatch)
	}
	return out, nil
}

func writeSTLHeader(w io.Writer, count int) error {
	if count > math.MaxUint32 {
		return fmt.Errorf("%d facets exceed the STL count field", count)
	}
	var head [sizeOfSTLHeader]byte
	copy(head[:80], stlTitle[:])
	binary.LittleEndian.PutUint32(head[80:], uint32(count))
	_, err := w.Write(head[:])
	return err
}

func appendFacet(b []byte, t Triangle3) []byte {
	b = appendVec(b, t.Normal())
	for _, v := range t.V {
		b = appendVec(b, v)
	}
	return binary.LittleEndian.AppendUint16(b, 0)
}

func appendVec(b []byte, v r3.Vec) []byte {
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(float32(v.X)))
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(float32(v.Y)))
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(float32(v.Z)))
}

// facet32 holds one facet at file precision.
type facet32 [4][3]float32 // normal, then vertices

func decodeFacet(b []byte) (facet32, Triangle3) {
	var f facet32
	for i := range f {
		for j := range f[i] {
			f[i][j] = math.Float32frombits(binary.LittleEndian.Uint32(b[12*i+4*j:]))
		}
	}
	var t Triangle3
	for i := range t.V {
		v := f[i+1]
		t.V[i] = r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
	}
	return f, t
}

func checkFacet(f facet32, t Triangle3) error {
	const normalTol = 5e-2
	for i, v := range f {
		for _, c := range v {
			if math32.IsNaN(c) || math32.IsInf(c, 0) {
				if i == 0 {
					return errors.New("non-finite facet normal")
				}
				return errors.New("non-finite facet vertex")
			}
		}
	}
	if t.V[0] == t.V[1] || t.V[1] == t.V[2] || t.V[2] == t.V[0] {
		return errors.New("facet has coincident vertices")
	}
	n := t.Normal()
	calc := [3]float32{float32(n.X), float32(n.Y), float32(n.Z)}
	if !near32(calc, f[0], normalTol) {
		return ErrNormalMismatch
	}
	return nil
}

// near32 compares a with b componentwise. A reversed normal is a mismatch.
func near32(a, b [3]float32, tol float32) bool {
	for i := range a {
		if math32.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}
