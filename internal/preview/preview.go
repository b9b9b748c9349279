// Package preview renders meshes to shaded PNG images for inspection.
package preview

import (
	"errors"
	"image"
	"image/png"
	"io"

	"github.com/fogleman/fauxgl"
	"github.com/megashaper/shaper/internal/d3"
	"github.com/megashaper/shaper/render"
	"github.com/nfnt/resize"
	"gonum.org/v1/gonum/spatial/r3"
)

// View places the camera around a mesh fitted in the bi-unit cube.
type View struct {
	LookAt r3.Vec // point to look at
	Up     r3.Vec // which way is up
	Eye    r3.Vec // camera position
	Near   float64
	Far    float64
}

// IsoView looks at the rim from above its hub side.
var IsoView = View{
	Up:   r3.Vec{Z: 1},
	Eye:  d3.Elem(2.4),
	Near: 1,
	Far:  10,
}

// Options sizes the image.
type Options struct {
	Width, Height int
	// Supersample renders this many times larger and downsamples for
	// antialiasing.
	Supersample int
	View        View
}

// DefaultOptions renders a 768x432 iso view.
func DefaultOptions() Options {
	return Options{Width: 768, Height: 432, Supersample: 2, View: IsoView}
}

// Render draws tris shaded on a light background.
func Render(tris []render.Triangle3, opt Options) (image.Image, error) {
	if len(tris) == 0 {
		return nil, errors.New("preview: empty mesh")
	}
	ft := make([]*fauxgl.Triangle, len(tris))
	for i, t := range tris {
		ft[i] = fauxgl.NewTriangleForPoints(vec(t.V[0]), vec(t.V[1]), vec(t.V[2]))
	}
	return draw(fauxgl.NewTriangleMesh(ft), opt)
}

// RenderSTLFile renders the binary STL at stlPath into a PNG at pngPath.
func RenderSTLFile(stlPath, pngPath string, opt Options) error {
	mesh, err := fauxgl.LoadSTL(stlPath)
	if err != nil {
		return err
	}
	img, err := draw(mesh, opt)
	if err != nil {
		return err
	}
	return fauxgl.SavePNG(pngPath, img)
}

// WritePNG encodes img to w.
func WritePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func draw(mesh *fauxgl.Mesh, opt Options) (image.Image, error) {
	if opt.Width <= 0 || opt.Height <= 0 {
		return nil, errors.New("preview: non-positive image size")
	}
	scale := max(opt.Supersample, 1)
	v := opt.View
	if v.Far <= v.Near {
		v = IsoView
	}
	const fovy = 30 // vertical field of view in degrees
	var (
		eye    = vec(v.Eye)
		center = vec(v.LookAt)
		up     = vec(v.Up)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
		color  = fauxgl.HexColor("#468966")
	)
	mesh.BiUnitCube()
	ctx := fauxgl.NewContext(opt.Width*scale, opt.Height*scale)
	ctx.ClearColorBufferWith(fauxgl.HexColor("#FFF8E3"))
	aspect := float64(opt.Width) / float64(opt.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, v.Near, v.Far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = color
	ctx.Shader = shader
	ctx.DrawMesh(mesh)
	img := ctx.Image()
	if scale > 1 {
		img = resize.Resize(uint(opt.Width), uint(opt.Height), img, resize.Bilinear)
	}
	return img, nil
}

func vec(v r3.Vec) fauxgl.Vector { return fauxgl.V(v.X, v.Y, v.Z) }
