package geom

// Region is a rectangle of integer points: Origin plus Size, both inclusive
// of Origin and exclusive of Origin+Size (half-open, like image.Rectangle).
type Region struct {
	Origin Point
	Size   Size
}

// NewRegion builds a Region from explicit coordinates.
func NewRegion(x, y, w, h int) Region {
	return Region{Origin: Point{X: x, Y: y}, Size: Size{W: w, H: h}}
}

// Right is the exclusive x bound.
func (r Region) Right() int { return r.Origin.X + r.Size.W }

// Bottom is the exclusive y bound.
func (r Region) Bottom() int { return r.Origin.Y + r.Size.H }

// Contains reports whether p lies within the region.
func (r Region) Contains(p Point) bool {
	return p.X >= r.Origin.X && p.X < r.Right() &&
		p.Y >= r.Origin.Y && p.Y < r.Bottom()
}

// Points iterates every integer point contained in the region, row-major
// (y outer, x inner), calling fn for each until fn returns false.
func (r Region) Points(fn func(Point) bool) {
	for y := r.Origin.Y; y < r.Bottom(); y++ {
		for x := r.Origin.X; x < r.Right(); x++ {
			if !fn(Point{X: x, Y: y}) {
				return
			}
		}
	}
}

// Intersect returns the overlap of r and other. The result has zero Size
// if the regions don't overlap.
func (r Region) Intersect(other Region) Region {
	x0 := max(r.Origin.X, other.Origin.X)
	y0 := max(r.Origin.Y, other.Origin.Y)
	x1 := min(r.Right(), other.Right())
	y1 := min(r.Bottom(), other.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return Region{}
	}
	return NewRegion(x0, y0, x1-x0, y1-y0)
}
