package geom

// Point is an integer (x, y) coordinate.
type Point struct {
	X, Y int
}

// Add returns p+other.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Mul returns p scaled component-wise by s.
func (p Point) Mul(s Size) Point {
	return Point{X: p.X * s.W, Y: p.Y * s.H}
}

// DivSize divides p by s with truncation (floor division). s's dimensions
// must be positive.
func (p Point) DivSize(s Size) Point {
	return Point{X: p.X / s.W, Y: p.Y / s.H}
}

// Mod returns the component-wise remainder of p modulo s. s's dimensions
// must be positive.
func (p Point) Mod(s Size) Point {
	return Point{X: p.X % s.W, Y: p.Y % s.H}
}
