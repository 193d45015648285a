// Package geom provides the small integer geometry types shared by every
// tile-synthesis component: Size, Point, and Region.
package geom

// Size is a non-negative (width, height) pair measured in pixels, tiles,
// or strips depending on context.
type Size struct {
	W, H int
}

// IsZero reports whether the size is 0x0.
func (s Size) IsZero() bool {
	return s.W == 0 && s.H == 0
}

// Area returns W*H.
func (s Size) Area() int {
	return s.W * s.H
}

// CeilDiv divides s by other, rounding each dimension up. other's
// dimensions must be positive.
func (s Size) CeilDiv(other Size) Size {
	return Size{
		W: ceilDiv(s.W, other.W),
		H: ceilDiv(s.H, other.H),
	}
}

// Div divides s by other with integer truncation (floor division). other's
// dimensions must be positive.
func (s Size) Div(other Size) Size {
	return Size{W: s.W / other.W, H: s.H / other.H}
}

// Mul multiplies s component-wise by other.
func (s Size) Mul(other Size) Size {
	return Size{W: s.W * other.W, H: s.H * other.H}
}

// Max returns the component-wise maximum of s and other.
func (s Size) Max(other Size) Size {
	return Size{W: max(s.W, other.W), H: max(s.H, other.H)}
}

// Min returns the component-wise minimum of s and other.
func (s Size) Min(other Size) Size {
	return Size{W: min(s.W, other.W), H: min(s.H, other.H)}
}

// Add returns the component-wise sum of s and other.
func (s Size) Add(other Size) Size {
	return Size{W: s.W + other.W, H: s.H + other.H}
}

// Sub returns the component-wise difference of s and other.
func (s Size) Sub(other Size) Size {
	return Size{W: s.W - other.W, H: s.H - other.H}
}

// Eq reports whether s and other have identical dimensions.
func (s Size) Eq(other Size) bool {
	return s.W == other.W && s.H == other.H
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	if a <= 0 {
		return a / b
	}
	return (a + b - 1) / b
}
