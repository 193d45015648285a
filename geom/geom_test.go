package geom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSizeCeilDiv(t *testing.T) {
	require.Equal(t, Size{W: 3, H: 2}, Size{W: 512, H: 256}.CeilDiv(Size{W: 200, H: 128}))
	require.Equal(t, Size{W: 2, H: 1}, Size{W: 400, H: 128}.CeilDiv(Size{W: 200, H: 128}))
}

func TestSizeMaxMin(t *testing.T) {
	require.Equal(t, Size{W: 512, H: 512}, Size{W: 512, H: 256}.Max(Size{W: 256, H: 512}))
	require.Equal(t, Size{W: 256, H: 256}, Size{W: 512, H: 256}.Min(Size{W: 256, H: 512}))
}

func TestPointDivModRoundTrip(t *testing.T) {
	tileSize := Size{W: 200, H: 128}
	p := Point{X: 513, Y: 260}
	q := p.DivSize(tileSize)
	r := p.Mod(tileSize)
	require.Equal(t, Point{X: 2, Y: 2}, q)
	require.Equal(t, Point{X: 113, Y: 4}, r)
	require.Equal(t, p, q.Mul(tileSize).Add(r))
}

func TestRegionPointsOrder(t *testing.T) {
	r := NewRegion(1, 1, 2, 2)
	var got []Point
	r.Points(func(p Point) bool {
		got = append(got, p)
		return true
	})
	require.Equal(t, []Point{{1, 1}, {2, 1}, {1, 2}, {2, 2}}, got)
}

func TestRegionIntersect(t *testing.T) {
	a := NewRegion(0, 0, 10, 10)
	b := NewRegion(5, 5, 10, 10)
	require.Equal(t, NewRegion(5, 5, 5, 5), a.Intersect(b))

	c := NewRegion(20, 20, 5, 5)
	require.True(t, a.Intersect(c).Size.IsZero())
}
