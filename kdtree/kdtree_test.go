package kdtree

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestNearestEmptyTree(t *testing.T) {
	tr := New(nil)
	_, _, ok := tr.Nearest(r3.Vector{})
	test.That(t, ok, test.ShouldBeFalse)
}

func TestNearestFindsClosestPoint(t *testing.T) {
	pts := []r3.Vector{
		{X: 0, Y: 0, Z: 0},
		{X: 10, Y: 0, Z: 0},
		{X: 5, Y: 5, Z: 0},
		{X: 1, Y: 1, Z: 1},
	}
	tr := New(pts)
	test.That(t, tr.Len(), test.ShouldEqual, len(pts))

	idx, sqDist, ok := tr.Nearest(r3.Vector{X: 1.1, Y: 0.9, Z: 0.9})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, idx, test.ShouldEqual, 3)
	test.That(t, sqDist, test.ShouldBeLessThan, 1.0)
}

func TestPointsReturnsBackingSliceUnpermuted(t *testing.T) {
	pts := []r3.Vector{{X: 3}, {X: 1}, {X: 2}}
	tr := New(pts)
	got := tr.Points()
	test.That(t, len(got), test.ShouldEqual, 3)
	test.That(t, got[0], test.ShouldResemble, pts[0])
	test.That(t, got[1], test.ShouldResemble, pts[1])
	test.That(t, got[2], test.ShouldResemble, pts[2])
}

func TestNearestOnSinglePoint(t *testing.T) {
	pts := []r3.Vector{{X: 42, Y: -7, Z: 3}}
	tr := New(pts)
	idx, sqDist, ok := tr.Nearest(r3.Vector{X: 42, Y: -7, Z: 3})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, idx, test.ShouldEqual, 0)
	test.That(t, sqDist, test.ShouldEqual, 0)
}
