package pointcloud

import (
	"github.com/golang/geo/r3"
)

// Point is a single LiDAR return: a 3-D position plus an intensity field.
//
// Intensity starts out as sensor reflectance but is repurposed by the
// pipeline: after range-image projection it holds row+col/10000 (ring id and
// fractional column id), and after de-skew it holds ring id plus the point's
// relative timestamp within the sweep, in seconds.
type Point struct {
	Position  r3.Vector
	Intensity float64
}

// NewPoint returns a Point at the given position with the given intensity.
func NewPoint(x, y, z, intensity float64) Point {
	return Point{Position: r3.Vector{X: x, Y: y, Z: z}, Intensity: intensity}
}

// Range returns the point's Euclidean distance from the origin.
func (p Point) Range() float64 {
	return p.Position.Norm()
}

// Ring returns the integer ring id encoded in Intensity.
func (p Point) Ring() int {
	return int(p.Intensity)
}

// Cloud is an ordered, indexable collection of points.
//
// Unlike the teacher's PointCloud interface (a hash-set keyed by position,
// built for random access and dedup), the odometry core needs ordered,
// index-addressable arrays: the segmented cloud is built ring-by-ring with
// index bookkeeping (SegInfo.startRingIndex/endRingIndex), and feature
// extraction walks fixed index windows around each point. A slice is the
// idiomatic fit for that access pattern.
type Cloud []Point

// Len, Less and Swap let a Cloud be sorted directly, matching the teacher's
// Vectors sort-adapter over r3.Vector.
func (c Cloud) Len() int      { return len(c) }
func (c Cloud) Swap(i, j int) { c[i], c[j] = c[j], c[i] }

// Less orders by Intensity ascending; callers needing a different order
// (range, smoothness) should sort with sort.Slice directly instead of
// relying on this default.
func (c Cloud) Less(i, j int) bool { return c[i].Intensity < c[j].Intensity }

// Positions returns the raw r3.Vector positions, for callers (e.g. the
// k-d tree) that only need geometry.
func (c Cloud) Positions() []r3.Vector {
	out := make([]r3.Vector, len(c))
	for i, p := range c {
		out[i] = p.Position
	}
	return out
}
