package associator

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/viamlidar/lidarodometry/kdtree"
	"github.com/viamlidar/lidarodometry/motion"
	"github.com/viamlidar/lidarodometry/pointcloud"
)

// nearestFeatureSearchRingGap bounds how far a second/third neighbor's ring
// id may drift from the closest point's ring id before the forward/backward
// scan gives up on that side.
const nearestFeatureSearchRingGap = 2.5

// pointMatch is the nearest/second-nearest (corner) or
// nearest/same-band/other-band (surf) index triple found for one feature
// point, persisted across the iterations between kd-tree refreshes.
type pointMatch struct {
	ind1, ind2, ind3 int
}

// residual is one edge or plane constraint: the untransformed source point
// (the Jacobian is linearized around it) plus the line/plane coefficient
// vector and signed distance the solve step consumes directly.
type residual struct {
	pointOri r3.Vector
	coeff    r3.Vector
	d2       float64
}

// relTimeOf recovers the fractional position of p through its sweep from
// the ringID+scanPeriod*relTime encoding deskew.go wrote into its
// intensity.
func relTimeOf(p pointcloud.Point, scanPeriod float64) float64 {
	frac := p.Intensity - math.Trunc(p.Intensity)
	return frac / scanPeriod
}

func sqDist3(a, b r3.Vector) float64 {
	return a.Sub(b).Norm2()
}

// findCornerCorrespondences transforms each sharp point into the sweep-start
// frame via cur and, every 5th iteration, refreshes its match against
// cornerLast (indexed by tree); matches carry over between refreshes. The
// second-neighbor scan walks the full cornerLast backing slice rather than
// the sharp cloud's length — the bound the forward/backward scan needs to
// terminate correctly, since cornerLast and the sharp cloud are unrelated
// sizes.
func findCornerCorrespondences(
	sharp pointcloud.Cloud,
	cornerLast pointcloud.Cloud,
	tree *kdtree.Tree,
	cur motion.Transform6,
	iterCount int,
	scanPeriod, maxSqDist float64,
	matches []pointMatch,
) []residual {
	var out []residual

	for i, p := range sharp {
		relTime := relTimeOf(p, scanPeriod)
		sel := motion.TransformToStart(motion.Point3{X: p.Position.X, Y: p.Position.Y, Z: p.Position.Z}, relTime, cur)
		selVec := r3.Vector{X: sel.X, Y: sel.Y, Z: sel.Z}

		if iterCount%5 == 0 {
			matches[i] = searchCorner(selVec, cornerLast, tree, maxSqDist)
		}
		m := matches[i]
		if m.ind2 < 0 {
			continue
		}

		res, ok := edgeResidual(selVec, cornerLast[m.ind1].Position, cornerLast[m.ind2].Position, iterCount)
		if !ok {
			continue
		}
		res.pointOri = p.Position
		out = append(out, res)
	}

	return out
}

func searchCorner(sel r3.Vector, last pointcloud.Cloud, tree *kdtree.Tree, maxSqDist float64) pointMatch {
	idx, sqDist, ok := tree.Nearest(sel)
	if !ok || sqDist >= maxSqDist {
		return pointMatch{ind1: -1, ind2: -1, ind3: -1}
	}

	closestRing := last[idx].Ring()
	minSqDist2 := maxSqDist
	ind2 := -1

	for j := idx + 1; j < len(last); j++ {
		ring := last[j].Ring()
		if float64(ring) > float64(closestRing)+nearestFeatureSearchRingGap {
			break
		}
		if ring > closestRing {
			if d := sqDist3(last[j].Position, sel); d < minSqDist2 {
				minSqDist2, ind2 = d, j
			}
		}
	}
	for j := idx - 1; j >= 0; j-- {
		ring := last[j].Ring()
		if float64(ring) < float64(closestRing)-nearestFeatureSearchRingGap {
			break
		}
		if ring < closestRing {
			if d := sqDist3(last[j].Position, sel); d < minSqDist2 {
				minSqDist2, ind2 = d, j
			}
		}
	}

	return pointMatch{ind1: idx, ind2: ind2, ind3: -1}
}

// edgeResidual builds the line-through-tripod1-tripod2 coefficients (la, lb,
// lc) and signed distance ld2 for sel, applying the robust weight that
// ramps in after the 5th iteration and dropping the constraint entirely
// when the weight collapses or the line is degenerate.
func edgeResidual(sel, t1, t2 r3.Vector, iterCount int) (residual, bool) {
	m11 := (sel.X-t1.X)*(sel.Y-t2.Y) - (sel.X-t2.X)*(sel.Y-t1.Y)
	m22 := (sel.X-t1.X)*(sel.Z-t2.Z) - (sel.X-t2.X)*(sel.Z-t1.Z)
	m33 := (sel.Y-t1.Y)*(sel.Z-t2.Z) - (sel.Y-t2.Y)*(sel.Z-t1.Z)

	a012 := math.Sqrt(m11*m11 + m22*m22 + m33*m33)
	l12 := t1.Sub(t2).Norm()
	if a012 == 0 || l12 == 0 {
		return residual{}, false
	}

	la := ((t1.Y-t2.Y)*m11 + (t1.Z-t2.Z)*m22) / a012 / l12
	lb := -((t1.X-t2.X)*m11 - (t1.Z-t2.Z)*m33) / a012 / l12
	lc := -((t1.X-t2.X)*m22 + (t1.Y-t2.Y)*m33) / a012 / l12
	ld2 := a012 / l12

	s := 1.0
	if iterCount >= 5 {
		s = 1 - 1.8*math.Abs(ld2)
	}
	if s <= 0.1 || ld2 == 0 {
		return residual{}, false
	}

	return residual{coeff: r3.Vector{X: s * la, Y: s * lb, Z: s * lc}, d2: s * ld2}, true
}

// findSurfCorrespondences is findCornerCorrespondences' plane-feature
// counterpart: every 5th iteration it finds a nearest neighbor plus one
// same-ring neighbor and one neighbor on a different ring (higher when
// scanning forward, lower when scanning backward) in surfLast, and on every
// iteration builds a plane residual from the persisted triple.
func findSurfCorrespondences(
	flat pointcloud.Cloud,
	surfLast pointcloud.Cloud,
	tree *kdtree.Tree,
	cur motion.Transform6,
	iterCount int,
	scanPeriod, maxSqDist float64,
	matches []pointMatch,
) []residual {
	var out []residual

	for i, p := range flat {
		relTime := relTimeOf(p, scanPeriod)
		sel := motion.TransformToStart(motion.Point3{X: p.Position.X, Y: p.Position.Y, Z: p.Position.Z}, relTime, cur)
		selVec := r3.Vector{X: sel.X, Y: sel.Y, Z: sel.Z}

		if iterCount%5 == 0 {
			matches[i] = searchSurf(selVec, surfLast, tree, maxSqDist)
		}
		m := matches[i]
		if m.ind2 < 0 || m.ind3 < 0 {
			continue
		}

		res, ok := planeResidual(selVec, surfLast[m.ind1].Position, surfLast[m.ind2].Position, surfLast[m.ind3].Position, iterCount)
		if !ok {
			continue
		}
		res.pointOri = p.Position
		out = append(out, res)
	}

	return out
}

func searchSurf(sel r3.Vector, last pointcloud.Cloud, tree *kdtree.Tree, maxSqDist float64) pointMatch {
	idx, sqDist, ok := tree.Nearest(sel)
	if !ok || sqDist >= maxSqDist {
		return pointMatch{ind1: -1, ind2: -1, ind3: -1}
	}

	closestRing := last[idx].Ring()
	minSqDist2, minSqDist3 := maxSqDist, maxSqDist
	ind2, ind3 := -1, -1

	for j := idx + 1; j < len(last); j++ {
		ring := last[j].Ring()
		if float64(ring) > float64(closestRing)+nearestFeatureSearchRingGap {
			break
		}
		d := sqDist3(last[j].Position, sel)
		if ring <= closestRing {
			if d < minSqDist2 {
				minSqDist2, ind2 = d, j
			}
		} else if d < minSqDist3 {
			minSqDist3, ind3 = d, j
		}
	}
	for j := idx - 1; j >= 0; j-- {
		ring := last[j].Ring()
		if float64(ring) < float64(closestRing)-nearestFeatureSearchRingGap {
			break
		}
		d := sqDist3(last[j].Position, sel)
		if ring >= closestRing {
			if d < minSqDist2 {
				minSqDist2, ind2 = d, j
			}
		} else if d < minSqDist3 {
			minSqDist3, ind3 = d, j
		}
	}

	return pointMatch{ind1: idx, ind2: ind2, ind3: ind3}
}

// planeResidual builds the normalized plane coefficients (pa, pb, pc, pd)
// through tripod1/2/3 and sel's signed distance to it, with the same
// robust-weight ramp and drop rule as edgeResidual.
func planeResidual(sel, t1, t2, t3 r3.Vector, iterCount int) (residual, bool) {
	pa := (t2.Y-t1.Y)*(t3.Z-t1.Z) - (t3.Y-t1.Y)*(t2.Z-t1.Z)
	pb := (t2.Z-t1.Z)*(t3.X-t1.X) - (t3.Z-t1.Z)*(t2.X-t1.X)
	pc := (t2.X-t1.X)*(t3.Y-t1.Y) - (t3.X-t1.X)*(t2.Y-t1.Y)
	pd := -(pa*t1.X + pb*t1.Y + pc*t1.Z)

	ps := math.Sqrt(pa*pa + pb*pb + pc*pc)
	if ps == 0 {
		return residual{}, false
	}
	pa, pb, pc, pd = pa/ps, pb/ps, pc/ps, pd/ps

	pd2 := pa*sel.X + pb*sel.Y + pc*sel.Z + pd

	s := 1.0
	if iterCount >= 5 {
		s = 1 - 1.8*math.Abs(pd2)/math.Sqrt(math.Sqrt(sel.X*sel.X+sel.Y*sel.Y+sel.Z*sel.Z))
	}
	if s <= 0.1 || pd2 == 0 {
		return residual{}, false
	}

	return residual{coeff: r3.Vector{X: s * pa, Y: s * pb, Z: s * pc}, d2: s * pd2}, true
}
