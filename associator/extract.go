package associator

import (
	"math"
	"sort"

	"github.com/viamlidar/lidarodometry/pointcloud"
	"github.com/viamlidar/lidarodometry/rangeimage"
)

// extracted holds the four feature sets the per-sector quota pass produces:
// sharp and less-sharp edge points, flat ground points, and the
// voxel-downsampled remainder ("less flat").
type extracted struct {
	sharp, lessSharp, flat, lessFlat pointcloud.Cloud
}

// extract computes the local smoothness score, masks occluded/parallel-ray
// points, and runs the per-ring, per-sector quota pass described in the
// design, voxel-downsampling every non-corner point of each ring (flat
// picks included) at the configured leaf size before appending it to
// lessFlat.
func (a *Associator) extract(pts []scanPoint, info rangeimage.SegInfo) extracted {
	n := len(pts)
	curvature := make([]float64, n)
	neighborPicked := make([]bool, n)
	label := make([]int8, n)

	for i := 5; i < n-5; i++ {
		sum := 0.0
		for k := -5; k <= 5; k++ {
			if k == 0 {
				continue
			}
			sum += pts[i+k].Range
		}
		diff := sum - 10*pts[i].Range
		curvature[i] = diff * diff
	}

	for i := 5; i < n-6; i++ {
		depth1 := pts[i].Range
		depth2 := pts[i+1].Range
		colDiff := absInt(pts[i+1].Col - pts[i].Col)
		if colDiff < 10 {
			switch {
			case depth1-depth2 > 0.3:
				for k := i - 5; k <= i; k++ {
					neighborPicked[k] = true
				}
			case depth2-depth1 > 0.3:
				for k := i + 1; k <= i+6; k++ {
					neighborPicked[k] = true
				}
			}
		}

		diff1 := math.Abs(pts[i-1].Range - pts[i].Range)
		diff2 := math.Abs(pts[i+1].Range - pts[i].Range)
		if diff1 > 0.02*pts[i].Range && diff2 > 0.02*pts[i].Range {
			neighborPicked[i] = true
		}
	}

	var result extracted

	for ring := 0; ring < len(info.StartRingIndex); ring++ {
		start, end := info.StartRingIndex[ring], info.EndRingIndex[ring]
		if start > end || start < 0 || end >= n {
			continue
		}

		var lessFlatScan pointcloud.Cloud

		for sector := 0; sector < 6; sector++ {
			sp := (start*(6-sector) + end*sector) / 6
			ep := (start*(5-sector) + end*(sector+1))/6 - 1
			if sp >= ep {
				continue
			}

			order := make([]int, ep-sp+1)
			for i := range order {
				order[i] = sp + i
			}
			sort.Slice(order, func(x, y int) bool { return curvature[order[x]] < curvature[order[y]] })

			largestPicked := 0
			for k := len(order) - 1; k >= 0; k-- {
				ind := order[k]
				if neighborPicked[ind] || curvature[ind] <= a.cfg.EdgeThreshold || pts[ind].Ground {
					continue
				}
				largestPicked++
				if largestPicked > 20 {
					break
				}
				if largestPicked <= 2 {
					label[ind] = 2
					result.sharp = append(result.sharp, pts[ind].Point)
					result.lessSharp = append(result.lessSharp, pts[ind].Point)
				} else {
					label[ind] = 1
					result.lessSharp = append(result.lessSharp, pts[ind].Point)
				}
				markPicked(pts, neighborPicked, ind, n)
			}

			smallestPicked := 0
			for _, ind := range order {
				if neighborPicked[ind] || curvature[ind] >= a.cfg.SurfThreshold || !pts[ind].Ground {
					continue
				}
				label[ind] = -1
				result.flat = append(result.flat, pts[ind].Point)

				smallestPicked++
				if smallestPicked >= 4 {
					break
				}
				markPicked(pts, neighborPicked, ind, n)
			}

			for k := sp; k <= ep; k++ {
				if label[k] <= 0 {
					lessFlatScan = append(lessFlatScan, pts[k].Point)
				}
			}
		}

		result.lessFlat = append(result.lessFlat, pointcloud.VoxelFilter(lessFlatScan, a.cfg.VoxelLeafSize)...)
	}

	return result
}

// markPicked flags ind and its neighbors (up to 5 in each direction,
// stopping at the first column-index gap wider than 10) as no longer
// eligible for a feature pick, per the design's sector-quota rule.
func markPicked(pts []scanPoint, neighborPicked []bool, ind, n int) {
	neighborPicked[ind] = true
	for l := 1; l <= 5; l++ {
		if ind+l >= n || absInt(pts[ind+l].Col-pts[ind+l-1].Col) > 10 {
			break
		}
		neighborPicked[ind+l] = true
	}
	for l := 1; l <= 5; l++ {
		if ind-l < 0 || absInt(pts[ind-l].Col-pts[ind-l+1].Col) > 10 {
			break
		}
		neighborPicked[ind-l] = true
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
