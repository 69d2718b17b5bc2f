package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/stat"
)

// voxelCoords identifies a cell in a regular 3-D grid, the same bucketing
// key the teacher's VoxelGrid indexes on.
type voxelCoords struct {
	I, J, K int64
}

func coordsForPoint(pos, origin r3.Vector, leafSize float64) voxelCoords {
	return voxelCoords{
		I: int64(math.Floor((pos.X - origin.X) / leafSize)),
		J: int64(math.Floor((pos.Y - origin.Y) / leafSize)),
		K: int64(math.Floor((pos.Z - origin.Z) / leafSize)),
	}
}

// VoxelFilter down-samples cloud by averaging the points falling in each
// leafSize-sized grid cell into a single representative point. This is the
// "voxel down-sampling filter" external collaborator: a 3-D grid filter with
// a configurable leaf size, applied to each ring's "less flat" surface
// features before they become the next sweep's reference cloud.
//
// A non-positive leafSize returns cloud unchanged.
func VoxelFilter(cloud Cloud, leafSize float64) Cloud {
	if leafSize <= 0 || len(cloud) == 0 {
		return cloud
	}

	origin := cloud[0].Position
	buckets := make(map[voxelCoords][]Point)
	for _, p := range cloud {
		key := coordsForPoint(p.Position, origin, leafSize)
		buckets[key] = append(buckets[key], p)
	}

	out := make(Cloud, 0, len(buckets))
	var xs, ys, zs, is []float64
	for _, pts := range buckets {
		xs = xs[:0]
		ys = ys[:0]
		zs = zs[:0]
		is = is[:0]
		for _, p := range pts {
			xs = append(xs, p.Position.X)
			ys = append(ys, p.Position.Y)
			zs = append(zs, p.Position.Z)
			is = append(is, p.Intensity)
		}
		out = append(out, Point{
			Position: r3.Vector{
				X: stat.Mean(xs, nil),
				Y: stat.Mean(ys, nil),
				Z: stat.Mean(zs, nil),
			},
			Intensity: stat.Mean(is, nil),
		})
	}
	return out
}
