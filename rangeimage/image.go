// Package rangeimage implements the Projector: range-image projection,
// ground classification, breadth-first angular-coherence segmentation, and
// the SegInfo emission that feeds the Associator.
package rangeimage

import (
	"math"

	"github.com/viamlidar/lidarodometry/pointcloud"
)

// groundUnknown/groundFlat/groundTrue are the ground_mat sentinels: -1 no
// info, 0 non-ground, 1 ground.
const (
	groundUnknown int8 = -1
	groundFlat    int8 = 0
	groundTrue    int8 = 1
)

// labelUnvisited/labelMasked/labelRejected are the label_mat sentinels: 0
// unvisited, -1 masked (ground or missing range), 999999 rejected as too
// small a cluster. Accepted components keep a positive component id.
const (
	labelUnvisited int32 = 0
	labelMasked    int32 = -1
	labelRejected  int32 = 999999
)

// image is the dense N_scan x horizontal_scan working state the projector
// builds per sweep: the range image itself, the ground classification, the
// segmentation labels, and the dense point array they were derived from.
type image struct {
	nScan, hScan int

	rangeMat [][]float64
	groundMat [][]int8
	labelMat  [][]int32

	fullCloud []pointcloud.Point
	fullValid []bool
}

func newImage(nScan, hScan int) *image {
	img := &image{
		nScan: nScan,
		hScan: hScan,
	}
	img.rangeMat = make([][]float64, nScan)
	img.groundMat = make([][]int8, nScan)
	img.labelMat = make([][]int32, nScan)
	for i := 0; i < nScan; i++ {
		img.rangeMat[i] = make([]float64, hScan)
		img.groundMat[i] = make([]int8, hScan)
		img.labelMat[i] = make([]int32, hScan)
		for j := 0; j < hScan; j++ {
			img.rangeMat[i][j] = math.Inf(1)
			img.groundMat[i][j] = groundUnknown
			img.labelMat[i][j] = labelUnvisited
		}
	}
	img.fullCloud = make([]pointcloud.Point, nScan*hScan)
	img.fullValid = make([]bool, nScan*hScan)
	return img
}

func (img *image) linearIndex(row, col int) int {
	return col + row*img.hScan
}

func (img *image) at(row, col int) (pointcloud.Point, bool) {
	idx := img.linearIndex(row, col)
	return img.fullCloud[idx], img.fullValid[idx]
}

func (img *image) set(row, col int, p pointcloud.Point, rng float64) {
	idx := img.linearIndex(row, col)
	img.fullCloud[idx] = p
	img.fullValid[idx] = true
	img.rangeMat[row][col] = rng
}
