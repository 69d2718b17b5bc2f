package rangeimage

import (
	"time"

	"github.com/viamlidar/lidarodometry/pointcloud"
)

// SegInfo is produced per sweep and consumed by the Associator: the
// continuous start/end orientation, the per-ring index bounds (shifted by
// ±5 to leave margin for the 11-tap smoothness kernel), and one flag/column
// index/range entry per segmented-cloud point.
type SegInfo struct {
	StartOrientation, EndOrientation, OrientationDiff float64

	StartRingIndex []int
	EndRingIndex   []int

	SegmentedCloudGroundFlag []bool
	SegmentedCloudColInd     []int
	SegmentedCloudRange      []float64
}

// ProjectionOut is the Projector's output, handed to the Associator through
// the bounded handoff.
type ProjectionOut struct {
	SegmentedCloud pointcloud.Cloud
	OutlierCloud   pointcloud.Cloud
	SegInfo        SegInfo
	Time           time.Time
}

// emit builds the segmented and outlier clouds ring by ring from img,
// following the inclusion rules in the design: accepted-segment and ground
// cells populate the segmented cloud (ground cells sparsified to every 5th
// column except near either border); rejected small clusters populate the
// outlier cloud only above groundScanInd and on every 5th column.
func (p *Projector) emit(img *image) (pointcloud.Cloud, pointcloud.Cloud, SegInfo) {
	info := SegInfo{
		StartRingIndex: make([]int, img.nScan),
		EndRingIndex:   make([]int, img.nScan),
	}

	var segmented, outlier pointcloud.Cloud

	for i := 0; i < img.nScan; i++ {
		info.StartRingIndex[i] = len(segmented) - 1 + 5

		for j := 0; j < img.hScan; j++ {
			label := img.labelMat[i][j]
			switch {
			case img.groundMat[i][j] == groundTrue:
				if !keepGroundColumn(j, img.hScan) {
					continue
				}
				pt, ok := img.at(i, j)
				if !ok {
					continue
				}
				segmented = append(segmented, pt)
				info.SegmentedCloudGroundFlag = append(info.SegmentedCloudGroundFlag, true)
				info.SegmentedCloudColInd = append(info.SegmentedCloudColInd, j)
				info.SegmentedCloudRange = append(info.SegmentedCloudRange, img.rangeMat[i][j])

			case label > 0 && label != labelRejected:
				pt, ok := img.at(i, j)
				if !ok {
					continue
				}
				segmented = append(segmented, pt)
				info.SegmentedCloudGroundFlag = append(info.SegmentedCloudGroundFlag, false)
				info.SegmentedCloudColInd = append(info.SegmentedCloudColInd, j)
				info.SegmentedCloudRange = append(info.SegmentedCloudRange, img.rangeMat[i][j])

			case label == labelRejected:
				if i > p.cfg.GroundScanInd && j%5 == 0 {
					pt, ok := img.at(i, j)
					if ok {
						outlier = append(outlier, pt)
					}
				}
			}
		}

		info.EndRingIndex[i] = len(segmented) - 1 - 5
	}

	return segmented, outlier, info
}

// keepGroundColumn implements the design's ground sparsification rule:
// every 5th column, or any column within 5 of either border.
func keepGroundColumn(col, hScan int) bool {
	if col%5 == 0 {
		return true
	}
	return col < 5 || col >= hScan-5
}
