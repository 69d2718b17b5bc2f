package rangeimage

import (
	"math"

	"github.com/viamlidar/lidarodometry/pointcloud"
)

// project fills img's range matrix and dense full-cloud from a raw sweep,
// per the projection rule in the design: row from the vertical angle,
// column from the horizon angle wrapped into [0, horizontal_scan), points
// closer than 0.1m discarded, intensity repurposed to row + col/10000.
func (p *Projector) project(img *image, cloud pointcloud.Cloud) {
	for _, raw := range cloud {
		pos := raw.Position
		rng := pos.Norm()
		if rng < 0.1 {
			continue
		}

		verticalAngle := math.Asin(pos.Z / rng)
		row := int((verticalAngle + p.cfg.AngBottom) / p.cfg.AngResY)
		if row < 0 || row >= img.nScan {
			continue
		}

		horizonAngle := math.Atan2(pos.X, pos.Y)
		col := -int(math.Round((horizonAngle-math.Pi/2)/p.cfg.AngResX)) + img.hScan/2
		col = ((col % img.hScan) + img.hScan) % img.hScan

		intensity := float64(row) + float64(col)/10000.0
		img.set(row, col, pointcloud.NewPoint(pos.X, pos.Y, pos.Z, intensity), rng)
	}
}

// startEndOrientation derives the SegInfo orientation fields from the first
// and last points of the raw sweep, per the design's normalization of
// endOrientation - startOrientation into (pi, 3pi].
func startEndOrientation(cloud pointcloud.Cloud) (start, end, diff float64) {
	if len(cloud) == 0 {
		return 0, 0, 0
	}
	first := cloud[0].Position
	last := cloud[len(cloud)-1].Position

	start = -math.Atan2(first.Y, first.X)
	end = -math.Atan2(last.Y, last.X) + 2*math.Pi

	switch {
	case end-start > 3*math.Pi:
		end -= 2 * math.Pi
	case end-start < math.Pi:
		end += 2 * math.Pi
	}
	return start, end, end - start
}

// radToDeg converts the radian tilt computed from the range image into
// degrees, matching the mount-angle convention (SensorMountAngle is stored
// in degrees, default 0).
func radToDeg(r float64) float64 { return r * 180 / math.Pi }

// classifyGround fills img.groundMat for rows [0, groundScanInd) by
// comparing the tilt between a cell and the cell directly above it on the
// next ring, per the design's ground-classification rule.
func (p *Projector) classifyGround(img *image) {
	for i := 0; i < p.cfg.GroundScanInd; i++ {
		for j := 0; j < img.hScan; j++ {
			lower, lowerOK := img.at(i, j)
			upper, upperOK := img.at(i+1, j)
			if !lowerOK || !upperOK {
				img.groundMat[i][j] = groundUnknown
				continue
			}

			diff := upper.Position.Sub(lower.Position)
			tilt := radToDeg(math.Atan2(diff.Z, math.Sqrt(diff.X*diff.X+diff.Y*diff.Y+diff.Z*diff.Z)))
			if tilt-p.cfg.SensorMountAngle <= 10 {
				img.groundMat[i][j] = groundTrue
				img.groundMat[i+1][j] = groundTrue
			} else {
				img.groundMat[i][j] = groundFlat
			}
		}
	}
}

// maskLabels marks every missing-range or ground cell in label_mat as
// masked so the BFS segmentation below skips it, per the design.
func (p *Projector) maskLabels(img *image) {
	for i := 0; i < img.nScan; i++ {
		for j := 0; j < img.hScan; j++ {
			if math.IsInf(img.rangeMat[i][j], 1) || img.groundMat[i][j] == groundTrue {
				img.labelMat[i][j] = labelMasked
			}
		}
	}
}
