package associator

import (
	"math"
	"time"

	"github.com/golang/geo/r3"

	"github.com/viamlidar/lidarodometry/imu"
	"github.com/viamlidar/lidarodometry/pointcloud"
	"github.com/viamlidar/lidarodometry/rangeimage"
)

// deskew axis-swaps every segmented point, tracks per-point orientation to
// derive a relative timestamp within the sweep, and removes motion
// distortion by transforming each point into the sweep-start frame using
// the IMU ring's interpolated orientation/velocity/position. It returns the
// de-skewed points in their original order plus the IMU state captured at
// the sweep's first and last points (the imuPitchStart/imuPitchLast pair
// transform integration needs).
func (a *Associator) deskew(po rangeimage.ProjectionOut) ([]scanPoint, imu.Sample, imu.Sample) {
	info := po.SegInfo
	out := make([]scanPoint, len(po.SegmentedCloud))

	halfPassed := false
	var startState, lastState imu.Sample

	for i, raw := range po.SegmentedCloud {
		swapped := r3.Vector{X: raw.Position.Y, Y: raw.Position.Z, Z: raw.Position.X}
		ori := -math.Atan2(swapped.X, swapped.Z)

		if !halfPassed {
			if ori < info.StartOrientation-math.Pi/2 {
				ori += 2 * math.Pi
			} else if ori > info.StartOrientation+math.Pi*3/2 {
				ori -= 2 * math.Pi
			}
			if ori-info.StartOrientation > math.Pi {
				halfPassed = true
			}
		} else {
			ori += 2 * math.Pi
			if ori < info.EndOrientation-math.Pi*3/2 {
				ori += 2 * math.Pi
			} else if ori > info.EndOrientation+math.Pi/2 {
				ori -= 2 * math.Pi
			}
		}

		relTime := (ori - info.StartOrientation) / info.OrientationDiff
		ringID := raw.Ring()
		intensity := float64(ringID) + a.cfg.ScanPeriod*relTime

		pointTime := relTime * a.cfg.ScanPeriod
		sampleT := po.Time.Add(time.Duration(pointTime * float64(time.Second)))
		cur := a.ring.Interpolate(sampleT)

		if i == 0 {
			startState = cur
		}
		lastState = cur

		deskewed := swapped
		if i != 0 {
			deskewed = deskewPoint(swapped, pointTime, cur, startState)
		}

		out[i] = scanPoint{
			Point:  pointcloud.NewPoint(deskewed.X, deskewed.Y, deskewed.Z, intensity),
			Col:    info.SegmentedCloudColInd[i],
			Ground: info.SegmentedCloudGroundFlag[i],
			Range:  info.SegmentedCloudRange[i],
		}
	}

	return out, startState, lastState
}

// deskewPoint transforms v (already axis-swapped) into the sweep-start
// frame: rotate forward by the point's instantaneous IMU orientation, add
// the world-frame position drift since sweep start, then rotate the sum
// by the inverse of the sweep-start IMU orientation. Rotation is linear so
// the two inverse-rotations (of the rotated point and of the drift) fold
// into one.
func deskewPoint(v r3.Vector, pointTime float64, cur, start imu.Sample) r3.Vector {
	drift := cur.PosWorld.Sub(start.PosWorld).Sub(start.VWorld.Mul(pointTime))
	rotated := rotateForward(v, cur.Roll, cur.Pitch, cur.Yaw)
	combined := rotated.Add(drift)
	return rotateInverse(combined, start.Roll, start.Pitch, start.Yaw)
}

// rotateForward applies, in order, rotation about Z by roll, then about X
// by pitch, then about Y by yaw — the "instantaneous IMU orientation"
// rotation in the axis-swapped frame. Preserved bit-for-bit per the
// design's axis-swap note.
func rotateForward(v r3.Vector, roll, pitch, yaw float64) r3.Vector {
	v = rotateZ(v, roll)
	v = rotateX(v, pitch)
	v = rotateY(v, yaw)
	return v
}

// rotateInverse undoes rotateForward: about Y by -yaw, then about X by
// -pitch, then about Z by -roll.
func rotateInverse(v r3.Vector, roll, pitch, yaw float64) r3.Vector {
	v = rotateY(v, -yaw)
	v = rotateX(v, -pitch)
	v = rotateZ(v, -roll)
	return v
}

func rotateZ(v r3.Vector, theta float64) r3.Vector {
	c, s := math.Cos(theta), math.Sin(theta)
	return r3.Vector{X: c*v.X - s*v.Y, Y: s*v.X + c*v.Y, Z: v.Z}
}

func rotateX(v r3.Vector, theta float64) r3.Vector {
	c, s := math.Cos(theta), math.Sin(theta)
	return r3.Vector{X: v.X, Y: c*v.Y - s*v.Z, Z: s*v.Y + c*v.Z}
}

func rotateY(v r3.Vector, theta float64) r3.Vector {
	c, s := math.Cos(theta), math.Sin(theta)
	return r3.Vector{X: c*v.X + s*v.Z, Y: v.Y, Z: -s*v.X + c*v.Z}
}
