package motion

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is the odometry output: a quaternion orientation and a translation,
// both in the camera-init frame.
type Pose struct {
	Orientation quat.Number
	Position    r3.Vector
}

// PoseFromTransformSum derives the output odometry pose from the
// accumulated world transform, per the camera-axis-to-output-frame
// convention: roll = transformSum[2], pitch = -transformSum[0],
// yaw = -transformSum[1], followed by the axis swap
// (qx, qy, qz, qw) = (-q.y, -q.z, q.x, q.w).
func PoseFromTransformSum(sum Transform6) Pose {
	roll := sum.Rz()
	pitch := -sum.Rx()
	yaw := -sum.Ry()

	q := quatFromEuler(roll, pitch, yaw)
	swapped := quat.Number{
		Real: q.Real,
		Imag: -q.Jmag,
		Jmag: -q.Kmag,
		Kmag: q.Imag,
	}

	return Pose{
		Orientation: swapped,
		Position:    r3.Vector{X: sum.Tx(), Y: sum.Ty(), Z: sum.Tz()},
	}
}

// quatFromEuler builds a quaternion from roll (about X), pitch (about Y),
// yaw (about Z), composed roll then pitch then yaw — matching the
// body-frame convention the rest of the package's rotations use.
func quatFromEuler(roll, pitch, yaw float64) quat.Number {
	cr, sr := cosSinHalf(roll)
	cp, sp := cosSinHalf(pitch)
	cy, sy := cosSinHalf(yaw)

	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

func cosSinHalf(angle float64) (cos, sin float64) {
	half := angle / 2
	return math.Cos(half), math.Sin(half)
}
