package associator

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/viamlidar/lidarodometry/imu"
	"github.com/viamlidar/lidarodometry/motion"
)

// checkSystemInitialization runs once, on the very first sweep: there is no
// previous "last" cloud to match against yet, so it seeds cornerLast/
// surfLast from this sweep's less-sharp/less-flat points and folds the
// sweep-start IMU pitch/roll into transformSum as the starting orientation.
func (a *Associator) checkSystemInitialization(ex extracted, startState imu.Sample) {
	a.cornerLast = ex.lessSharp
	a.surfLast = ex.lessFlat
	a.rebuildTrees()

	a.transformSum[0] += startState.Pitch
	a.transformSum[2] += startState.Roll

	a.systemInited = true
}

// updateInitialGuess seeds transformCur from the IMU's measured rotation
// and velocity across the sweep just de-skewed, so the LM solve starts
// closer to the true motion than carrying over the previous sweep's
// converged transformCur would.
func (a *Associator) updateInitialGuess(startState, lastState imu.Sample) {
	angularDelta := lastState.AngularRotWorld.Sub(startState.AngularRotWorld)
	if angularDelta.X != 0 || angularDelta.Y != 0 || angularDelta.Z != 0 {
		a.transformCur[0] = -angularDelta.Y
		a.transformCur[1] = -angularDelta.Z
		a.transformCur[2] = -angularDelta.X
	}

	veloDelta := lastState.VWorld.Sub(startState.VWorld)
	if veloDelta.X != 0 || veloDelta.Y != 0 || veloDelta.Z != 0 {
		swapped := r3.Vector{X: veloDelta.Y, Y: veloDelta.Z, Z: veloDelta.X}
		startFrame := rotateInverse(swapped, startState.Roll, startState.Pitch, startState.Yaw)
		a.transformCur[3] -= startFrame.X * a.cfg.ScanPeriod
		a.transformCur[4] -= startFrame.Y * a.cfg.ScanPeriod
		a.transformCur[5] -= startFrame.Z * a.cfg.ScanPeriod
	}
}

// integrateTransformation folds transformCur's rotation into transformSum
// via AccumulateRotation, derives the new world translation from the
// rotated-and-negated transformCur translation, then re-expresses the
// rotation through the IMU's own measured orientation change via
// PluginIMURotation. There is no separate imuShiftFromStart term here: the
// de-skew stage already folds the full IMU position drift into every point
// before the solve ever sees it, so transformCur's translation already
// carries it.
func (a *Associator) integrateTransformation(startState, lastState imu.Sample) {
	cur := a.transformCur

	rx, ry, rz := motion.AccumulateRotation(
		a.transformSum.Rx(), a.transformSum.Ry(), a.transformSum.Rz(),
		-cur.Rx(), -cur.Ry(), -cur.Rz(),
	)

	x1 := math.Cos(rz)*cur.Tx() - math.Sin(rz)*cur.Ty()
	y1 := math.Sin(rz)*cur.Tx() + math.Cos(rz)*cur.Ty()
	z1 := cur.Tz()

	x2 := x1
	y2 := math.Cos(rx)*y1 - math.Sin(rx)*z1
	z2 := math.Sin(rx)*y1 + math.Cos(rx)*z1

	tx := a.transformSum.Tx() - (math.Cos(ry)*x2 + math.Sin(ry)*z2)
	ty := a.transformSum.Ty() - y2
	tz := a.transformSum.Tz() - (-math.Sin(ry)*x2 + math.Cos(ry)*z2)

	rx, ry, rz = motion.PluginIMURotation(
		rx, ry, rz,
		startState.Pitch, startState.Yaw, startState.Roll,
		lastState.Pitch, lastState.Yaw, lastState.Roll,
	)

	a.transformSum = motion.Transform6{rx, ry, rz, tx, ty, tz}
	a.transformSum.SanitizeNaN()
}
