package associator

import (
	"testing"

	"go.viam.com/test"

	"github.com/viamlidar/lidarodometry/imu"
	"github.com/viamlidar/lidarodometry/motion"
	"github.com/viamlidar/lidarodometry/pointcloud"
)

func threePoints() pointcloud.Cloud {
	return pointcloud.Cloud{
		pointcloud.NewPoint(0, 0, 0, 0),
		pointcloud.NewPoint(1, 0, 0, 0),
		pointcloud.NewPoint(2, 0, 0, 0),
	}
}

func TestCheckSystemInitializationSeedsCloudsAndFoldsIMU(t *testing.T) {
	a := &Associator{}
	ex := extracted{
		lessSharp: threePoints(),
		lessFlat:  threePoints(),
	}
	start := imu.Sample{Pitch: 0.1, Roll: 0.2}

	a.checkSystemInitialization(ex, start)

	test.That(t, a.systemInited, test.ShouldBeTrue)
	test.That(t, len(a.cornerLast), test.ShouldEqual, 3)
	test.That(t, len(a.surfLast), test.ShouldEqual, 3)
	test.That(t, a.transformSum[0], test.ShouldAlmostEqual, 0.1, 1e-9)
	test.That(t, a.transformSum[2], test.ShouldAlmostEqual, 0.2, 1e-9)
}

func TestUpdateInitialGuessZeroWhenNoIMUDelta(t *testing.T) {
	a := &Associator{}
	a.cfg.ScanPeriod = 0.1
	state := imu.Sample{}

	a.updateInitialGuess(state, state)
	test.That(t, a.transformCur, test.ShouldResemble, motion.Transform6{})
}

func TestUpdateInitialGuessSetsRotationFromAngularDelta(t *testing.T) {
	a := &Associator{}
	a.cfg.ScanPeriod = 0.1

	start := imu.Sample{}
	last := imu.Sample{}
	last.AngularRotWorld.X = 0.01
	last.AngularRotWorld.Y = 0.02
	last.AngularRotWorld.Z = 0.03

	a.updateInitialGuess(start, last)

	test.That(t, a.transformCur[0], test.ShouldAlmostEqual, -0.02, 1e-9)
	test.That(t, a.transformCur[1], test.ShouldAlmostEqual, -0.03, 1e-9)
	test.That(t, a.transformCur[2], test.ShouldAlmostEqual, -0.01, 1e-9)
}

func TestIntegrateTransformationIdentityWhenNoMotion(t *testing.T) {
	a := &Associator{}
	state := imu.Sample{}

	a.integrateTransformation(state, state)

	for i, v := range a.transformSum {
		test.That(t, v, test.ShouldAlmostEqual, 0.0, 1e-9)
		_ = i
	}
}
