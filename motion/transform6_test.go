package motion

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestTransformToStartIdentityWhenTransformIsZero(t *testing.T) {
	p := Point3{X: 1, Y: 2, Z: 3}
	got := TransformToStart(p, 0.5, Transform6{})
	test.That(t, got.X, test.ShouldAlmostEqual, p.X)
	test.That(t, got.Y, test.ShouldAlmostEqual, p.Y)
	test.That(t, got.Z, test.ShouldAlmostEqual, p.Z)
}

func TestTransformToEndRoundTripsThroughZeroMotion(t *testing.T) {
	p := Point3{X: 1, Y: -2, Z: 5}
	end := TransformToEnd(p, 0.3, Transform6{}, 0, 0, 0, 0, 0, 0)
	test.That(t, end.X, test.ShouldAlmostEqual, p.X)
	test.That(t, end.Y, test.ShouldAlmostEqual, p.Y)
	test.That(t, end.Z, test.ShouldAlmostEqual, p.Z)
}

func TestAccumulateRotationIdentityComposesToZero(t *testing.T) {
	ox, oy, oz := AccumulateRotation(0, 0, 0, 0, 0, 0)
	test.That(t, ox, test.ShouldAlmostEqual, 0.0)
	test.That(t, oy, test.ShouldAlmostEqual, 0.0)
	test.That(t, oz, test.ShouldAlmostEqual, 0.0)
}

func TestAccumulateRotationSmallYawApproximatelyAdds(t *testing.T) {
	yaw := 0.01
	_, oy, _ := AccumulateRotation(0, 0, 0, 0, yaw, 0)
	test.That(t, math.Abs(oy-yaw) < 1e-6, test.ShouldBeTrue)
}

func TestPluginIMURotationNoDeltaIsNoop(t *testing.T) {
	nx, ny, nz := PluginIMURotation(0.1, 0.2, 0.3, 1, 2, 3, 1, 2, 3)
	test.That(t, nx, test.ShouldAlmostEqual, 0.1)
	test.That(t, ny, test.ShouldAlmostEqual, 0.2)
	test.That(t, nz, test.ShouldAlmostEqual, 0.3)
}

func TestSanitizeNaNResetsOnlyNaNComponents(t *testing.T) {
	tr := Transform6{1, math.NaN(), 3, 4, math.NaN(), 6}
	tr.SanitizeNaN()
	test.That(t, tr[0], test.ShouldAlmostEqual, 1.0)
	test.That(t, tr[1], test.ShouldAlmostEqual, 0.0)
	test.That(t, tr[2], test.ShouldAlmostEqual, 3.0)
	test.That(t, tr[4], test.ShouldAlmostEqual, 0.0)
}
