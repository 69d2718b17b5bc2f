package pointcloud

import (
	"testing"

	"go.viam.com/test"
)

func TestVoxelFilterMergesNearbyPoints(t *testing.T) {
	cloud := Cloud{
		NewPoint(0, 0, 0, 1),
		NewPoint(0.01, 0, 0, 3),
		NewPoint(5, 5, 5, 9),
	}
	out := VoxelFilter(cloud, 0.2)
	test.That(t, len(out), test.ShouldEqual, 2)

	var sawMerged, sawFar bool
	for _, p := range out {
		switch {
		case p.Position.X < 1:
			sawMerged = true
			test.That(t, p.Intensity, test.ShouldEqual, 2.0)
		default:
			sawFar = true
		}
	}
	test.That(t, sawMerged, test.ShouldBeTrue)
	test.That(t, sawFar, test.ShouldBeTrue)
}

func TestVoxelFilterNonPositiveLeafIsNoop(t *testing.T) {
	cloud := Cloud{NewPoint(0, 0, 0, 1), NewPoint(1, 1, 1, 2)}
	out := VoxelFilter(cloud, 0)
	test.That(t, len(out), test.ShouldEqual, len(cloud))
}

func TestVoxelFilterEmptyCloud(t *testing.T) {
	out := VoxelFilter(nil, 0.2)
	test.That(t, len(out), test.ShouldEqual, 0)
}
