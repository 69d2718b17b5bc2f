package associator

import (
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/viamlidar/lidarodometry/config"
	"github.com/viamlidar/lidarodometry/imu"
	"github.com/viamlidar/lidarodometry/motion"
	"github.com/viamlidar/lidarodometry/pointcloud"
	"github.com/viamlidar/lidarodometry/rangeimage"
)

func TestNewAssociatorValidatesConfig(t *testing.T) {
	_, err := NewAssociator(golog.NewTestLogger(t), config.Config{NScan: -1})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewAssociatorAcceptsDefaultConfig(t *testing.T) {
	a, err := NewAssociator(golog.NewTestLogger(t), config.Default())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a, test.ShouldNotBeNil)
}

func TestTransformToEndCloudIdentityWhenTransformZero(t *testing.T) {
	cloud := pointcloud.Cloud{pointcloud.NewPoint(1, 2, 3, 0.05)}
	out := transformToEndCloud(cloud, 0.1, motion.Transform6{}, imu.Sample{}, imu.Sample{})
	test.That(t, out[0].Position.X, test.ShouldAlmostEqual, 1.0, 1e-9)
	test.That(t, out[0].Position.Y, test.ShouldAlmostEqual, 2.0, 1e-9)
	test.That(t, out[0].Position.Z, test.ShouldAlmostEqual, 3.0, 1e-9)
}

func TestRebuildTreesNilWhenCloudsTooSmall(t *testing.T) {
	a := &Associator{}
	a.cornerLast = pointcloud.Cloud{pointcloud.NewPoint(0, 0, 0, 0)}
	a.surfLast = pointcloud.Cloud{pointcloud.NewPoint(0, 0, 0, 0)}

	a.rebuildTrees()
	test.That(t, a.cornerTree, test.ShouldBeNil)
	test.That(t, a.surfTree, test.ShouldBeNil)
}

func TestProcessFirstSweepInitializesWithoutEmitting(t *testing.T) {
	a, err := NewAssociator(golog.NewTestLogger(t), config.Default())
	test.That(t, err, test.ShouldBeNil)

	po := emptyProjectionOut()
	out, err := a.Process(po)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldBeNil)
	test.That(t, a.systemInited, test.ShouldBeTrue)
}

func emptyProjectionOut() rangeimage.ProjectionOut {
	return rangeimage.ProjectionOut{
		SegInfo: rangeimage.SegInfo{
			StartRingIndex: []int{},
			EndRingIndex:   []int{},
		},
		Time: time.Now(),
	}
}
