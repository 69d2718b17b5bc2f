package rangeimage

import (
	"math"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/viamlidar/lidarodometry/config"
	"github.com/viamlidar/lidarodometry/pointcloud"
)

// testConfig returns a small, exactly-invertible range-image geometry so
// synthetic points can be placed at known (ring, column) cells.
func testConfig(nScan, hScan int) config.Config {
	c := config.Default()
	c.NScan = nScan
	c.HorizontalScan = hScan
	c.AngResY = 10 * math.Pi / 180
	c.AngBottom = 15 * math.Pi / 180
	c.AngResX = 2 * math.Pi / float64(hScan)
	c.GroundScanInd = 0
	return c
}

// genPoint inverts the projection formulas in project.go so a point placed
// at (ring, col, rng) projects back to exactly that cell.
func genPoint(c config.Config, ring, col int, rng float64) pointcloud.Point {
	verticalAngle := (float64(ring)+0.5)*c.AngResY - c.AngBottom
	horizonAngle := math.Pi/2 + (float64(c.HorizontalScan/2-col))*c.AngResX

	z := rng * math.Sin(verticalAngle)
	rxy := rng * math.Cos(verticalAngle)
	x := rxy * math.Sin(horizonAngle)
	y := rxy * math.Cos(horizonAngle)
	return pointcloud.NewPoint(x, y, z, 0)
}

func TestProjectDiscardsPointsCloserThan0p1(t *testing.T) {
	c := testConfig(4, 36)
	p, err := NewProjector(golog.NewTestLogger(t), c)
	test.That(t, err, test.ShouldBeNil)

	out := p.Process(pointcloud.Cloud{pointcloud.NewPoint(0.01, 0.01, 0, 0)}, time.Now())
	test.That(t, len(out.SegmentedCloud), test.ShouldEqual, 0)
	test.That(t, len(out.OutlierCloud), test.ShouldEqual, 0)
}

func TestProcessIndexSafety(t *testing.T) {
	c := testConfig(4, 36)
	p, err := NewProjector(golog.NewTestLogger(t), c)
	test.That(t, err, test.ShouldBeNil)

	var cloud pointcloud.Cloud
	for ring := 0; ring < c.NScan; ring++ {
		for col := 0; col < c.HorizontalScan; col++ {
			// Vary range slightly per ring so rings don't all fuse into a
			// single component through the ground-skipping path.
			cloud = append(cloud, genPoint(c, ring, col, 10.0+float64(ring)))
		}
	}

	out := p.Process(cloud, time.Now())
	test.That(t, len(out.SegmentedCloud), test.ShouldBeGreaterThan, 0)
	for i, pt := range out.SegmentedCloud {
		col := out.SegInfo.SegmentedCloudColInd[i]
		rng := out.SegInfo.SegmentedCloudRange[i]
		test.That(t, col, test.ShouldBeGreaterThanOrEqualTo, 0)
		test.That(t, col, test.ShouldBeLessThan, c.HorizontalScan)
		test.That(t, rng, test.ShouldBeGreaterThan, 0)
		test.That(t, pt.Position.Norm(), test.ShouldBeGreaterThan, 0)
	}
}

func TestOrientationWrapsIntoPiTo3Pi(t *testing.T) {
	c := testConfig(4, 36)
	p, err := NewProjector(golog.NewTestLogger(t), c)
	test.That(t, err, test.ShouldBeNil)

	cloud := pointcloud.Cloud{
		genPoint(c, 0, 0, 10),
		genPoint(c, 0, 18, 10),
		genPoint(c, 0, 35, 10),
	}
	out := p.Process(cloud, time.Now())
	diff := out.SegInfo.OrientationDiff
	test.That(t, diff, test.ShouldBeGreaterThan, math.Pi)
	test.That(t, diff, test.ShouldBeLessThanOrEqualTo, 3*math.Pi)
}

func TestSmallClusterRejectedFromSegmentedCloud(t *testing.T) {
	c := testConfig(4, 36)
	// Raise the acceptance floor so a 5-point, 1-ring cluster cannot pass
	// through the >=segmentValidPointNum/validLineNum branch either.
	c.SegmentValidPointNum = 10
	c.SegmentValidLineNum = 3
	test.That(t, c.Validate(), test.ShouldBeNil)

	p, err := NewProjector(golog.NewTestLogger(t), c)
	test.That(t, err, test.ShouldBeNil)

	var cloud pointcloud.Cloud
	for col := 10; col < 15; col++ {
		cloud = append(cloud, genPoint(c, 1, col, 10.0))
	}

	out := p.Process(cloud, time.Now())
	for _, col := range out.SegInfo.SegmentedCloudColInd {
		test.That(t, col < 10 || col >= 15, test.ShouldBeTrue)
	}
}
