// Package associator implements the second pipeline stage: IMU-aided
// de-skew, smoothness-based feature extraction, scan-to-scan correspondence
// search, the two-phase Levenberg-Marquardt-style transform solve, and
// transform integration into the accumulated world pose.
package associator

import (
	"github.com/viamlidar/lidarodometry/motion"
	"github.com/viamlidar/lidarodometry/pointcloud"
)

// scanPoint is one de-skewed segmented-cloud point carrying the SegInfo
// bookkeeping (column index, ground flag, range) the feature-extraction and
// masking passes need alongside the point itself.
type scanPoint struct {
	pointcloud.Point
	Col    int
	Ground bool
	Range  float64
}

// AssociationOut is emitted to the mapper every mappingFrequencyDivider
// sweeps: the swapped-in last-sweep feature clouds, the outlier cloud
// forwarded unchanged from the Projector, and the laser odometry pose.
type AssociationOut struct {
	CloudCornerLast  pointcloud.Cloud
	CloudSurfLast    pointcloud.Cloud
	CloudOutlierLast pointcloud.Cloud
	LaserOdometry    motion.Pose
	Debug            *DebugClouds
}

// DebugClouds carries the per-sweep debug topics (sharp, less-sharp, flat,
// less-flat, corner_last, surf_last, outlier_last) that the source
// publishes on separate pub/sub topics; here they ride along on
// AssociationOut when Config.Debug is set, since the transport itself is
// out of scope but the data is not discarded.
type DebugClouds struct {
	Sharp, LessSharp, Flat, LessFlat pointcloud.Cloud
	CornerLast, SurfLast, OutlierLast pointcloud.Cloud
}
