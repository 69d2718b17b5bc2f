package associator

import (
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/viamlidar/lidarodometry/config"
	"github.com/viamlidar/lidarodometry/imu"
	"github.com/viamlidar/lidarodometry/kdtree"
	"github.com/viamlidar/lidarodometry/motion"
	"github.com/viamlidar/lidarodometry/pointcloud"
	"github.com/viamlidar/lidarodometry/rangeimage"
)

// Associator owns the IMU ring and the scan-to-scan state — transformCur,
// transformSum, the swapped-in corner/surf "last" clouds and their k-d
// trees — that de-skew, feature extraction, correspondence search,
// transform solve, and transform integration thread through across
// sweeps.
type Associator struct {
	cfg    config.Config
	logger golog.Logger
	ring   *imu.Ring

	systemInited bool
	cycleCount   int

	transformCur motion.Transform6
	transformSum motion.Transform6

	cornerLast pointcloud.Cloud
	surfLast   pointcloud.Cloud
	cornerTree *kdtree.Tree
	surfTree   *kdtree.Tree
}

// NewAssociator validates cfg and returns an Associator with its own empty
// IMU ring.
func NewAssociator(logger golog.Logger, cfg config.Config) (*Associator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Associator{
		cfg:    cfg,
		logger: logger,
		ring:   imu.NewRing(cfg.ScanPeriod, cfg.IMUQueueLength),
	}, nil
}

// AddIMUSample feeds one IMU reading into the ring the next Process call's
// de-skew interpolates against.
func (a *Associator) AddIMUSample(orientation quat.Number, accBody, omegaBody r3.Vector, t time.Time) {
	a.ring.AddSample(orientation, accBody, omegaBody, t)
}

// Process runs de-skew, feature extraction, and — once a previous sweep has
// seeded cornerLast/surfLast — the two-phase correspondence search and LM
// solve, transform integration, and the swap-in of this sweep's less-sharp/
// less-flat clouds as the next sweep's correspondence targets. It returns a
// nil AssociationOut on the seeding sweep and on every sweep that isn't the
// MappingFrequencyDivider'th since the last emission.
func (a *Associator) Process(po rangeimage.ProjectionOut) (*AssociationOut, error) {
	pts, startState, lastState := a.deskew(po)
	ex := a.extract(pts, po.SegInfo)

	if !a.systemInited {
		a.checkSystemInitialization(ex, startState)
		return nil, nil
	}

	a.updateInitialGuess(startState, lastState)
	a.solveSurfPhase(ex.flat)
	a.solveCornerPhase(ex.sharp)
	a.integrateTransformation(startState, lastState)

	pose := motion.PoseFromTransformSum(a.transformSum)

	var debug *DebugClouds
	if a.cfg.Debug {
		debug = &DebugClouds{
			Sharp:     ex.sharp,
			LessSharp: ex.lessSharp,
			Flat:      ex.flat,
			LessFlat:  ex.lessFlat,
		}
	}

	a.swapInLastClouds(ex, startState, lastState)

	a.logger.Debugw("associated sweep",
		"corner_last", len(a.cornerLast),
		"surf_last", len(a.surfLast),
		"transform_sum", a.transformSum,
	)

	a.cycleCount++
	if a.cycleCount < a.cfg.MappingFrequencyDivider {
		return nil, nil
	}
	a.cycleCount = 0

	if debug != nil {
		debug.CornerLast = a.cornerLast
		debug.SurfLast = a.surfLast
		debug.OutlierLast = po.OutlierCloud
	}

	return &AssociationOut{
		CloudCornerLast:  a.cornerLast,
		CloudSurfLast:    a.surfLast,
		CloudOutlierLast: po.OutlierCloud,
		LaserOdometry:    pose,
		Debug:            debug,
	}, nil
}

// swapInLastClouds de-skews this sweep's less-sharp/less-flat points all
// the way to the sweep-end frame, re-anchored from the sweep's start IMU
// orientation into its last-point IMU orientation, and swaps them in as
// the next sweep's correspondence targets, rebuilding the k-d trees over
// them.
func (a *Associator) swapInLastClouds(ex extracted, startState, lastState imu.Sample) {
	a.cornerLast = transformToEndCloud(ex.lessSharp, a.cfg.ScanPeriod, a.transformCur, startState, lastState)
	a.surfLast = transformToEndCloud(ex.lessFlat, a.cfg.ScanPeriod, a.transformCur, startState, lastState)
	a.rebuildTrees()
}

func transformToEndCloud(cloud pointcloud.Cloud, scanPeriod float64, cur motion.Transform6, startState, lastState imu.Sample) pointcloud.Cloud {
	out := make(pointcloud.Cloud, len(cloud))
	for i, p := range cloud {
		relTime := relTimeOf(p, scanPeriod)
		end := motion.TransformToEnd(motion.Point3{X: p.Position.X, Y: p.Position.Y, Z: p.Position.Z}, relTime, cur,
			startState.Roll, startState.Pitch, startState.Yaw,
			lastState.Roll, lastState.Pitch, lastState.Yaw,
		)
		out[i] = pointcloud.NewPoint(end.X, end.Y, end.Z, p.Intensity)
	}
	return out
}

func (a *Associator) rebuildTrees() {
	a.cornerTree = nil
	a.surfTree = nil
	if len(a.cornerLast) > 10 {
		a.cornerTree = kdtree.New(a.cornerLast.Positions())
	}
	if len(a.surfLast) > 100 {
		a.surfTree = kdtree.New(a.surfLast.Positions())
	}
}
