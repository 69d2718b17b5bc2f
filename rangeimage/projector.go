package rangeimage

import (
	"time"

	"github.com/edaniels/golog"

	"github.com/viamlidar/lidarodometry/config"
	"github.com/viamlidar/lidarodometry/pointcloud"
)

// Projector converts one raw sweep into a range image, a ground
// classification, a breadth-first angular-coherence segmentation, and the
// SegInfo/segmented-cloud/outlier-cloud triple the Associator consumes.
//
// A Projector is stateless across sweeps: every field it reads comes from
// cfg, and Process allocates a fresh working image each call.
type Projector struct {
	cfg    config.Config
	logger golog.Logger
}

// NewProjector validates cfg and returns a Projector that uses it for
// every subsequent Process call.
func NewProjector(logger golog.Logger, cfg config.Config) (*Projector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Projector{cfg: cfg, logger: logger}, nil
}

// Process runs the full projection/ground/segmentation pipeline over one
// raw sweep and returns the ProjectionOut the Associator will consume. An
// empty or all-out-of-range cloud yields an empty ProjectionOut rather than
// an error, per the design's silent-drop handling of malformed input.
func (p *Projector) Process(cloud pointcloud.Cloud, t time.Time) ProjectionOut {
	img := newImage(p.cfg.NScan, p.cfg.HorizontalScan)

	p.project(img, cloud)
	start, end, diff := startEndOrientation(cloud)

	p.classifyGround(img)
	p.maskLabels(img)
	p.segment(img)

	segmented, outlier, info := p.emit(img)
	info.StartOrientation = start
	info.EndOrientation = end
	info.OrientationDiff = diff

	p.logger.Debugw("projected sweep",
		"raw_points", len(cloud),
		"segmented_points", len(segmented),
		"outlier_points", len(outlier),
	)

	return ProjectionOut{
		SegmentedCloud: segmented,
		OutlierCloud:   outlier,
		SegInfo:        info,
		Time:           t,
	}
}
