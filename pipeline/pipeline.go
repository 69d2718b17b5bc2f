// Package pipeline wires the Projector and Associator together behind a
// bounded single-slot handoff channel, and defines the ScanSource/MapperSink
// collaborator interfaces that stand in for the external transport and
// downstream mapper.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/num/quat"

	"github.com/viamlidar/lidarodometry/associator"
	"github.com/viamlidar/lidarodometry/config"
	"github.com/viamlidar/lidarodometry/pointcloud"
	"github.com/viamlidar/lidarodometry/rangeimage"
)

// ScanSource is the external collaborator that yields raw sweeps and IMU
// samples — a pub/sub transport subscriber, file replay, or a simulator.
type ScanSource interface {
	// NextScan blocks until the next raw sweep is available, or ctx is done.
	NextScan(ctx context.Context) (pointcloud.Cloud, time.Time, error)
	// NextIMUSample blocks until the next inertial reading is available, or
	// ctx is done. orientation/accBody/omegaBody/t are passed straight
	// through to imu.Ring.AddSample.
	NextIMUSample(ctx context.Context) (orientation quat.Number, accBody, omegaBody r3.Vector, t time.Time, err error)
}

// MapperSink is the external collaborator that receives odometry output —
// the downstream mapper or back-end optimizer.
type MapperSink interface {
	Sink(ctx context.Context, out associator.AssociationOut) error
}

// Pipeline owns the Projector, the Associator, and the bounded handoff
// channel between them, plus the ScanSource/MapperSink collaborators that
// feed it and consume its output.
type Pipeline struct {
	logger     golog.Logger
	projector  *rangeimage.Projector
	associator *associator.Associator
	source     ScanSource
	sink       MapperSink

	handoff chan rangeimage.ProjectionOut

	cancelFunc              context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
}

// New validates cfg and the collaborators and returns a Pipeline ready for
// Start. source and sink must not be nil.
func New(logger golog.Logger, cfg config.Config, source ScanSource, sink MapperSink) (*Pipeline, error) {
	if source == nil {
		return nil, errors.New("pipeline: source must not be nil")
	}
	if sink == nil {
		return nil, errors.New("pipeline: sink must not be nil")
	}

	projector, err := rangeimage.NewProjector(logger, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: building projector")
	}
	assoc, err := associator.NewAssociator(logger, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: building associator")
	}

	return &Pipeline{
		logger:     logger,
		projector:  projector,
		associator: assoc,
		source:     source,
		sink:       sink,
		handoff:    make(chan rangeimage.ProjectionOut, 1),
	}, nil
}

// Start launches the scan-feed, IMU-feed, and associator-consumer
// goroutines, all derived from ctx, and returns immediately.
func (p *Pipeline) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancelFunc = cancel

	p.activeBackgroundWorkers.Add(3)
	utils.ManagedGo(func() { p.runScanFeed(runCtx) }, p.activeBackgroundWorkers.Done)
	utils.ManagedGo(func() { p.runIMUFeed(runCtx) }, p.activeBackgroundWorkers.Done)
	utils.ManagedGo(func() { p.runAssociator(runCtx) }, p.activeBackgroundWorkers.Done)
}

// Close cancels the pipeline's context, wakes the associator goroutine with
// an empty shutdown sentinel in case it is blocked on the handoff channel,
// and waits for all three goroutines to exit.
func (p *Pipeline) Close() {
	if p.cancelFunc != nil {
		p.cancelFunc()
	}
	select {
	case p.handoff <- rangeimage.ProjectionOut{}:
	default:
	}
	p.activeBackgroundWorkers.Wait()
}

func (p *Pipeline) runScanFeed(ctx context.Context) {
	for {
		cloud, t, err := p.source.NextScan(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Errorw("scan source failed", "error", err)
			continue
		}

		po := p.projector.Process(cloud, t)
		select {
		case p.handoff <- po:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) runIMUFeed(ctx context.Context) {
	for {
		orientation, accBody, omegaBody, t, err := p.source.NextIMUSample(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Errorw("imu source failed", "error", err)
			continue
		}
		p.associator.AddIMUSample(orientation, accBody, omegaBody, t)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (p *Pipeline) runAssociator(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case po := <-p.handoff:
			if isShutdownSentinel(po) {
				return
			}

			out, err := p.associator.Process(po)
			if err != nil {
				p.logger.Errorw("associator failed to process sweep", "error", err)
				continue
			}
			if out == nil {
				continue
			}
			if err := p.sink.Sink(ctx, *out); err != nil {
				p.logger.Errorw("mapper sink failed", "error", err)
			}
		}
	}
}

// isShutdownSentinel reports whether po is the empty value Close sends to
// wake a goroutine blocked on the handoff channel, rather than a real
// (possibly also empty, for a malformed sweep) ProjectionOut.
func isShutdownSentinel(po rangeimage.ProjectionOut) bool {
	return po.SegmentedCloud == nil && po.OutlierCloud == nil && po.Time.IsZero()
}
