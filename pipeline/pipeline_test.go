package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"github.com/viamlidar/lidarodometry/associator"
	"github.com/viamlidar/lidarodometry/config"
	"github.com/viamlidar/lidarodometry/pointcloud"
	"github.com/viamlidar/lidarodometry/rangeimage"
)

type fakeSource struct {
	mu      sync.Mutex
	scans   []pointcloud.Cloud
	scanIdx int
}

func (f *fakeSource) NextScan(ctx context.Context) (pointcloud.Cloud, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scanIdx >= len(f.scans) {
		<-ctx.Done()
		return nil, time.Time{}, ctx.Err()
	}
	cloud := f.scans[f.scanIdx]
	f.scanIdx++
	return cloud, time.Now(), nil
}

func (f *fakeSource) NextIMUSample(ctx context.Context) (quat.Number, r3.Vector, r3.Vector, time.Time, error) {
	<-ctx.Done()
	return quat.Number{}, r3.Vector{}, r3.Vector{}, time.Time{}, ctx.Err()
}

type fakeSink struct {
	mu  sync.Mutex
	out []associator.AssociationOut
}

func (f *fakeSink) Sink(_ context.Context, out associator.AssociationOut) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, out)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.out)
}

func TestNewRejectsNilCollaborators(t *testing.T) {
	logger := golog.NewTestLogger(t)
	cfg := config.Default()

	_, err := New(logger, cfg, nil, &fakeSink{})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = New(logger, cfg, &fakeSource{}, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(golog.NewTestLogger(t), config.Config{NScan: -1}, &fakeSource{}, &fakeSink{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPipelineStartAndCloseJoinsCleanly(t *testing.T) {
	logger := golog.NewTestLogger(t)
	cfg := config.Default()
	source := &fakeSource{}
	sink := &fakeSink{}

	p, err := New(logger, cfg, source, sink)
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.Start(ctx)

	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not shut down in time")
	}
}

func TestIsShutdownSentinelDistinguishesEmptyProjectionOut(t *testing.T) {
	test.That(t, isShutdownSentinel(rangeimage.ProjectionOut{}), test.ShouldBeTrue)

	nonSentinel := rangeimage.ProjectionOut{SegmentedCloud: pointcloud.Cloud{pointcloud.NewPoint(0, 0, 0, 0)}}
	test.That(t, isShutdownSentinel(nonSentinel), test.ShouldBeFalse)
}
