package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/num/quat"

	"github.com/viamlidar/lidarodometry/associator"
	"github.com/viamlidar/lidarodometry/pointcloud"
)

// FileScanSource is the concrete file-backed ScanSource the design calls
// for: it replays a directory of ASCII PCD sweeps in filename order, one
// every scanPeriod, and reports a stationary IMU (identity orientation,
// zero acceleration and angular velocity) on the same cadence. It exists so
// the module is independently testable and so cmd/lidarodometry has an
// offline-replay mode without any real transport.
type FileScanSource struct {
	paths      []string
	scanPeriod time.Duration
	next       int
}

// NewFileScanSource globs dir for *.pcd files, sorted by name, and returns a
// FileScanSource that replays them at scanPeriod intervals.
func NewFileScanSource(dir string, scanPeriod time.Duration) (*FileScanSource, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.pcd"))
	if err != nil {
		return nil, errors.Wrapf(err, "globbing %q for PCD files", dir)
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, errors.Errorf("no .pcd files found in %q", dir)
	}
	return &FileScanSource{paths: matches, scanPeriod: scanPeriod}, nil
}

// NextScan loads the next PCD file in order, pacing itself to one sweep per
// scanPeriod so replay runs at roughly the original sensor rate. Once every
// file has been replayed it blocks until ctx is done rather than returning
// an error, so a finished replay idles quietly instead of busy-looping the
// scan-feed goroutine.
func (s *FileScanSource) NextScan(ctx context.Context) (pointcloud.Cloud, time.Time, error) {
	if s.next >= len(s.paths) {
		<-ctx.Done()
		return nil, time.Time{}, ctx.Err()
	}
	if !waitOrDone(ctx, s.scanPeriod) {
		return nil, time.Time{}, ctx.Err()
	}

	path := s.paths[s.next]
	s.next++

	f, err := os.Open(path)
	if err != nil {
		return nil, time.Time{}, errors.Wrapf(err, "opening %q", path)
	}
	defer utils.UncheckedErrorFunc(f.Close)

	cloud, err := pointcloud.LoadPCD(f)
	if err != nil {
		return nil, time.Time{}, errors.Wrapf(err, "loading %q", path)
	}
	return cloud, time.Now(), nil
}

// NextIMUSample reports a stationary sample once per scanPeriod; a file
// replay carries no recorded inertial history, so the IMU ring degrades
// gracefully to "no motion hint" rather than fabricating one.
func (s *FileScanSource) NextIMUSample(ctx context.Context) (quat.Number, r3.Vector, r3.Vector, time.Time, error) {
	if !waitOrDone(ctx, s.scanPeriod) {
		return quat.Number{}, r3.Vector{}, r3.Vector{}, time.Time{}, ctx.Err()
	}
	return quat.Number{Real: 1}, r3.Vector{}, r3.Vector{}, time.Now(), nil
}

func waitOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// FileMapperSink is the concrete file-backed MapperSink: every
// AssociationOut it receives is written out as three PCD files
// (corner/surf/outlier) under dir, numbered by arrival order.
type FileMapperSink struct {
	dir   string
	count int
}

// NewFileMapperSink returns a FileMapperSink writing into dir, which must
// already exist.
func NewFileMapperSink(dir string) *FileMapperSink {
	return &FileMapperSink{dir: dir}
}

// Sink writes out's three feature clouds to dir/<label>_<n>.pcd.
func (s *FileMapperSink) Sink(_ context.Context, out associator.AssociationOut) error {
	n := s.count
	s.count++

	for _, pair := range []struct {
		name  string
		cloud pointcloud.Cloud
	}{
		{"corner", out.CloudCornerLast},
		{"surf", out.CloudSurfLast},
		{"outlier", out.CloudOutlierLast},
	} {
		path := filepath.Join(s.dir, pair.name+"_"+strconv.Itoa(n)+".pcd")
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrapf(err, "creating %q", path)
		}
		err = pointcloud.SavePCD(pair.cloud, f)
		closeErr := f.Close()
		if err != nil {
			return errors.Wrapf(err, "writing %q", path)
		}
		if closeErr != nil {
			return errors.Wrapf(closeErr, "closing %q", path)
		}
	}
	return nil
}
