// Package imu holds the circular buffer of inertial samples shared between
// the sensor callback and the Associator, and the interpolation logic used
// to de-skew a sweep against it.
package imu

import (
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// gravity is the magnitude subtracted from the IMU's reported acceleration
// before it is rotated into the sensor's world frame.
const gravity = 9.81

// defaultQueueLength is the IMU ring's capacity when the caller doesn't
// specify one. The rate imbalance between ~100 Hz IMU samples and ~10 Hz
// sweeps means 200 slots spans about two seconds, some twenty sweeps' worth
// of history, matching imuQueLength in the source.
const defaultQueueLength = 200

// Sample is one inertial measurement after axis permutation and gravity
// removal, plus the state integrated forward from the previous sample.
type Sample struct {
	T time.Time

	Roll, Pitch, Yaw float64

	AccWorld  r3.Vector
	OmegaBody r3.Vector

	VWorld          r3.Vector
	PosWorld        r3.Vector
	AngularRotWorld r3.Vector
}

// Ring is a fixed-capacity circular buffer of Samples. AddSample is called
// from the sensor-callback side; the Associator reads through Interpolate
// and Latest. AddSample, Interpolate and Latest each hold the same mutex for
// the duration of that one call only; the lock is not held across a whole
// sweep's de-skew, so a sample added mid-sweep is visible to the Interpolate
// calls for that sweep's later points.
type Ring struct {
	mu         sync.Mutex
	buf        []Sample
	head       int // index of the most recently written sample
	count      int
	scanPeriod float64
}

// NewRing constructs an empty ring of the given capacity. scanPeriod
// bounds how large a gap between consecutive raw samples may be before
// trapezoidal integration is reset rather than carried forward.
func NewRing(scanPeriod float64, queueLength int) *Ring {
	if queueLength <= 0 {
		queueLength = defaultQueueLength
	}
	return &Ring{scanPeriod: scanPeriod, buf: make([]Sample, queueLength)}
}

// AddSample folds in one raw IMU reading: quaternion orientation, linear
// acceleration in the sensor body frame (m/s²), angular velocity in the
// body frame (rad/s), and a timestamp. It performs the axis permutation and
// gravity removal described in the design, rotates acceleration into the
// ring's common world frame, trapezoidally integrates velocity and position
// forward from the previous slot, and accumulates angular rotation as
// omegaBody·dt.
func (r *Ring) AddSample(orientation quat.Number, accBody, omegaBody r3.Vector, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roll, pitch, yaw := eulerFromQuat(orientation)

	// De-gravitate and permute into the LiDAR axis convention. Bit-for-bit
	// per the design note: this permutation is specific to the sensor's
	// mounting and must not be "simplified."
	accX := accBody.Y - math.Sin(roll)*math.Cos(pitch)*gravity
	accY := accBody.Z - math.Cos(roll)*math.Cos(pitch)*gravity
	accZ := accBody.X + math.Sin(pitch)*gravity

	// Rotate by R_z(yaw)·R_x(pitch)·R_y(roll) into the common world frame.
	accWorld := rotateZXY(r3.Vector{X: accX, Y: accY, Z: accZ}, roll, pitch, yaw)

	var prev *Sample
	if r.count > 0 {
		prev = &r.buf[r.head]
	}

	s := Sample{
		T:         t,
		Roll:      roll,
		Pitch:     pitch,
		Yaw:       yaw,
		AccWorld:  accWorld,
		OmegaBody: omegaBody,
	}

	if prev != nil {
		dt := t.Sub(prev.T).Seconds()
		if dt > 0 && dt < r.scanPeriod {
			s.VWorld = prev.VWorld.Add(prev.AccWorld.Add(accWorld).Mul(0.5 * dt))
			s.PosWorld = prev.PosWorld.Add(prev.VWorld.Add(s.VWorld).Mul(0.5 * dt))
			s.AngularRotWorld = prev.AngularRotWorld.Add(omegaBody.Mul(dt))
		}
		// dt <= 0 or dt >= scanPeriod: slot resets to zero state, matching
		// the source's behavior of dropping stale integration across gaps.
	}

	r.head = (r.head + 1) % len(r.buf)
	r.buf[r.head] = s
	if r.count < len(r.buf) {
		r.count++
	}
}

// eulerFromQuat extracts roll/pitch/yaw from an IMU orientation quaternion
// using the same axis convention as the rest of the package (X roll, Y
// pitch, Z yaw).
func eulerFromQuat(q quat.Number) (roll, pitch, yaw float64) {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	sinp := 2 * (w*y - z*x)
	switch {
	case sinp >= 1:
		pitch = math.Pi / 2
	case sinp <= -1:
		pitch = -math.Pi / 2
	default:
		pitch = math.Asin(sinp)
	}
	yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return roll, pitch, yaw
}

// rotateZXY applies R_z(yaw)·R_x(pitch)·R_y(roll) to v, the rotation order
// the design note calls out as specific to the sensor's axis swap.
func rotateZXY(v r3.Vector, roll, pitch, yaw float64) r3.Vector {
	// R_y(roll)
	cr, sr := math.Cos(roll), math.Sin(roll)
	v = r3.Vector{
		X: v.X*cr + v.Z*sr,
		Y: v.Y,
		Z: -v.X*sr + v.Z*cr,
	}
	// R_x(pitch)
	cp, sp := math.Cos(pitch), math.Sin(pitch)
	v = r3.Vector{
		X: v.X,
		Y: v.Y*cp - v.Z*sp,
		Z: v.Y*sp + v.Z*cp,
	}
	// R_z(yaw)
	cy, sy := math.Cos(yaw), math.Sin(yaw)
	v = r3.Vector{
		X: v.X*cy - v.Y*sy,
		Y: v.X*sy + v.Y*cy,
		Z: v.Z,
	}
	return v
}

// Latest returns the most recently added sample and whether the ring has
// any samples at all.
func (r *Ring) Latest() (Sample, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return Sample{}, false
	}
	return r.buf[r.head], true
}

// Interpolate locates the two samples bracketing t and linearly blends
// orientation, velocity and position between them, unwrapping yaw
// discontinuities across ±π. If t is before the oldest sample or the ring
// is empty, it returns the oldest (or zero) sample unmodified.
func (r *Ring) Interpolate(t time.Time) Sample {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return Sample{}
	}

	// Walk the ring from oldest to newest looking for the first sample
	// whose timestamp exceeds t, mirroring the source's "advance a pointer
	// through the ring until its timestamp exceeds t" search.
	oldestIdx := (r.head - r.count + 1 + len(r.buf)) % len(r.buf)
	var prevIdx, nextIdx int
	found := false
	prevIdx = oldestIdx
	for n := 0; n < r.count; n++ {
		idx := (oldestIdx + n) % len(r.buf)
		if r.buf[idx].T.After(t) {
			nextIdx = idx
			found = true
			break
		}
		prevIdx = idx
	}

	if !found {
		return r.buf[r.head]
	}
	if prevIdx == nextIdx {
		return r.buf[nextIdx]
	}

	prev, next := r.buf[prevIdx], r.buf[nextIdx]
	span := next.T.Sub(prev.T).Seconds()
	if span <= 0 {
		return prev
	}
	frac := t.Sub(prev.T).Seconds() / span
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}

	return Sample{
		T:               t,
		Roll:            lerp(prev.Roll, next.Roll, frac),
		Pitch:           lerp(prev.Pitch, next.Pitch, frac),
		Yaw:             lerpAngleUnwrap(prev.Yaw, next.Yaw, frac),
		AccWorld:        prev.AccWorld.Mul(1 - frac).Add(next.AccWorld.Mul(frac)),
		OmegaBody:       prev.OmegaBody.Mul(1 - frac).Add(next.OmegaBody.Mul(frac)),
		VWorld:          prev.VWorld.Mul(1 - frac).Add(next.VWorld.Mul(frac)),
		PosWorld:        prev.PosWorld.Mul(1 - frac).Add(next.PosWorld.Mul(frac)),
		AngularRotWorld: prev.AngularRotWorld.Mul(1 - frac).Add(next.AngularRotWorld.Mul(frac)),
	}
}

func lerp(a, b, frac float64) float64 {
	return a + (b-a)*frac
}

// lerpAngleUnwrap blends two angles, taking the shorter path across a ±π
// discontinuity rather than the raw numeric difference.
func lerpAngleUnwrap(a, b, frac float64) float64 {
	diff := b - a
	for diff > math.Pi {
		diff -= 2 * math.Pi
	}
	for diff < -math.Pi {
		diff += 2 * math.Pi
	}
	return a + diff*frac
}
