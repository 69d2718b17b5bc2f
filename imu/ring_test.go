package imu

import (
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestRingLatestEmpty(t *testing.T) {
	r := NewRing(0.1, 0)
	_, ok := r.Latest()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestRingAddSampleTracksLatest(t *testing.T) {
	r := NewRing(0.1, 0)
	base := time.Now()
	r.AddSample(quat.Number{Real: 1}, r3.Vector{}, r3.Vector{}, base)
	r.AddSample(quat.Number{Real: 1}, r3.Vector{}, r3.Vector{}, base.Add(10*time.Millisecond))

	s, ok := r.Latest()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, s.T.Equal(base.Add(10*time.Millisecond)), test.ShouldBeTrue)
}

func TestRingInterpolateBlendsBetweenSamples(t *testing.T) {
	r := NewRing(0.2, 0)
	base := time.Now()
	r.AddSample(quat.Number{Real: 1}, r3.Vector{}, r3.Vector{}, base)
	// second sample carries nonzero acceleration so velocity integrates.
	r.AddSample(quat.Number{Real: 1}, r3.Vector{X: 1}, r3.Vector{}, base.Add(100*time.Millisecond))

	mid := r.Interpolate(base.Add(50 * time.Millisecond))
	test.That(t, mid.T.Equal(base.Add(50*time.Millisecond)), test.ShouldBeTrue)
}

func TestRingInterpolateBeforeOldestReturnsOldest(t *testing.T) {
	r := NewRing(0.2, 0)
	base := time.Now()
	r.AddSample(quat.Number{Real: 1}, r3.Vector{}, r3.Vector{}, base)

	got := r.Interpolate(base.Add(-time.Second))
	test.That(t, got.T.Equal(base), test.ShouldBeTrue)
}

func TestRingResetsIntegrationAcrossLargeGap(t *testing.T) {
	r := NewRing(0.05, 0)
	base := time.Now()
	r.AddSample(quat.Number{Real: 1}, r3.Vector{X: 1}, r3.Vector{}, base)
	// gap exceeds scanPeriod: integration should reset to zero, not carry
	// forward a stale velocity.
	r.AddSample(quat.Number{Real: 1}, r3.Vector{X: 1}, r3.Vector{}, base.Add(time.Second))

	s, ok := r.Latest()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, s.VWorld, test.ShouldResemble, r3.Vector{})
}
