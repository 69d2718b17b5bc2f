// Package motion implements the closed-form Euler-angle rotation composition
// and the de-skew point transforms shared by the Associator's correspondence
// search and transform-integration stages.
//
// Every function here operates in the camera-axis convention established by
// the de-skew stage's axis swap (x,y,z) ← (y,z,x): z forward, x right, y down.
// The rotation order and the sign conventions below are load-bearing — they
// match the analytical Jacobians used by the LM solve — and are preserved
// bit-for-bit rather than rederived.
package motion

import "math"

// Transform6 is (rx, ry, rz, tx, ty, tz): a rotation (pitch, yaw, roll in
// the swapped axes) followed by a translation, in the camera-axis
// convention.
type Transform6 [6]float64

func (t Transform6) Rx() float64 { return t[0] }
func (t Transform6) Ry() float64 { return t[1] }
func (t Transform6) Rz() float64 { return t[2] }
func (t Transform6) Tx() float64 { return t[3] }
func (t Transform6) Ty() float64 { return t[4] }
func (t Transform6) Tz() float64 { return t[5] }

// SanitizeNaN resets any NaN component of t to 0, the recovery rule applied
// after every LM step and after AccumulateRotation/PluginIMURotation.
func (t *Transform6) SanitizeNaN() {
	for i, v := range t {
		if math.IsNaN(v) {
			t[i] = 0
		}
	}
}

// Point3 is a bare 3-vector, used here instead of pointcloud.Point because
// these transforms operate on plain geometry without an intensity payload.
type Point3 struct{ X, Y, Z float64 }

// rotateZ, rotateX, rotateY rotate about the named axis by theta using the
// standard right-handed convention. These are the primitives both the
// forward and inverse Euler composition below are built from.
func rotateZ(p Point3, theta float64) Point3 {
	c, s := math.Cos(theta), math.Sin(theta)
	return Point3{X: c*p.X - s*p.Y, Y: s*p.X + c*p.Y, Z: p.Z}
}

func rotateX(p Point3, theta float64) Point3 {
	c, s := math.Cos(theta), math.Sin(theta)
	return Point3{X: p.X, Y: c*p.Y - s*p.Z, Z: s*p.Y + c*p.Z}
}

func rotateY(p Point3, theta float64) Point3 {
	c, s := math.Cos(theta), math.Sin(theta)
	return Point3{X: c*p.X + s*p.Z, Y: p.Y, Z: -s*p.X + c*p.Z}
}

// rotateByEuler applies, in order, rotation about y by ry, then about x by
// rx, then about z by rz — the rotation order the de-skew and LM Jacobians
// are built around.
func rotateByEuler(p Point3, rx, ry, rz float64) Point3 {
	p = rotateY(p, ry)
	p = rotateX(p, rx)
	p = rotateZ(p, rz)
	return p
}

// rotateByEulerInverse undoes rotateByEuler: about z by -rz, then about x
// by -rx, then about y by -ry.
func rotateByEulerInverse(p Point3, rx, ry, rz float64) Point3 {
	p = rotateZ(p, -rz)
	p = rotateX(p, -rx)
	p = rotateY(p, -ry)
	return p
}

// TransformToStart de-skews p (captured at relTime ∈ [0,1] through the
// sweep, intensity-encoded by the caller) into the sweep-start frame, using
// the current inter-sweep transform estimate scaled linearly by relTime —
// the same "interpolate the transform, not just the IMU hint" approximation
// the LM solve's Jacobians are linearized around.
func TransformToStart(p Point3, relTime float64, cur Transform6) Point3 {
	rx := cur.Rx() * relTime
	ry := cur.Ry() * relTime
	rz := cur.Rz() * relTime
	tx := cur.Tx() * relTime
	ty := cur.Ty() * relTime
	tz := cur.Tz() * relTime

	shifted := Point3{X: p.X - tx, Y: p.Y - ty, Z: p.Z - tz}
	return rotateByEulerInverse(shifted, rx, ry, rz)
}

// TransformToEnd de-skews p all the way to the sweep-end frame: first to
// the sweep-start frame via TransformToStart, then forward by the full
// (non-scaled) transform, then re-anchored from the IMU orientation
// captured at sweep start into the IMU orientation captured at the sweep's
// last point — the same re-anchoring deskew's rotateForward/rotateInverse
// apply per point, here applied once with the sweep's start/last IMU
// samples since the scan-match transform itself is already in the
// sweep-end frame at this point.
func TransformToEnd(p Point3, relTime float64, cur Transform6,
	startRoll, startPitch, startYaw, lastRoll, lastPitch, lastYaw float64,
) Point3 {
	start := TransformToStart(p, relTime, cur)
	rotated := rotateByEuler(start, cur.Rx(), cur.Ry(), cur.Rz())
	shifted := Point3{
		X: rotated.X + cur.Tx(),
		Y: rotated.Y + cur.Ty(),
		Z: rotated.Z + cur.Tz(),
	}

	imuStart := rotateByIMUOrientation(shifted, startRoll, startPitch, startYaw)
	return rotateByIMUOrientationInverse(imuStart, lastRoll, lastPitch, lastYaw)
}

// rotateByIMUOrientation applies, in order, rotation about z by roll, then
// about x by pitch, then about y by yaw — the same forward IMU-orientation
// rotation associator.deskew's rotateForward applies to de-skew a single
// point, used here once per TransformToEnd call to re-anchor into the
// sweep-start IMU frame.
func rotateByIMUOrientation(p Point3, roll, pitch, yaw float64) Point3 {
	p = rotateZ(p, roll)
	p = rotateX(p, pitch)
	p = rotateY(p, yaw)
	return p
}

// rotateByIMUOrientationInverse undoes rotateByIMUOrientation: about y by
// -yaw, then about x by -pitch, then about z by -roll.
func rotateByIMUOrientationInverse(p Point3, roll, pitch, yaw float64) Point3 {
	p = rotateY(p, -yaw)
	p = rotateX(p, -pitch)
	p = rotateZ(p, -roll)
	return p
}

// AccumulateRotation composes a previous orientation (cx, cy, cz) with a
// newly estimated delta (lx, ly, lz) using the closed-form Euler identities:
// asin for pitch, atan2 for yaw and roll. Called as
// AccumulateRotation(transformSum, -transformCur) — this is the rotation
// half of transformSum ⊕= −transformCur.
func AccumulateRotation(cx, cy, cz, lx, ly, lz float64) (ox, oy, oz float64) {
	srx := math.Cos(lx)*math.Cos(cx)*math.Sin(ly)*math.Sin(cz) -
		math.Cos(cx)*math.Cos(cz)*math.Sin(lx) -
		math.Cos(lx)*math.Cos(ly)*math.Sin(cx)
	ox = -math.Asin(clamp(srx, -1, 1))

	srycrx := math.Sin(lx)*(math.Cos(cy)*math.Sin(cz)-math.Cos(cz)*math.Sin(cx)*math.Sin(cy)) +
		math.Cos(lx)*math.Sin(ly)*(math.Cos(cy)*math.Cos(cz)+math.Sin(cx)*math.Sin(cy)*math.Sin(cz)) +
		math.Cos(lx)*math.Cos(ly)*math.Cos(cx)*math.Sin(cy)
	crycrx := math.Cos(lx)*math.Cos(ly)*math.Cos(cx)*math.Cos(cy) -
		math.Cos(lx)*math.Sin(ly)*(math.Cos(cz)*math.Sin(cy)-math.Cos(cy)*math.Sin(cx)*math.Sin(cz)) -
		math.Sin(lx)*(math.Sin(cy)*math.Sin(cz)+math.Cos(cy)*math.Cos(cz)*math.Sin(cx))
	oy = math.Atan2(srycrx, crycrx)

	srzcrx := math.Sin(cx)*(math.Cos(lz)*math.Sin(ly)-math.Cos(ly)*math.Sin(lx)*math.Sin(lz)) +
		math.Cos(cx)*math.Sin(cz)*(math.Cos(ly)*math.Cos(lz)+math.Sin(lx)*math.Sin(ly)*math.Sin(lz)) +
		math.Cos(lx)*math.Cos(cx)*math.Cos(cz)*math.Sin(lz)
	crzcrx := math.Cos(lx)*math.Cos(lz)*math.Cos(cx)*math.Cos(cz) -
		math.Cos(cx)*math.Sin(cz)*(math.Cos(ly)*math.Sin(lz)-math.Cos(lz)*math.Sin(lx)*math.Sin(ly)) -
		math.Sin(cx)*(math.Sin(ly)*math.Sin(lz)+math.Cos(ly)*math.Cos(lz)*math.Sin(lx))
	oz = math.Atan2(srzcrx, crzcrx)
	return ox, oy, oz
}

// PluginIMURotation replaces the accumulated rotation's contribution from
// the scan match with the same rotation composed through the IMU's
// measured orientation change between sweep start (bl*) and sweep end
// (al*), given the accumulated rotation bc* going in. Ported term-for-term
// from the closed-form composition the source derives by hand; not
// reducible to a small-angle approximation without losing accuracy at
// moderate angular rates.
func PluginIMURotation(bcx, bcy, bcz,
	blx, bly, blz,
	alx, aly, alz float64,
) (acx, acy, acz float64) {
	sbcx, cbcx := math.Sin(bcx), math.Cos(bcx)
	sbcy, cbcy := math.Sin(bcy), math.Cos(bcy)
	sbcz, cbcz := math.Sin(bcz), math.Cos(bcz)

	sblx, cblx := math.Sin(blx), math.Cos(blx)
	sbly, cbly := math.Sin(bly), math.Cos(bly)
	sblz, cblz := math.Sin(blz), math.Cos(blz)

	salx, calx := math.Sin(alx), math.Cos(alx)
	saly, caly := math.Sin(aly), math.Cos(aly)
	salz, calz := math.Sin(alz), math.Cos(alz)

	srx := -sbcx*(salx*sblx+calx*caly*cblx*cbly+calx*cblx*saly*sbly) -
		cbcx*cbcz*(calx*saly*(cbly*sblz-cblz*sblx*sbly)-
			calx*caly*(sbly*sblz+cbly*cblz*sblx)+
			cblx*cblz*salx) -
		cbcx*sbcz*(calx*caly*(cblz*sbly-cbly*sblx*sblz)-
			calx*saly*(cbly*cblz+sblx*sbly*sblz)+
			cblx*salx*sblz)
	acx = -math.Asin(clamp(srx, -1, 1))

	srycrx := (cbcy*sbcz-cbcz*sbcx*sbcy)*
		(calx*saly*(cbly*sblz-cblz*sblx*sbly)-
			calx*caly*(sbly*sblz+cbly*cblz*sblx)+
			cblx*cblz*salx) -
		(cbcy*cbcz+sbcx*sbcy*sbcz)*
			(calx*caly*(cblz*sbly-cbly*sblx*sblz)-
				calx*saly*(cbly*cblz+sblx*sbly*sblz)+
				cblx*salx*sblz) +
		cbcx*sbcy*(salx*sblx+calx*caly*cblx*cbly+calx*cblx*saly*sbly)
	crycrx := (cbcz*sbcy-cbcy*sbcx*sbcz)*
		(calx*caly*(cblz*sbly-cbly*sblx*sblz)-
			calx*saly*(cbly*cblz+sblx*sbly*sblz)+
			cblx*salx*sblz) -
		(sbcy*sbcz+cbcy*cbcz*sbcx)*
			(calx*saly*(cbly*sblz-cblz*sblx*sbly)-
				calx*caly*(sbly*sblz+cbly*cblz*sblx)+
				cblx*cblz*salx) +
		cbcx*cbcy*(salx*sblx+calx*caly*cblx*cbly+calx*cblx*saly*sbly)
	acy = math.Atan2(srycrx, crycrx)

	srzcrx := sbcx*(cblx*cbly*(calz*saly-caly*salx*salz)-
		cblx*sbly*(caly*calz+salx*saly*salz)+
		calx*salz*sblx) -
		cbcx*cbcz*((caly*calz+salx*saly*salz)*(cbly*sblz-cblz*sblx*sbly)+
			(calz*saly-caly*salx*salz)*(sbly*sblz+cbly*cblz*sblx)-
			calx*cblx*cblz*salz) +
		cbcx*sbcz*((caly*calz+salx*saly*salz)*(cbly*cblz+sblx*sbly*sblz)+
			(calz*saly-caly*salx*salz)*(cblz*sbly-cbly*sblx*sblz)+
			calx*cblx*salz*sblz)
	crzcrx := sbcx*(cblx*sbly*(caly*salz-calz*salx*saly)-
		cblx*cbly*(saly*salz+caly*calz*salx)+
		calx*calz*sblx) +
		cbcx*cbcz*((saly*salz+caly*calz*salx)*(sbly*sblz+cbly*cblz*sblx)+
			(caly*salz-calz*salx*saly)*(cbly*sblz-cblz*sblx*sbly)+
			calx*calz*cblx*cblz) -
		cbcx*sbcz*((saly*salz+caly*calz*salx)*(cblz*sbly-cbly*sblx*sblz)+
			(caly*salz-calz*salx*saly)*(cbly*cblz+sblx*sbly*sblz)-
			calx*calz*cblx*sblz)
	acz = math.Atan2(srzcrx, crzcrx)

	return acx, acy, acz
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
