package associator

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/viamlidar/lidarodometry/motion"
	"github.com/viamlidar/lidarodometry/pointcloud"
)

// degeneracyEigenThreshold is the per-direction eigenvalue floor below which
// a normal-equations direction is treated as unconstrained and projected
// out of the update rather than solved for.
const degeneracyEigenThreshold = 10.0

// lmState carries the degeneracy projection matrix computed once per phase,
// on that phase's first iteration, and reused for every later iteration.
type lmState struct {
	degenerate bool
	proj       *mat.Dense
}

// jacobian maps one residual to its 3 partial derivatives with respect to
// the phase's 3 free transform components.
type jacobian func(residual) (float64, float64, float64)

// solveLM3 builds the 3-unknown normal equations AᵀA·x = Aᵀb from residuals
// via jac, solves by QR, and on the phase's first iteration additionally
// eigendecomposes AᵀA to build (and thereafter apply) the degeneracy
// projection. NaN components of the returned update are reset to 0.
func solveLM3(residuals []residual, jac jacobian, iterCount int, st *lmState) (d0, d1, d2 float64, ok bool) {
	n := len(residuals)
	if n == 0 {
		return 0, 0, 0, false
	}

	a := mat.NewDense(n, 3, nil)
	b := mat.NewDense(n, 1, nil)
	for i, res := range residuals {
		a0, a1, a2 := jac(res)
		a.Set(i, 0, a0)
		a.Set(i, 1, a1)
		a.Set(i, 2, a2)
		b.Set(i, 0, -0.05*res.d2)
	}

	var ata, atb mat.Dense
	ata.Mul(a.T(), a)
	atb.Mul(a.T(), b)

	var qr mat.QR
	qr.Factorize(&ata)
	var x mat.Dense
	if err := qr.SolveTo(&x, false, &atb); err != nil {
		return 0, 0, 0, false
	}

	if iterCount == 0 {
		*st = buildDegeneracyProjection(&ata)
	}

	if st.degenerate {
		var x2 mat.Dense
		x2.Mul(st.proj, &x)
		x = x2
	}

	d0, d1, d2 = x.At(0, 0), x.At(1, 0), x.At(2, 0)
	if math.IsNaN(d0) {
		d0 = 0
	}
	if math.IsNaN(d1) {
		d1 = 0
	}
	if math.IsNaN(d2) {
		d2 = 0
	}
	return d0, d1, d2, true
}

// buildDegeneracyProjection eigendecomposes the symmetric 3x3 AᵀA, zeroes
// the rows of the eigenvector matrix V (one eigenvector per row) whose
// eigenvalue falls below degeneracyEigenThreshold, and returns P = V⁻¹·V₂ —
// the matrix later iterations' raw updates get projected through.
func buildDegeneracyProjection(ata *mat.Dense) lmState {
	sym := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			sym.SetSym(i, j, ata.At(i, j))
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return lmState{degenerate: false}
	}
	values := eig.Values(nil)

	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	// EigenSym stores eigenvectors as columns, with values ascending; the
	// transpose puts eigenvector i in row i.
	v := mat.DenseCopyOf(vecs.T())
	v2 := mat.DenseCopyOf(v)

	degenerate := false
	for i := 0; i < 3; i++ {
		if values[i] < degeneracyEigenThreshold {
			for j := 0; j < 3; j++ {
				v2.Set(i, j, 0)
			}
			degenerate = true
		} else {
			break
		}
	}

	var vInv mat.Dense
	if err := vInv.Inverse(v); err != nil {
		return lmState{degenerate: false}
	}
	proj := mat.NewDense(3, 3, nil)
	proj.Mul(&vInv, v2)

	return lmState{degenerate: degenerate, proj: proj}
}

func square(v float64) float64 { return v * v }

func radToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// surfJacobian precomputes the a1..a11/b1,b2,b5,b6/c1..c9 coefficients the
// surf-phase Jacobian is built from and returns a closure evaluating
// (arx, arz, aty) for one residual.
func surfJacobian(cur motion.Transform6) jacobian {
	srx, crx := math.Sin(cur.Rx()), math.Cos(cur.Rx())
	sry, cry := math.Sin(cur.Ry()), math.Cos(cur.Ry())
	srz, crz := math.Sin(cur.Rz()), math.Cos(cur.Rz())
	tx, ty, tz := cur.Tx(), cur.Ty(), cur.Tz()

	a1 := crx * sry * srz
	a2 := crx * crz * sry
	a3 := srx * sry
	a4 := tx*a1 - ty*a2 - tz*a3
	a5 := srx * srz
	a6 := crz * srx
	a7 := ty*a6 - tz*crx - tx*a5
	a8 := crx * cry * srz
	a9 := crx * cry * crz
	a10 := cry * srx
	a11 := tz*a10 + ty*a9 - tx*a8

	b1 := -crz*sry - cry*srx*srz
	b2 := cry*crz*srx - sry*srz
	b5 := cry*crz - srx*sry*srz
	b6 := cry*srz + crz*srx*sry

	c1 := -b6
	c2 := b5
	c3 := tx*b6 - ty*b5
	c4 := -crx * crz
	c5 := crx * srz
	c6 := ty*c5 - tx*c4
	c7 := b2
	c8 := -b1
	c9 := -tx*b2 + ty*b1

	return func(res residual) (float64, float64, float64) {
		p, coeff := res.pointOri, res.coeff

		arx := (-a1*p.X+a2*p.Y+a3*p.Z+a4)*coeff.X +
			(a5*p.X-a6*p.Y+crx*p.Z+a7)*coeff.Y +
			(a8*p.X-a9*p.Y-a10*p.Z+a11)*coeff.Z

		arz := (c1*p.X+c2*p.Y+c3)*coeff.X +
			(c4*p.X-c5*p.Y+c6)*coeff.Y +
			(c7*p.X+c8*p.Y+c9)*coeff.Z

		aty := -b6*coeff.X + c4*coeff.Y + b2*coeff.Z

		return arx, arz, aty
	}
}

// cornerJacobian is surfJacobian's counterpart for the corner phase,
// returning a closure evaluating (ary, atx, atz).
func cornerJacobian(cur motion.Transform6) jacobian {
	srx, crx := math.Sin(cur.Rx()), math.Cos(cur.Rx())
	sry, cry := math.Sin(cur.Ry()), math.Cos(cur.Ry())
	srz, crz := math.Sin(cur.Rz()), math.Cos(cur.Rz())
	tx, ty, tz := cur.Tx(), cur.Ty(), cur.Tz()

	b1 := -crz*sry - cry*srx*srz
	b2 := cry*crz*srx - sry*srz
	b3 := crx * cry
	b4 := -tx*b1 - ty*b2 + tz*b3
	b5 := cry*crz - srx*sry*srz
	b6 := cry*srz + crz*srx*sry
	b7 := crx * sry
	b8 := tz*b7 - ty*b6 - tx*b5

	c5 := crx * srz

	return func(res residual) (float64, float64, float64) {
		p, coeff := res.pointOri, res.coeff

		ary := (b1*p.X+b2*p.Y-b3*p.Z+b4)*coeff.X +
			(b5*p.X+b6*p.Y-b7*p.Z+b8)*coeff.Z

		atx := -b5*coeff.X + c5*coeff.Y + b1*coeff.Z
		atz := b7*coeff.X - srx*coeff.Y - b3*coeff.Z

		return ary, atx, atz
	}
}

// solveSurfPhase runs up to 25 LM iterations matching flat against
// a.surfLast, mutating transformCur's rx/rz/ty components, stopping early
// once an iteration's update falls below the convergence threshold.
func (a *Associator) solveSurfPhase(flat pointcloud.Cloud) {
	if len(a.cornerLast) < 10 || len(a.surfLast) < 100 || a.surfTree == nil {
		return
	}

	matches := make([]pointMatch, len(flat))
	var st lmState

	for iter := 0; iter < 25; iter++ {
		residuals := findSurfCorrespondences(flat, a.surfLast, a.surfTree, a.transformCur, iter, a.cfg.ScanPeriod, a.cfg.NearestFeatureSearchSqDist, matches)
		if len(residuals) < 10 {
			continue
		}

		d0, d1, d2, ok := solveLM3(residuals, surfJacobian(a.transformCur), iter, &st)
		if !ok {
			break
		}

		a.transformCur[0] += d0
		a.transformCur[2] += d1
		a.transformCur[4] += d2
		a.transformCur.SanitizeNaN()

		deltaR := math.Sqrt(square(radToDeg(d0)) + square(radToDeg(d1)))
		deltaT := math.Sqrt(square(d2 * 100))
		if deltaR < 0.1 && deltaT < 0.1 {
			break
		}
	}
}

// solveCornerPhase is solveSurfPhase's edge-feature counterpart, mutating
// transformCur's ry/tx/tz components against sharp and a.cornerLast.
func (a *Associator) solveCornerPhase(sharp pointcloud.Cloud) {
	if len(a.cornerLast) < 10 || len(a.surfLast) < 100 || a.cornerTree == nil {
		return
	}

	matches := make([]pointMatch, len(sharp))
	var st lmState

	for iter := 0; iter < 25; iter++ {
		residuals := findCornerCorrespondences(sharp, a.cornerLast, a.cornerTree, a.transformCur, iter, a.cfg.ScanPeriod, a.cfg.NearestFeatureSearchSqDist, matches)
		if len(residuals) < 10 {
			continue
		}

		d0, d1, d2, ok := solveLM3(residuals, cornerJacobian(a.transformCur), iter, &st)
		if !ok {
			break
		}

		a.transformCur[1] += d0
		a.transformCur[3] += d1
		a.transformCur[5] += d2
		a.transformCur.SanitizeNaN()

		deltaR := math.Sqrt(square(radToDeg(d0)))
		deltaT := math.Sqrt(square(d1*100) + square(d2*100))
		if deltaR < 0.1 && deltaT < 0.1 {
			break
		}
	}
}
