// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package surface

import "gonum.org/v1/gonum/mat"

// BicubicSpline evaluates a 2-D coefficient grid at fractional coordinates
// via a tensor product of natural cubic splines: one pass along rows, one
// along the resulting column of row-interpolated values. Boundary
// coordinates are clamped to the grid extent rather than extrapolated.
type BicubicSpline struct {
	nx, ny int
	grid   [][]float64 // ny rows of nx samples
	rowM2  [][]float64 // ny rows of nx second derivatives
}

// NewBicubicSpline builds a spline surface over an ny x nx coefficient
// grid (row-major, y-major outer index) evaluated at full image resolution
// to upsample an A or B matrix from the normalization solve.
func NewBicubicSpline(values []float32, nx, ny int) *BicubicSpline {
	grid := make([][]float64, ny)
	rowM2 := make([][]float64, ny)
	for j := 0; j < ny; j++ {
		row := make([]float64, nx)
		for i := 0; i < nx; i++ {
			row[i] = float64(values[j*nx+i])
		}
		grid[j] = row
		rowM2[j] = naturalCubicSpline2ndDerivs(row)
	}
	return &BicubicSpline{nx: nx, ny: ny, grid: grid, rowM2: rowM2}
}

// Eval samples the surface at fractional grid coordinates (x,y), clamped
// to [0,nx-1] x [0,ny-1].
func (s *BicubicSpline) Eval(x, y float64) float32 {
	if x < 0 {
		x = 0
	}
	if x > float64(s.nx-1) {
		x = float64(s.nx - 1)
	}
	if y < 0 {
		y = 0
	}
	if y > float64(s.ny-1) {
		y = float64(s.ny - 1)
	}

	// Interpolate each row at x to build the column the final pass runs over.
	col := make([]float64, s.ny)
	for j := 0; j < s.ny; j++ {
		col[j] = cubicSplineEval(s.grid[j], s.rowM2[j], x)
	}
	colM2 := naturalCubicSpline2ndDerivs(col)
	return float32(cubicSplineEval(col, colM2, y))
}

// naturalCubicSpline2ndDerivs computes the second derivatives of a natural
// cubic spline through y[0..n-1] at unit-spaced knots 0..n-1, solving the
// interior tridiagonal system with gonum/mat.
func naturalCubicSpline2ndDerivs(y []float64) []float64 {
	n := len(y)
	m := make([]float64, n)
	if n < 3 {
		return m // straight line or single point: zero curvature everywhere
	}

	interior := n - 2
	a := mat.NewDense(interior, interior, nil)
	b := mat.NewVecDense(interior, nil)
	for r := 0; r < interior; r++ {
		i := r + 1
		a.Set(r, r, 4)
		if r > 0 {
			a.Set(r, r-1, 1)
		}
		if r < interior-1 {
			a.Set(r, r+1, 1)
		}
		b.SetVec(r, 6*(y[i+1]-2*y[i]+y[i-1]))
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return m // singular system: fall back to zero curvature (linear interpolation)
	}
	for r := 0; r < interior; r++ {
		m[r+1] = x.AtVec(r)
	}
	return m
}

// cubicSplineEval evaluates the natural cubic spline through y with
// precomputed second derivatives m, at unit-spaced knots 0..len(y)-1.
func cubicSplineEval(y, m []float64, x float64) float64 {
	n := len(y)
	if n == 1 {
		return y[0]
	}
	i := int(x)
	if i >= n-1 {
		i = n - 2
	}
	if i < 0 {
		i = 0
	}
	t := x - float64(i)
	a := float64(i+1) - x
	return (m[i]*a*a*a+m[i+1]*t*t*t)/6 +
		(y[i]-m[i]/6)*a +
		(y[i+1]-m[i+1]/6)*t
}
