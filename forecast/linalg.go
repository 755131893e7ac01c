package forecast

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var errSingular = errors.New("singular design matrix")

// ridge solves min ||Xw - y||^2 + sum(penalty[j] * w[j]^2) through the
// normal equations (X'X + diag(penalty)) w = X'y, factorized by Cholesky.
func ridge(x [][]float64, y []float64, penalty []float64) ([]float64, error) {
	n, p := len(x), len(penalty)
	if n == 0 || p == 0 {
		return nil, errSingular
	}

	design := mat.NewDense(n, p, nil)
	for r, row := range x {
		design.SetRow(r, row[:p])
	}

	var gram mat.SymDense
	gram.SymOuterK(1, design.T())
	for j, pen := range penalty {
		gram.SetSym(j, j, gram.At(j, j)+pen)
	}

	var rhs mat.VecDense
	rhs.MulVec(design.T(), mat.NewVecDense(n, y))

	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); !ok {
		return nil, errSingular
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &rhs); err != nil {
		return nil, errSingular
	}

	out := mat.Col(nil, 0, &w)
	if floats.HasNaN(out) {
		return nil, errSingular
	}
	return out, nil
}

func dot(a, b []float64) float64 { return floats.Dot(a, b) }
