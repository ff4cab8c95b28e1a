package tensor

import "cvxlab/internal/cverrors"

// Generator builds a constant matrix of the given shape. Registered
// generators are named by the `value` tag a constant-type variable
// declares.
type Generator func(rows, cols int) ([][]float64, error)

var generators = map[string]Generator{
	"identity":         identity,
	"eye":              identity,
	"ones":             ones,
	"zeros":            zeros,
	"arange_0":         arange(0),
	"arange_1":         arange(1),
	"lower_triangular": lowerTriangular,
}

// Generate invokes the named constant generator and wraps its result as
// an immutable ConvexTensor.
func Generate(name string, rows, cols int) (ConvexTensor, error) {
	gen, ok := generators[name]
	if !ok {
		return nil, cverrors.Settings("unknown constant generator %q", name)
	}
	matrix, err := gen(rows, cols)
	if err != nil {
		return nil, err
	}
	return NewConstant(matrix)
}

// KnownGenerators reports whether name is a registered constant
// generator, used by catalog validation (check 5) to reject unknown
// `value` tags eagerly.
func KnownGenerators(name string) bool {
	_, ok := generators[name]
	return ok
}

func identity(rows, cols int) ([][]float64, error) {
	if rows != cols {
		return nil, cverrors.Settings("identity/eye generator requires a square shape, got %dx%d", rows, cols)
	}
	out := make([][]float64, rows)
	for r := range out {
		out[r] = make([]float64, cols)
		out[r][r] = 1
	}
	return out, nil
}

func ones(rows, cols int) ([][]float64, error) {
	out := make([][]float64, rows)
	for r := range out {
		out[r] = make([]float64, cols)
		for c := range out[r] {
			out[r][c] = 1
		}
	}
	return out, nil
}

func zeros(rows, cols int) ([][]float64, error) {
	out := make([][]float64, rows)
	for r := range out {
		out[r] = make([]float64, cols)
	}
	return out, nil
}

// arange returns a generator filling a single-column (or single-row)
// shape with consecutive integers starting at start, matching whichever
// axis has length > 1.
func arange(start int) Generator {
	return func(rows, cols int) ([][]float64, error) {
		out := make([][]float64, rows)
		if rows == 1 {
			out[0] = make([]float64, cols)
			for c := range out[0] {
				out[0][c] = float64(start + c)
			}
			return out, nil
		}
		for r := range out {
			out[r] = make([]float64, cols)
			for c := range out[r] {
				out[r][c] = float64(start + r)
			}
		}
		return out, nil
	}
}

func lowerTriangular(rows, cols int) ([][]float64, error) {
	if rows != cols {
		return nil, cverrors.Settings("lower_triangular generator requires a square shape, got %dx%d", rows, cols)
	}
	out := make([][]float64, rows)
	for r := range out {
		out[r] = make([]float64, cols)
		for c := 0; c <= r; c++ {
			out[r][c] = 1
		}
	}
	return out, nil
}
