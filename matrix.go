package lgbm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/lgbm/pkg/errors"
)

// Layout describes how a flat buffer is ordered.
type Layout int

const (
	// RowMajor stores each row contiguously.
	RowMajor Layout = iota
	// ColMajor stores each column contiguously.
	ColMajor
)

func (l Layout) String() string {
	switch l {
	case RowMajor:
		return "row_major"
	case ColMajor:
		return "col_major"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// MatBuf is a dense feature matrix stored row-major.
type MatBuf struct {
	data []float64
	nrow int
	ncol int
}

// MatFromRows copies rows into a new matrix. Every row must have the same
// width. Zero rows yield an empty 0x0 matrix.
func MatFromRows(rows [][]float64) (*MatBuf, error) {
	if len(rows) == 0 {
		return &MatBuf{}, nil
	}
	ncol := len(rows[0])
	data := make([]float64, 0, len(rows)*ncol)
	for i, r := range rows {
		if len(r) != ncol {
			return nil, errors.Wrapf(errors.NewDimensionError("MatFromRows", ncol, len(r), 1), "row %d", i)
		}
		data = append(data, r...)
	}
	return &MatBuf{data: data, nrow: len(rows), ncol: ncol}, nil
}

// NewMatBuf wraps a flat buffer of nrow*ncol values. Column-major input is
// transposed into a fresh row-major buffer; row-major input is used as is.
func NewMatBuf(data []float64, nrow, ncol int, layout Layout) (*MatBuf, error) {
	if err := checkShape("NewMatBuf", len(data), nrow, ncol); err != nil {
		return nil, err
	}
	switch layout {
	case RowMajor:
		return &MatBuf{data: data, nrow: nrow, ncol: ncol}, nil
	case ColMajor:
		out := make([]float64, len(data))
		for j := 0; j < ncol; j++ {
			for i := 0; i < nrow; i++ {
				out[i*ncol+j] = data[j*nrow+i]
			}
		}
		return &MatBuf{data: out, nrow: nrow, ncol: ncol}, nil
	default:
		return nil, errors.NewValidationError("layout", "unknown layout", layout)
	}
}

// MatFromFloat32 widens a float32 buffer to float64.
func MatFromFloat32(data []float32, nrow, ncol int, layout Layout) (*MatBuf, error) {
	if err := checkShape("MatFromFloat32", len(data), nrow, ncol); err != nil {
		return nil, err
	}
	wide := make([]float64, len(data))
	for i, v := range data {
		wide[i] = float64(v)
	}
	return NewMatBuf(wide, nrow, ncol, layout)
}

// MatFromDense copies any gonum matrix.
func MatFromDense(m mat.Matrix) *MatBuf {
	r, c := m.Dims()
	data := make([]float64, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data[i*c+j] = m.At(i, j)
		}
	}
	return &MatBuf{data: data, nrow: r, ncol: c}
}

func checkShape(op string, n, nrow, ncol int) error {
	if nrow < 0 || ncol < 0 {
		return errors.NewValidationError("shape", "dimensions must be non-negative", [2]int{nrow, ncol})
	}
	if n != nrow*ncol {
		return errors.NewDimensionError(op, nrow*ncol, n, 0)
	}
	return nil
}

// Rows returns the number of rows.
func (m *MatBuf) Rows() int { return m.nrow }

// Cols returns the number of columns.
func (m *MatBuf) Cols() int { return m.ncol }

// At returns element (i, j).
func (m *MatBuf) At(i, j int) float64 { return m.data[i*m.ncol+j] }

// Row returns a copy of row i.
func (m *MatBuf) Row(i int) []float64 {
	out := make([]float64, m.ncol)
	copy(out, m.row(i))
	return out
}

func (m *MatBuf) row(i int) []float64 {
	return m.data[i*m.ncol : (i+1)*m.ncol]
}

func (m *MatBuf) empty() bool { return m == nil || m.nrow == 0 || m.ncol == 0 }

// Dense returns the matrix as a gonum Dense sharing no memory with m.
// An empty matrix returns nil since gonum does not allow zero dimensions.
func (m *MatBuf) Dense() *mat.Dense {
	if m.empty() {
		return nil
	}
	data := make([]float64, len(m.data))
	copy(data, m.data)
	return mat.NewDense(m.nrow, m.ncol, data)
}
