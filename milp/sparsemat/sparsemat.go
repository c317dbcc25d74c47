// Package sparsemat provides the sparse row/variable model shared by both
// MILP builders (milp/disjunctive.go, milp/positional.go): a Model
// accumulates Variables and Rows, and can materialize either a dense
// coefficient matrix or a free-format MPS stream for an external solver.
//
// Grounded on the teacher pack's matrix package idiom (a Dense numeric
// type behind sentinel-error-returning accessors, doc comments naming
// complexity), reshaped here for LP row assembly instead of dense graph
// adjacency.
package sparsemat

import (
	"errors"
	"fmt"
	"io"
	"sort"
)

// Sentinel errors for model construction.
var (
	// ErrInvalidArgument indicates an out-of-range variable/row index or a
	// malformed bound.
	ErrInvalidArgument = errors.New("sparsemat: invalid argument")
)

// VarKind is a variable's domain.
type VarKind int

const (
	Continuous VarKind = iota
	Integer
	Binary
)

// RowSense is a linear constraint's comparison operator.
type RowSense int

const (
	LE RowSense = iota // <=
	GE                 // >=
	EQ                 // =
)

func (s RowSense) mpsSense() string {
	switch s {
	case GE:
		return "G"
	case EQ:
		return "E"
	default:
		return "L"
	}
}

// Variable is one LP/MILP column.
type Variable struct {
	Name       string
	Kind       VarKind
	LowerBound float64
	UpperBound float64 // ignored when Kind == Binary (written as a 0/1 BV bound)
}

// Row is one linear constraint: Σ Coeffs[var]·x[var] {Sense} RHS. Coeffs
// maps a variable index (into Model.Vars) to its coefficient; zero/absent
// entries are implicit.
type Row struct {
	Name   string
	Coeffs map[int]float64
	Sense  RowSense
	RHS    float64
}

// Model accumulates the variables and rows of one MILP instance.
type Model struct {
	Vars []Variable
	Rows []Row

	ObjectiveName string
	Objective     map[int]float64 // variable index -> coefficient, minimize
}

// NewModel returns an empty Model.
func NewModel(objectiveName string) *Model {
	return &Model{ObjectiveName: objectiveName, Objective: make(map[int]float64)}
}

// AddVariable appends a variable and returns its index.
func (m *Model) AddVariable(v Variable) int {
	m.Vars = append(m.Vars, v)

	return len(m.Vars) - 1
}

// AddRow appends a row. Every coefficient key must reference a variable
// already added to Model.Vars.
func (m *Model) AddRow(r Row) (int, error) {
	for idx := range r.Coeffs {
		if idx < 0 || idx >= len(m.Vars) {
			return 0, ErrInvalidArgument
		}
	}
	m.Rows = append(m.Rows, r)

	return len(m.Rows) - 1, nil
}

// SetObjectiveCoeff sets the objective coefficient of variable idx.
func (m *Model) SetObjectiveCoeff(idx int, coeff float64) error {
	if idx < 0 || idx >= len(m.Vars) {
		return ErrInvalidArgument
	}
	m.Objective[idx] = coeff

	return nil
}

// NumVars returns the number of variables.
func (m *Model) NumVars() int { return len(m.Vars) }

// NumRows returns the number of rows.
func (m *Model) NumRows() int { return len(m.Rows) }

// Dense is a plain numeric coefficient matrix, one row per constraint, one
// column per variable — the same "flat row-major buffer behind Rows/Cols
// accessors" shape as the teacher's dense matrix type.
type Dense struct {
	rows, cols int
	data       []float64
}

// NewDense returns a zero-filled rows x cols matrix.
func NewDense(rows, cols int) *Dense {
	return &Dense{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// Rows returns the row count.
func (d *Dense) Rows() int { return d.rows }

// Cols returns the column count.
func (d *Dense) Cols() int { return d.cols }

// At returns the coefficient at (row, col). Out-of-range indices return
// ErrInvalidArgument.
func (d *Dense) At(row, col int) (float64, error) {
	if row < 0 || row >= d.rows || col < 0 || col >= d.cols {
		return 0, ErrInvalidArgument
	}

	return d.data[row*d.cols+col], nil
}

// Set writes the coefficient at (row, col).
func (d *Dense) Set(row, col int, v float64) error {
	if row < 0 || row >= d.rows || col < 0 || col >= d.cols {
		return ErrInvalidArgument
	}
	d.data[row*d.cols+col] = v

	return nil
}

// Dense materializes the model's rows as a dense Rows()xNumVars() matrix.
//
// Complexity: O(rows·vars) in the worst case (dense allocation), O(nnz) to
// populate.
func (m *Model) Dense() (*Dense, error) {
	d := NewDense(len(m.Rows), len(m.Vars))
	for r, row := range m.Rows {
		for col, coeff := range row.Coeffs {
			if err := d.Set(r, col, coeff); err != nil {
				return nil, err
			}
		}
	}

	return d, nil
}

// WriteMPS writes the model in free-format MPS, the "write_mps" capability
// named in spec.md §6's backend interface. Grounded on the teacher's
// stream-export style in its matrix conversion helpers (iterate rows,
// iterate non-zero entries in a deterministic order).
func (m *Model) WriteMPS(w io.Writer) error {
	writeLine := func(format string, args ...any) error {
		_, err := fmt.Fprintf(w, format+"\n", args...)

		return err
	}

	if err := writeLine("NAME          %s", m.ObjectiveName); err != nil {
		return err
	}
	if err := writeLine("ROWS"); err != nil {
		return err
	}
	if err := writeLine(" N  COST"); err != nil {
		return err
	}
	for _, row := range m.Rows {
		if err := writeLine(" %s  %s", row.Sense.mpsSense(), row.Name); err != nil {
			return err
		}
	}

	if err := writeLine("COLUMNS"); err != nil {
		return err
	}
	for col, v := range m.Vars {
		if coeff, ok := m.Objective[col]; ok && coeff != 0 {
			if err := writeLine("    %s  COST  %g", v.Name, coeff); err != nil {
				return err
			}
		}
		rowIndices := make([]int, 0, len(m.Rows))
		for r, row := range m.Rows {
			if _, ok := row.Coeffs[col]; ok {
				rowIndices = append(rowIndices, r)
			}
		}
		sort.Ints(rowIndices)
		for _, r := range rowIndices {
			if err := writeLine("    %s  %s  %g", v.Name, m.Rows[r].Name, m.Rows[r].Coeffs[col]); err != nil {
				return err
			}
		}
	}

	if err := writeLine("RHS"); err != nil {
		return err
	}
	for _, row := range m.Rows {
		if row.RHS != 0 {
			if err := writeLine("    RHS  %s  %g", row.Name, row.RHS); err != nil {
				return err
			}
		}
	}

	if err := writeLine("BOUNDS"); err != nil {
		return err
	}
	for _, v := range m.Vars {
		switch v.Kind {
		case Binary:
			if err := writeLine(" BV BND  %s", v.Name); err != nil {
				return err
			}
		case Integer:
			if err := writeLine(" LI BND  %s  %g", v.Name, v.LowerBound); err != nil {
				return err
			}
			if err := writeLine(" UI BND  %s  %g", v.Name, v.UpperBound); err != nil {
				return err
			}
		default:
			if v.LowerBound != 0 {
				if err := writeLine(" LO BND  %s  %g", v.Name, v.LowerBound); err != nil {
					return err
				}
			}
			if v.UpperBound != 0 {
				if err := writeLine(" UP BND  %s  %g", v.Name, v.UpperBound); err != nil {
					return err
				}
			}
		}
	}

	return writeLine("ENDATA")
}
