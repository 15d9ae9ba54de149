package extension

import (
	"bufio"
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"
)

// Program is the matrix form of a model's constraints: G x <= h and A x = b.
// G and A are nil when there are no rows of that kind.
type Program struct {
	Vars   []Var
	G      *mat.Dense
	H      []float64
	GRows  []string
	A      *mat.Dense
	B      []float64
	ARows  []string
	column map[Var]int
}

// Column returns the column of v.
func (p *Program) Column(v Var) (int, bool) {
	i, ok := p.column[v]
	return i, ok
}

// Assemble assigns a column to every variable, in order of first use, and
// builds the constraint matrices. Rows with ">=" are negated into "<=".
func (m *Model) Assemble() *Program {
	p := &Program{column: make(map[Var]int)}
	type row struct {
		name  string
		terms []Term
		rhs   float64
	}
	var ineq, eq []row
	for _, c := range m.Constraints {
		lhs, rhs := c.Normalized()
		for _, t := range lhs.Terms {
			if _, ok := p.column[t.Var]; !ok {
				p.column[t.Var] = len(p.Vars)
				p.Vars = append(p.Vars, t.Var)
			}
		}
		r := row{name: c.RowName(), terms: lhs.Terms, rhs: rhs}
		switch c.Sense {
		case Equal:
			eq = append(eq, r)
		case GreaterEqual:
			neg := make([]Term, len(r.terms))
			for i, t := range r.terms {
				neg[i] = Term{Var: t.Var, Coef: -t.Coef}
			}
			r.terms, r.rhs = neg, -r.rhs
			ineq = append(ineq, r)
		default:
			ineq = append(ineq, r)
		}
	}

	fill := func(rows []row) (*mat.Dense, []float64, []string) {
		if len(rows) == 0 || len(p.Vars) == 0 {
			return nil, nil, nil
		}
		d := mat.NewDense(len(rows), len(p.Vars), nil)
		rhs := make([]float64, len(rows))
		names := make([]string, len(rows))
		for i, r := range rows {
			for _, t := range r.terms {
				j := p.column[t.Var]
				d.Set(i, j, d.At(i, j)+t.Coef)
			}
			rhs[i] = r.rhs
			names[i] = r.name
		}
		return d, rhs, names
	}
	p.G, p.H, p.GRows = fill(ineq)
	p.A, p.B, p.ARows = fill(eq)
	return p
}

// WriteLP writes the rows in CPLEX LP syntax. No objective or bounds are
// written, so every variable keeps the format's default lower bound of 0.
func (p *Program) WriteLP(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "\\ model extension constraints")
	fmt.Fprintln(bw, "Subject To")
	write := func(d *mat.Dense, rhs []float64, names []string, sense string) {
		for i, name := range names {
			fmt.Fprintf(bw, " %s:", name)
			n := 0
			for j, v := range p.Vars {
				c := d.At(i, j)
				if c == 0 {
					continue
				}
				switch {
				case c < 0:
					fmt.Fprintf(bw, " - %g %s", -c, v)
				case n == 0:
					fmt.Fprintf(bw, " %g %s", c, v)
				default:
					fmt.Fprintf(bw, " + %g %s", c, v)
				}
				n++
			}
			if n == 0 {
				fmt.Fprint(bw, " 0 "+p.Vars[0].String())
			}
			fmt.Fprintf(bw, " %s %g\n", sense, rhs[i])
		}
	}
	if p.G != nil {
		write(p.G, p.H, p.GRows, "<=")
	}
	if p.A != nil {
		write(p.A, p.B, p.ARows, "=")
	}
	fmt.Fprintln(bw, "End")
	return bw.Flush()
}
