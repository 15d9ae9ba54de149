package extension

import (
	"fmt"
	"sort"
	"strings"
)

// Var names one element of an indexed decision variable of the external
// model, e.g. DispatchGen(g1,2050.01.00).
type Var struct {
	Name  string
	Index string // Comma-joined index tuple.
}

// V builds a Var from its index elements.
func V(name string, index ...string) Var {
	return Var{Name: name, Index: strings.Join(index, ",")}
}

// String renders the variable in LP syntax.
func (v Var) String() string {
	if v.Index == "" {
		return v.Name
	}
	return v.Name + "(" + v.Index + ")"
}

// Term is coef × var.
type Term struct {
	Var  Var
	Coef float64
}

// LinearExpr is Σ coef × var + Constant. The zero value is the empty expression.
type LinearExpr struct {
	Terms    []Term
	Constant float64
}

// Add appends coef × v.
func (e LinearExpr) Add(coef float64, v Var) LinearExpr {
	out := e.Clone()
	out.Terms = append(out.Terms, Term{Var: v, Coef: coef})
	return out
}

// AddConst adds a constant.
func (e LinearExpr) AddConst(c float64) LinearExpr {
	out := e.Clone()
	out.Constant += c
	return out
}

// Plus returns e + scale × other.
func (e LinearExpr) Plus(other LinearExpr, scale float64) LinearExpr {
	out := e.Clone()
	for _, t := range other.Terms {
		out.Terms = append(out.Terms, Term{Var: t.Var, Coef: scale * t.Coef})
	}
	out.Constant += scale * other.Constant
	return out
}

// Scale returns k × e.
func (e LinearExpr) Scale(k float64) LinearExpr {
	return LinearExpr{}.Plus(e, k)
}

// Clone returns an independent copy.
func (e LinearExpr) Clone() LinearExpr {
	return LinearExpr{Terms: append([]Term(nil), e.Terms...), Constant: e.Constant}
}

// IsEmpty reports whether the expression has no terms and a zero constant.
func (e LinearExpr) IsEmpty() bool { return len(e.Terms) == 0 && e.Constant == 0 }

// Simplify merges repeated variables, keeping first-seen order, and drops zero coefficients.
func (e LinearExpr) Simplify() LinearExpr {
	pos := make(map[Var]int, len(e.Terms))
	var terms []Term
	for _, t := range e.Terms {
		if i, ok := pos[t.Var]; ok {
			terms[i].Coef += t.Coef
			continue
		}
		pos[t.Var] = len(terms)
		terms = append(terms, t)
	}
	out := LinearExpr{Constant: e.Constant}
	for _, t := range terms {
		if t.Coef != 0 {
			out.Terms = append(out.Terms, t)
		}
	}
	return out
}

// Coef returns the merged coefficient of v.
func (e LinearExpr) Coef(v Var) float64 {
	c := 0.0
	for _, t := range e.Terms {
		if t.Var == v {
			c += t.Coef
		}
	}
	return c
}

// Vars returns the distinct variables sorted by name.
func (e LinearExpr) Vars() []Var {
	seen := make(map[Var]bool, len(e.Terms))
	var out []Var
	for _, t := range e.Terms {
		if !seen[t.Var] {
			seen[t.Var] = true
			out = append(out, t.Var)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].String() < out[b].String() })
	return out
}

// String renders the expression in LP syntax.
func (e LinearExpr) String() string {
	var b strings.Builder
	for i, t := range e.Terms {
		switch {
		case i == 0 && t.Coef < 0:
			b.WriteString("- ")
		case i == 0:
		case t.Coef < 0:
			b.WriteString(" - ")
		default:
			b.WriteString(" + ")
		}
		c := t.Coef
		if c < 0 {
			c = -c
		}
		if c != 1 {
			fmt.Fprintf(&b, "%g ", c)
		}
		b.WriteString(t.Var.String())
	}
	if e.Constant != 0 || len(e.Terms) == 0 {
		switch {
		case len(e.Terms) == 0:
			fmt.Fprintf(&b, "%g", e.Constant)
		case e.Constant < 0:
			fmt.Fprintf(&b, " - %g", -e.Constant)
		default:
			fmt.Fprintf(&b, " + %g", e.Constant)
		}
	}
	return b.String()
}

// Sense is the relation of a constraint.
type Sense int

const (
	LessEqual Sense = iota
	Equal
	GreaterEqual
)

func (s Sense) String() string {
	switch s {
	case Equal:
		return "="
	case GreaterEqual:
		return ">="
	}
	return "<="
}

// Constraint is one row Lhs {<=,=,>=} Rhs, as an element of an indexed constraint.
type Constraint struct {
	Name  string
	Index string
	Lhs   LinearExpr
	Sense Sense
	Rhs   LinearExpr
}

// RowName is the LP row name.
func (c Constraint) RowName() string { return V(c.Name, c.Index).String() }

// Normalized returns Σ coef × var {sense} rhs with every variable on the left
// and the constant on the right.
func (c Constraint) Normalized() (LinearExpr, float64) {
	lhs := c.Lhs.Plus(c.Rhs, -1).Simplify()
	rhs := -lhs.Constant
	lhs.Constant = 0
	return lhs, rhs
}

// Holds evaluates the constraint at x within tol. Missing variables are zero.
func (c Constraint) Holds(x map[Var]float64, tol float64) bool {
	lhs, rhs := c.Normalized()
	v := 0.0
	for _, t := range lhs.Terms {
		v += t.Coef * x[t.Var]
	}
	switch c.Sense {
	case Equal:
		return v <= rhs+tol && v >= rhs-tol
	case GreaterEqual:
		return v >= rhs-tol
	}
	return v <= rhs+tol
}
