// Package predicate implements named boolean conditions over records (reads
// or variants) and a deliberately tiny syntax for combining them.
//
// EXAMPLES:
//   is_reverse
//   !is_duplicate && mapq>=20
//   fwd:!is_reverse
//
// SYNTAX:
//
//   labeled = [label ":"] expr
//   expr    = term { "&&" term }
//   term    = ["!"] name | name op value
//   op      = ">=" | "<=" | "==" | "!=" | ">" | "<" | "="
//
// There is no general expression evaluator: every name must be registered up
// front, and parameterized terms ("mapq>=20", "ref=G") are resolved by the
// factory registered for the name on the left-hand side.
package predicate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
)

// Func is a pure condition over a record.
type Func[T any] func(T) bool

// Factory builds a Func from the operator and right-hand side of a
// parameterized term.
type Factory[T any] func(op, value string) (Func[T], error)

// Registry maps names to conditions.  A Registry is not safe for concurrent
// registration, but is safe for concurrent Parse calls once populated.
type Registry[T any] struct {
	funcs     map[string]Func[T]
	factories map[string]Factory[T]
}

// NewRegistry returns an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		funcs:     make(map[string]Func[T]),
		factories: make(map[string]Factory[T]),
	}
}

// Register adds a plain named condition.  It panics on a duplicate name.
func (r *Registry[T]) Register(name string, fn Func[T]) {
	if _, ok := r.funcs[name]; ok {
		panic(fmt.Sprintf("predicate: duplicate name %q", name))
	}
	r.funcs[name] = fn
}

// RegisterFactory adds a parameterized condition, e.g. "mapq" for
// "mapq>=20".  It panics on a duplicate name.
func (r *Registry[T]) RegisterFactory(name string, f Factory[T]) {
	if _, ok := r.factories[name]; ok {
		panic(fmt.Sprintf("predicate: duplicate factory %q", name))
	}
	r.factories[name] = f
}

// Names lists the registered names, sorted.  Factories are listed with a
// trailing "<op>N" placeholder.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.funcs)+len(r.factories))
	for name := range r.funcs {
		names = append(names, name)
	}
	for name := range r.factories {
		names = append(names, name+"<op>VALUE")
	}
	sort.Strings(names)
	return names
}

// Labeled is a parsed condition together with the name it reports under.
type Labeled[T any] struct {
	Label string
	Expr  string
	Func  Func[T]
}

var (
	labelRE = regexp.MustCompile(`^([\w ]+):(.*)$`)
	termRE  = regexp.MustCompile(`^(\w+)\s*(>=|<=|==|!=|>|<|=)\s*(\S+)$`)
)

// ParseLabeled parses "label:expr".  Without a label the expression text is
// used as the label.
func (r *Registry[T]) ParseLabeled(text string) (Labeled[T], error) {
	label, expr := text, text
	if m := labelRE.FindStringSubmatch(text); m != nil {
		label, expr = strings.TrimSpace(m[1]), m[2]
	}
	fn, err := r.Parse(expr)
	if err != nil {
		return Labeled[T]{}, err
	}
	return Labeled[T]{Label: label, Expr: strings.TrimSpace(expr), Func: fn}, nil
}

// Parse compiles expr.  An empty expression accepts everything.
func (r *Registry[T]) Parse(expr string) (Func[T], error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return func(T) bool { return true }, nil
	}
	var terms []Func[T]
	for _, raw := range strings.Split(expr, "&&") {
		term, err := r.parseTerm(strings.TrimSpace(raw))
		if err != nil {
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("predicate %q", expr))
		}
		terms = append(terms, term)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return And(terms...), nil
}

func (r *Registry[T]) parseTerm(term string) (Func[T], error) {
	negate := false
	for strings.HasPrefix(term, "!") {
		negate = !negate
		term = strings.TrimSpace(term[1:])
	}
	if term == "" {
		return nil, fmt.Errorf("empty term")
	}
	var fn Func[T]
	if m := termRE.FindStringSubmatch(term); m != nil {
		f, ok := r.factories[m[1]]
		if !ok {
			return nil, fmt.Errorf("%q does not take a value", m[1])
		}
		var err error
		if fn, err = f(m[2], m[3]); err != nil {
			return nil, err
		}
	} else {
		var ok bool
		if fn, ok = r.funcs[term]; !ok {
			return nil, fmt.Errorf("unknown name %q (known: %s)", term, strings.Join(r.Names(), ", "))
		}
	}
	if negate {
		return Not(fn), nil
	}
	return fn, nil
}

// And returns the conjunction of fns.
func And[T any](fns ...Func[T]) Func[T] {
	return func(v T) bool {
		for _, fn := range fns {
			if !fn(v) {
				return false
			}
		}
		return true
	}
}

// Not returns the negation of fn.
func Not[T any](fn Func[T]) Func[T] {
	return func(v T) bool { return !fn(v) }
}

// CompareInt evaluates "a op b" for the operators accepted by Parse.
func CompareInt(a int, op string, b int) (bool, error) {
	switch op {
	case ">=":
		return a >= b, nil
	case "<=":
		return a <= b, nil
	case ">":
		return a > b, nil
	case "<":
		return a < b, nil
	case "=", "==":
		return a == b, nil
	case "!=":
		return a != b, nil
	}
	return false, fmt.Errorf("unsupported operator %q", op)
}
