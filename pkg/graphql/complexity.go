package graphql

import (
	"strings"

	"github.com/graphql-go/graphql/language/ast"
)

// Limits bound the documents accepted by the Handler.
type Limits struct {
	MaxDepth      int
	MaxComplexity int
	MaxQueryBytes int
}

// DefaultLimits returns depth 5, complexity 100 and 10 KB of query text.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:      5,
		MaxComplexity: 100,
		MaxQueryBytes: 10 * 1024,
	}
}

// Cost is the measured shape of a document. Each selected field scores one
// point; root fields sit at depth 1.
type Cost struct {
	Depth      int
	Complexity int
}

// Exceeds reports whether c breaks the depth or complexity limit.
func (c Cost) Exceeds(l Limits) bool {
	return c.Depth > l.MaxDepth || c.Complexity > l.MaxComplexity
}

type analyzer struct {
	fragments map[string]*ast.FragmentDefinition
	visiting  map[string]bool
	cost      Cost
	// stop once the score is over this bound so fragment fan-out cannot blow up
	bound int
}

// Measure computes the cost of the most expensive operation in doc. Fields
// starting with "__" (introspection) are not counted. bound stops the walk early
// once the complexity exceeds it; zero means no bound.
func Measure(doc *ast.Document, bound int) Cost {
	fragments := make(map[string]*ast.FragmentDefinition)
	for _, def := range doc.Definitions {
		if frag, ok := def.(*ast.FragmentDefinition); ok && frag.Name != nil {
			fragments[frag.Name.Value] = frag
		}
	}

	var worst Cost
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		a := &analyzer{
			fragments: fragments,
			visiting:  make(map[string]bool),
			bound:     bound,
		}
		a.walk(op.SelectionSet, 1)
		if a.cost.Depth > worst.Depth {
			worst.Depth = a.cost.Depth
		}
		if a.cost.Complexity > worst.Complexity {
			worst.Complexity = a.cost.Complexity
		}
	}
	return worst
}

func (a *analyzer) done() bool {
	return a.bound > 0 && a.cost.Complexity > a.bound
}

func (a *analyzer) walk(set *ast.SelectionSet, depth int) {
	if set == nil {
		return
	}
	for _, sel := range set.Selections {
		if a.done() {
			return
		}
		switch s := sel.(type) {
		case *ast.Field:
			if s.Name != nil && strings.HasPrefix(s.Name.Value, "__") {
				continue
			}
			a.cost.Complexity++
			if depth > a.cost.Depth {
				a.cost.Depth = depth
			}
			a.walk(s.SelectionSet, depth+1)
		case *ast.InlineFragment:
			a.walk(s.SelectionSet, depth)
		case *ast.FragmentSpread:
			if s.Name == nil {
				continue
			}
			name := s.Name.Value
			frag, ok := a.fragments[name]
			if !ok || a.visiting[name] {
				continue
			}
			a.visiting[name] = true
			a.walk(frag.SelectionSet, depth)
			delete(a.visiting, name)
		}
	}
}
