package driver

import (
	"fmt"
	"strings"
	"time"

	"github.com/soundprediction/sifter/pkg/predicate"
)

// LinkType is the relationship type linking records in Neo4j. The field a
// link belongs to is stored on the relationship, so relation names never end
// up in query text.
const LinkType = "LINK"

// cypherCompiler translates predicates into a Cypher WHERE condition on the
// node variable n0. Every value and name is passed as a parameter.
type cypherCompiler struct {
	params map[string]any
	vars   int
}

// CompileCypher returns a condition on n0 and its parameters.
func CompileCypher(p predicate.Predicate) (string, map[string]any, error) {
	c := &cypherCompiler{params: make(map[string]any)}
	cond, err := c.compile(p)
	if err != nil {
		return "", nil, err
	}
	return cond, c.params, nil
}

func (c *cypherCompiler) param(v any) string {
	name := fmt.Sprintf("p%d", len(c.params))
	c.params[name] = v
	return "$" + name
}

func (c *cypherCompiler) compile(p predicate.Predicate) (string, error) {
	switch v := p.(type) {
	case nil, predicate.True:
		return "true", nil
	case predicate.And:
		if len(v.Terms) == 0 {
			return "true", nil
		}
		parts := make([]string, len(v.Terms))
		for i, t := range v.Terms {
			part, err := c.compile(t)
			if err != nil {
				return "", err
			}
			parts[i] = "(" + part + ")"
		}
		return strings.Join(parts, " AND "), nil
	case predicate.Compare:
		return c.path(v.Path, "n0", func(expr string) (string, error) { return c.compareLeaf(expr, v) })
	case predicate.In:
		if len(v.IDs) == 0 {
			return "false", nil
		}
		return c.path(v.Path, "n0", func(expr string) (string, error) {
			return fmt.Sprintf("%s IN %s", expr, c.param(v.IDs)), nil
		})
	default:
		return "", fmt.Errorf("unsupported predicate %T", p)
	}
}

func (c *cypherCompiler) path(p predicate.Path, node string, leaf func(expr string) (string, error)) (string, error) {
	if len(p) == 0 {
		return "", fmt.Errorf("empty path")
	}
	step := p[0]
	last := len(p) == 1

	if step.Kind == predicate.StepScalar {
		if !last {
			return "", fmt.Errorf("scalar step %q must end the path", step.Name)
		}
		return leaf(fmt.Sprintf("%s[%s]", node, c.param(step.Name)))
	}

	c.vars++
	related := fmt.Sprintf("n%d", c.vars)
	var pattern string
	switch step.Kind {
	case predicate.StepRelation, predicate.StepMulti:
		pattern = fmt.Sprintf("(%s)-[:%s {field: %s}]->(%s:Record {entity: %s})",
			node, LinkType, c.param(step.Name), related, c.param(step.Entity))
	case predicate.StepReverse:
		pattern = fmt.Sprintf("(%s)<-[:%s {field: %s}]-(%s:Record {entity: %s})",
			node, LinkType, c.param(step.Via), related, c.param(step.Entity))
	default:
		return "", fmt.Errorf("unknown step kind %s", step.Kind)
	}

	var inner string
	var err error
	if last {
		inner, err = leaf(related + ".id")
	} else {
		inner, err = c.path(p[1:], related, leaf)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("EXISTS { MATCH %s WHERE %s }", pattern, inner), nil
}

var cypherOps = map[predicate.CompareOp]string{
	predicate.OpEq:        "=",
	predicate.OpNe:        "<>",
	predicate.OpLt:        "<",
	predicate.OpGt:        ">",
	predicate.OpContains:  "CONTAINS",
	predicate.OpHasPrefix: "STARTS WITH",
	predicate.OpHasSuffix: "ENDS WITH",
}

func (c *cypherCompiler) compareLeaf(expr string, cmp predicate.Compare) (string, error) {
	op, ok := cypherOps[cmp.Op]
	if !ok {
		return "", fmt.Errorf("unsupported operator %s", cmp.Op)
	}
	var value any
	switch v := cmp.Value.(type) {
	case time.Time:
		value = v.Format(cmp.Layout)
	case float64, string, bool:
		value = v
	default:
		return "", fmt.Errorf("unsupported comparison value %T", cmp.Value)
	}
	return fmt.Sprintf("%s %s %s", expr, op, c.param(value)), nil
}
