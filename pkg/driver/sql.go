package driver

import (
	"fmt"
	"strings"
	"time"

	"github.com/soundprediction/sifter/pkg/predicate"
)

// sqlCompiler translates predicates into SQLite conditions over the records
// table. Field values live in the JSON data column; relation steps become
// EXISTS subqueries over json_each so single and multi relations share one
// form.
type sqlCompiler struct {
	args  []any
	alias int
}

// CompileSQL returns a condition on the row aliased "r0" and its arguments.
func CompileSQL(p predicate.Predicate) (string, []any, error) {
	c := &sqlCompiler{}
	cond, err := c.compile(p)
	if err != nil {
		return "", nil, err
	}
	return cond, c.args, nil
}

func (c *sqlCompiler) compile(p predicate.Predicate) (string, error) {
	switch v := p.(type) {
	case nil, predicate.True:
		return "1 = 1", nil
	case predicate.And:
		if len(v.Terms) == 0 {
			return "1 = 1", nil
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
		return c.path(v.Path, "r0", func(expr string) (string, error) { return c.compareLeaf(expr, v) })
	case predicate.In:
		if len(v.IDs) == 0 {
			return "0 = 1", nil
		}
		return c.path(v.Path, "r0", func(expr string) (string, error) { return c.inLeaf(expr, v.IDs), nil })
	default:
		return "", fmt.Errorf("unsupported predicate %T", p)
	}
}

func (c *sqlCompiler) next() int {
	c.alias++
	return c.alias
}

// path walks the steps of p from the row alias row, calling leaf with the SQL
// expression of the final value.
func (c *sqlCompiler) path(p predicate.Path, row string, leaf func(expr string) (string, error)) (string, error) {
	if len(p) == 0 {
		return "", fmt.Errorf("empty path")
	}
	step := p[0]
	last := len(p) == 1

	switch step.Kind {
	case predicate.StepScalar:
		if !last {
			return "", fmt.Errorf("scalar step %q must end the path", step.Name)
		}
		c.args = append(c.args, jsonPath(step.Name))
		return leaf(fmt.Sprintf("json_extract(%s.data, ?)", row))

	case predicate.StepRelation, predicate.StepMulti:
		n := c.next()
		each := fmt.Sprintf("j%d", n)
		c.args = append(c.args, jsonPath(step.Name))
		if last {
			inner, err := leaf(each + ".value")
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s.data, ?) %s WHERE %s)", row, each, inner), nil
		}
		related := fmt.Sprintf("r%d", n)
		c.args = append(c.args, step.Entity)
		inner, err := c.path(p[1:], related, leaf)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s.data, ?) %s JOIN records %s ON %s.entity = ? AND %s.id = %s.value WHERE %s)",
			row, each, related, related, related, each, inner), nil

	case predicate.StepReverse:
		n := c.next()
		each := fmt.Sprintf("j%d", n)
		related := fmt.Sprintf("r%d", n)
		c.args = append(c.args, jsonPath(step.Via), step.Entity)
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
		return fmt.Sprintf("EXISTS (SELECT 1 FROM records %s, json_each(%s.data, ?) %s WHERE %s.entity = ? AND %s.value = %s.id AND %s)",
			related, related, each, related, each, row, inner), nil
	}
	return "", fmt.Errorf("unknown step kind %s", step.Kind)
}

func (c *sqlCompiler) inLeaf(expr string, ids []int64) string {
	marks := make([]string, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		c.args = append(c.args, id)
	}
	return fmt.Sprintf("%s IN (%s)", expr, strings.Join(marks, ", "))
}

func (c *sqlCompiler) compareLeaf(expr string, cmp predicate.Compare) (string, error) {
	var value any
	switch v := cmp.Value.(type) {
	case bool:
		// json_extract reports JSON booleans as 1 and 0.
		if v {
			value = 1
		} else {
			value = 0
		}
	case time.Time:
		value = v.Format(cmp.Layout)
	case float64, string:
		value = v
	default:
		return "", fmt.Errorf("unsupported comparison value %T", cmp.Value)
	}

	switch cmp.Op {
	case predicate.OpEq:
		c.args = append(c.args, value)
		return expr + " = ?", nil
	case predicate.OpNe:
		c.args = append(c.args, value)
		return expr + " != ?", nil
	case predicate.OpLt:
		c.args = append(c.args, value)
		return expr + " < ?", nil
	case predicate.OpGt:
		c.args = append(c.args, value)
		return expr + " > ?", nil
	case predicate.OpContains:
		c.args = append(c.args, value)
		return fmt.Sprintf("instr(%s, ?) > 0", expr), nil
	case predicate.OpHasPrefix:
		c.args = append(c.args, value, value)
		return fmt.Sprintf("substr(%s, 1, length(?)) = ?", expr), nil
	case predicate.OpHasSuffix:
		c.args = append(c.args, value, value, value)
		return fmt.Sprintf("(substr(%s, -length(?)) = ? OR ? = '')", expr), nil
	}
	return "", fmt.Errorf("unsupported operator %s", cmp.Op)
}

// jsonPath quotes a field name as a JSON path member.
func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}
