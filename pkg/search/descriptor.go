package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/soundprediction/sifter/pkg/predicate"
	"github.com/soundprediction/sifter/pkg/types"
)

// ReverseSuffix marks a path segment that names a reverse, to-many relation.
const ReverseSuffix = "_set"

// Canonical layouts temporal values are stored and compared in.
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	DateTimeLayout = DateLayout + " " + TimeLayout
)

var (
	dateInputLayouts = []string{DateLayout, "2006/01/02"}
	timeInputLayouts = []string{TimeLayout, "15:04"}
)

// FieldDescriptor is a searchable field resolved against an entity: its type,
// its storage path and, for enumerable types, its options.
type FieldDescriptor struct {
	Name    string
	Path    predicate.Path
	Label   string
	Type    types.FieldType
	Options []types.Option
	Bounds  *types.Bounds
}

// Resolver classifies field paths. It is cheap to build and holds no state
// between calls.
type Resolver struct {
	meta    FieldMetadataProvider
	options OptionSource
}

// NewResolver creates a resolver. options may be nil, in which case relation
// fields have no options.
func NewResolver(meta FieldMetadataProvider, options OptionSource) *Resolver {
	return &Resolver{meta: meta, options: options}
}

// Resolve resolves a dotted field path against entity. Paths that cannot be
// resolved return an error wrapping types.ErrUnresolvedField.
func (r *Resolver) Resolve(ctx context.Context, path, entity string) (*FieldDescriptor, error) {
	d, err := r.resolve(ctx, entity, strings.Split(path, "."))
	if err != nil {
		return nil, fmt.Errorf("resolve %s.%s: %w", entity, path, err)
	}
	d.Name = path
	return d, nil
}

func (r *Resolver) resolve(ctx context.Context, entity string, segments []string) (*FieldDescriptor, error) {
	head := segments[0]
	if head == "" {
		return nil, types.ErrUnresolvedField
	}
	meta, err := r.meta.ResolveField(entity, head)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(head, ReverseSuffix) {
		if !meta.IsReverse {
			return nil, types.ErrUnresolvedField
		}
		// A reverse collection is enumerated as a whole; nothing after it is
		// resolved.
		step := predicate.Step{Name: meta.StorageName, Kind: predicate.StepReverse, Entity: meta.RelatedEntity, Via: meta.ReverseField}
		return r.enumerate(ctx, meta, step, types.FieldChoice)
	}

	if meta.IsRelation {
		step := predicate.Step{Name: meta.StorageName, Kind: predicate.StepRelation, Entity: meta.RelatedEntity}
		fieldType := types.FieldChoice
		if meta.IsMultiValued {
			step.Kind = predicate.StepMulti
			fieldType = types.FieldMultiChoice
		}
		if len(segments) == 1 {
			return r.enumerate(ctx, meta, step, fieldType)
		}
		inner, err := r.resolve(ctx, meta.RelatedEntity, segments[1:])
		if err != nil {
			return nil, err
		}
		inner.Path = predicate.Path{step}.Join(inner.Path...)
		inner.Label = meta.Label + " > " + inner.Label
		return inner, nil
	}

	if len(segments) > 1 {
		return nil, types.ErrUnresolvedField
	}
	return classifyScalar(meta), nil
}

func (r *Resolver) enumerate(ctx context.Context, meta types.FieldMeta, step predicate.Step, fieldType types.FieldType) (*FieldDescriptor, error) {
	d := &FieldDescriptor{
		Path:  predicate.Path{step},
		Label: meta.Label,
		Type:  fieldType,
	}
	if r.options != nil {
		options, err := r.options.Instances(ctx, meta.RelatedEntity)
		if err != nil {
			return nil, fmt.Errorf("list %s instances: %w", meta.RelatedEntity, err)
		}
		d.Options = options
	}
	return d, nil
}

func classifyScalar(meta types.FieldMeta) *FieldDescriptor {
	d := &FieldDescriptor{
		Path:  predicate.Scalar(meta.StorageName),
		Label: meta.Label,
	}
	switch meta.Kind {
	case types.KindInteger:
		if len(meta.Choices) > 0 {
			d.Type = types.FieldChoice
			d.Options = append([]types.Option(nil), meta.Choices...)
			break
		}
		d.Type = types.FieldNumeric
		d.Bounds = boundsOr(meta.Bounds, types.DefaultIntegerBounds)
	case types.KindFloat:
		d.Type = types.FieldNumeric
		d.Bounds = boundsOr(meta.Bounds, types.DefaultFloatBounds)
	case types.KindBoolean:
		d.Type = types.FieldBoolean
	case types.KindDate:
		d.Type = types.FieldDate
	case types.KindTime:
		d.Type = types.FieldTime
	case types.KindDateTime:
		d.Type = types.FieldDateTime
	default:
		d.Type = types.FieldText
	}
	return d
}

func boundsOr(b *types.Bounds, def types.Bounds) *types.Bounds {
	if b != nil {
		cp := *b
		return &cp
	}
	return &def
}

// Render returns the human-readable form of a raw criterion value.
func (d *FieldDescriptor) Render(value string, op types.Operator) string {
	switch d.Type {
	case types.FieldText:
		return quote(value)
	case types.FieldBoolean:
		if value == types.BooleanTrue {
			return "yes"
		}
		return "no"
	case types.FieldChoice, types.FieldMultiChoice:
		selected := make(map[string]bool)
		for _, id := range strings.Split(value, types.ChoiceSeparator) {
			selected[strings.TrimSpace(id)] = true
		}
		var labels []string
		for _, opt := range d.Options {
			if selected[opt.ID] {
				labels = append(labels, quote(opt.Label))
			}
		}
		return strings.Join(labels, " "+op.Label()+" ")
	default:
		return value
	}
}

// BuildPredicate turns a raw criterion value and operator into a predicate
// over the field's storage path. The caller is expected to have checked that
// op is legal for the field's type.
func (d *FieldDescriptor) BuildPredicate(value string, op types.Operator) (predicate.Predicate, error) {
	switch d.Type {
	case types.FieldBoolean:
		return predicate.Eq(d.Path, value == types.BooleanTrue), nil
	case types.FieldChoice, types.FieldMultiChoice:
		ids, err := parseIDs(value)
		if err != nil {
			return nil, err
		}
		if d.Type == types.FieldMultiChoice && op == types.OpAllOf {
			// One membership test per id: the record must be related to each
			// of them, which a single IN cannot express.
			terms := make([]predicate.Predicate, len(ids))
			for i, id := range ids {
				terms[i] = predicate.Member(d.Path, id)
			}
			return predicate.All(terms...), nil
		}
		return predicate.Member(d.Path, ids...), nil
	case types.FieldNumeric:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", types.ErrInvalidValue, value)
		}
		return compare(d.Path, op, f)
	case types.FieldDate:
		t, err := parseTime(value, dateInputLayouts)
		if err != nil {
			return nil, err
		}
		return temporal(d.Path, op, t, DateLayout)
	case types.FieldTime:
		t, err := parseTime(value, timeInputLayouts)
		if err != nil {
			return nil, err
		}
		return temporal(d.Path, op, t, TimeLayout)
	case types.FieldDateTime:
		t, err := parseDateTime(value)
		if err != nil {
			return nil, err
		}
		return temporal(d.Path, op, t, DateTimeLayout)
	default:
		return compare(d.Path, op, value)
	}
}

func compare(path predicate.Path, op types.Operator, v any) (predicate.Predicate, error) {
	cmp, err := compareOp(op)
	if err != nil {
		return nil, err
	}
	return predicate.Compare{Path: path, Op: cmp, Value: v}, nil
}

func temporal(path predicate.Path, op types.Operator, t time.Time, layout string) (predicate.Predicate, error) {
	cmp, err := compareOp(op)
	if err != nil {
		return nil, err
	}
	return predicate.Temporal(path, cmp, t, layout), nil
}

func compareOp(op types.Operator) (predicate.CompareOp, error) {
	switch op {
	case types.OpEquals:
		return predicate.OpEq, nil
	case types.OpDifferent:
		return predicate.OpNe, nil
	case types.OpLessThan:
		return predicate.OpLt, nil
	case types.OpGreaterThan:
		return predicate.OpGt, nil
	case types.OpContains:
		return predicate.OpContains, nil
	case types.OpStartsWith:
		return predicate.OpHasPrefix, nil
	case types.OpEndsWith:
		return predicate.OpHasSuffix, nil
	default:
		return 0, fmt.Errorf("%w: %q is not a comparison", types.ErrOperatorNotAllowed, op.Label())
	}
}

func parseIDs(value string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(value, types.ChoiceSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an option id", types.ErrInvalidValue, part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no option selected", types.ErrInvalidValue)
	}
	return ids, nil
}

func parseTime(value string, layouts []string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a valid date or time", types.ErrInvalidValue, value)
}

func parseDateTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	datePart, timePart, found := strings.Cut(value, " ")
	d, err := parseTime(datePart, dateInputLayouts)
	if err != nil {
		return time.Time{}, err
	}
	if !found {
		return d, nil
	}
	t, err := parseTime(timePart, timeInputLayouts)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
}

// ExtractNewCriterion builds a criterion from the value slot matching the
// field's type. Empty values are rejected, except for Text fields compared
// with = or != where matching the empty string is meaningful.
func (d *FieldDescriptor) ExtractNewCriterion(sel types.Selection) (types.Criterion, bool) {
	var value string
	switch d.Type {
	case types.FieldNumeric:
		value = sel.Numeric
	case types.FieldText:
		value = sel.Text
	case types.FieldBoolean:
		value = sel.Boolean
	case types.FieldDate:
		value = sel.Date
	case types.FieldTime:
		value = sel.Time
	case types.FieldDateTime:
		value = strings.TrimSpace(sel.Date + " " + sel.Time)
	case types.FieldChoice, types.FieldMultiChoice:
		value = sel.Choice
	}
	if value == "" {
		if d.Type != types.FieldText {
			return types.Criterion{}, false
		}
		op, _ := types.ParseOperator(sel.Operator)
		if op != types.OpEquals && op != types.OpDifferent {
			return types.Criterion{}, false
		}
	}
	return types.Criterion{Field: d.Name, Code: sel.Operator, Value: value}, true
}

// quote wraps s in double quotes without escaping it.
func quote(s string) string {
	return `"` + s + `"`
}
