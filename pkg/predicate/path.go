package predicate

import "strings"

// StepKind tells how a path step is traversed.
type StepKind int

const (
	// StepScalar reads a field value of the current record.
	StepScalar StepKind = iota
	// StepRelation follows a single-valued relation to another entity.
	StepRelation
	// StepMulti follows a multi-valued relation to another entity.
	StepMulti
	// StepReverse follows a relation declared on another entity back to the
	// current one.
	StepReverse
)

func (k StepKind) String() string {
	switch k {
	case StepScalar:
		return "scalar"
	case StepRelation:
		return "relation"
	case StepMulti:
		return "multi"
	case StepReverse:
		return "reverse"
	default:
		return "unknown"
	}
}

// Step is one segment of a storage path.
type Step struct {
	// Name is the storage name of the field (or, for reverse steps, of the
	// related entity).
	Name string
	Kind StepKind
	// Entity is the entity reached by a relation step.
	Entity string
	// Via is the field on Entity that points back, for reverse steps.
	Via string
}

// IsRelation reports whether the step leads to another entity.
func (s Step) IsRelation() bool {
	return s.Kind != StepScalar
}

// Path is the resolved access path of a field.
type Path []Step

// String returns the dotted storage names of the path.
func (p Path) String() string {
	names := make([]string, len(p))
	for i, s := range p {
		names[i] = s.Name
	}
	return strings.Join(names, ".")
}

// Last returns the final step of the path.
func (p Path) Last() Step {
	if len(p) == 0 {
		return Step{}
	}
	return p[len(p)-1]
}

// Join returns a new path made of p followed by tail.
func (p Path) Join(tail ...Step) Path {
	out := make(Path, 0, len(p)+len(tail))
	out = append(out, p...)
	return append(out, tail...)
}

// Scalar is a one-step path over a scalar field.
func Scalar(name string) Path {
	return Path{{Name: name, Kind: StepScalar}}
}
