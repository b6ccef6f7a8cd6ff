package predicate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// mapResolver serves values keyed by the dotted path.
type mapResolver map[string][]any

func (m mapResolver) Values(p Path) []any { return m[p.String()] }

func TestAllFlattens(t *testing.T) {
	a := Eq(Scalar("a"), 1.0)
	b := Eq(Scalar("b"), 2.0)
	c := Eq(Scalar("c"), 3.0)

	assert.Equal(t, True{}, All())
	assert.Equal(t, True{}, All(True{}, And{}))
	assert.Equal(t, a, All(True{}, a))
	assert.Equal(t, And{Terms: []Predicate{a, b, c}}, All(All(a, b), True{}, c))
	assert.Equal(t, All(a, All(b, c)), All(All(a, b), c))
	assert.Equal(t, []Predicate{a, b}, Terms(All(a, b)))
	assert.Nil(t, Terms(True{}))
}

func TestIsTrue(t *testing.T) {
	assert.True(t, IsTrue(nil))
	assert.True(t, IsTrue(True{}))
	assert.True(t, IsTrue(And{Terms: []Predicate{True{}, And{}}}))
	assert.False(t, IsTrue(Member(Scalar("a"), 1)))
}

func TestString(t *testing.T) {
	reporter := Path{{Name: "reporter", Kind: StepRelation, Entity: "user"}, {Name: "name"}}
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		p    Predicate
		want string
	}{
		{True{}, "TRUE"},
		{Eq(Scalar("priority"), 3.0), "priority = 3"},
		{Contains(reporter, "ad"), `reporter.name CONTAINS "ad"`},
		{Member(Scalar("status"), 1, 2), "status IN (1, 2)"},
		{Temporal(Scalar("due"), OpLt, due, "2006-01-02"), `due < "2024-05-01"`},
		{All(Eq(Scalar("urgent"), true), Member(Scalar("tags"), 3)), "(urgent = true AND tags IN (3))"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.String())
		})
	}
}

func TestEval(t *testing.T) {
	record := mapResolver{
		"priority": {int64(3)},
		"title":    {"Crash on save"},
		"urgent":   {true},
		"due":      {"2024-05-01"},
		"opened":   {"2024-05-01T09:30:00Z"},
		"status":   {int64(2)},
		"tags":     {int64(1), int64(3)},
		"empty":    {},
	}
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	morning := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		p    Predicate
		want bool
	}{
		{"true", True{}, true},
		{"numeric eq", Eq(Scalar("priority"), 3.0), true},
		{"numeric gt", Gt(Scalar("priority"), 3.0), false},
		{"numeric lt", Lt(Scalar("priority"), 4.0), true},
		{"numeric ne", Ne(Scalar("priority"), 3.0), false},
		{"contains is case sensitive", Contains(Scalar("title"), "crash"), false},
		{"contains", Contains(Scalar("title"), "on"), true},
		{"prefix", HasPrefix(Scalar("title"), "Crash"), true},
		{"suffix", HasSuffix(Scalar("title"), "save"), true},
		{"text eq", Eq(Scalar("title"), "Crash on save"), true},
		{"bool eq", Eq(Scalar("urgent"), true), true},
		{"bool false", Eq(Scalar("urgent"), false), false},
		{"date eq", Temporal(Scalar("due"), OpEq, day, "2006-01-02"), true},
		{"date gt", Temporal(Scalar("due"), OpGt, day, "2006-01-02"), false},
		{"rfc3339 stored datetime", Temporal(Scalar("opened"), OpGt, morning, "2006-01-02 15:04:05"), true},
		{"in", Member(Scalar("status"), 1, 2), true},
		{"not in", Member(Scalar("status"), 1, 3), false},
		{"multi any of", Member(Scalar("tags"), 2, 3), true},
		{"multi all of", All(Member(Scalar("tags"), 1), Member(Scalar("tags"), 3)), true},
		{"multi all of missing one", All(Member(Scalar("tags"), 1), Member(Scalar("tags"), 2)), false},
		{"no values never match", Eq(Scalar("empty"), 1.0), false},
		{"missing path never matches", Ne(Scalar("nowhere"), "x"), false},
		{"type mismatch", Eq(Scalar("urgent"), 1.0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Eval(tt.p, record))
		})
	}
}

func TestConversions(t *testing.T) {
	n, ok := ToInt64(float64(4))
	assert.True(t, ok)
	assert.Equal(t, int64(4), n)

	_, ok = ToInt64(4.5)
	assert.False(t, ok)

	n, ok = ToInt64("12")
	assert.True(t, ok)
	assert.Equal(t, int64(12), n)

	f, ok := ToFloat64(7)
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	_, ok = ToFloat64("7")
	assert.False(t, ok)
}

func TestPathString(t *testing.T) {
	p := Path{{Name: "reporter", Kind: StepRelation, Entity: "user"}}.Join(Scalar("name")...)
	assert.Equal(t, "reporter.name", p.String())
	assert.Equal(t, "name", p.Last().Name)
	assert.True(t, p[0].IsRelation())
	assert.False(t, p.Last().IsRelation())
	assert.Equal(t, Step{}, Path{}.Last())
}
