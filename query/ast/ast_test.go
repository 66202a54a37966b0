package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/godal/types"
)

type fakeTable struct {
	name, alias string
	key         []FieldRef
}

func (t *fakeTable) Name() string    { return t.name }
func (t *fakeTable) Alias() string   { return t.alias }
func (t *fakeTable) Key() []FieldRef { return t.key }

type fakeField struct {
	name  string
	typ   types.Type
	table *fakeTable
}

func (f *fakeField) Name() string     { return f.name }
func (f *fakeField) Type() types.Type { return f.typ }
func (f *fakeField) Source() TableRef { return f.table }

func newFixture() (person, pet *fakeTable, fields map[string]*fakeField) {
	person = &fakeTable{name: "person"}
	pet = &fakeTable{name: "pet"}
	fields = map[string]*fakeField{
		"person.id":   {name: "id", typ: types.IdentityType(), table: person},
		"person.name": {name: "name", typ: types.StringType(64), table: person},
		"pet.id":      {name: "id", typ: types.IdentityType(), table: pet},
		"pet.owner":   {name: "owner", typ: types.ReferenceType("person"), table: pet},
	}
	person.key = []FieldRef{fields["person.id"]}
	pet.key = []FieldRef{fields["pet.id"]}
	return person, pet, fields
}

func TestComparisonsAreBoolean(t *testing.T) {
	_, _, f := newFixture()
	name := Col(f["person.name"])

	for _, e := range []Expr{
		Eq(name, "Ann"), Ne(name, "Bob"), Lt(name, "x"), Like(name, "A%"),
		StartsWith(name, "A"), IsNull(name), Range(name, "a", "m"), Member(name, "a", "b"),
		And(Eq(name, "a"), Eq(name, "b")), Not(Eq(name, "a")),
	} {
		assert.True(t, IsBoolean(e), "%T", e)
	}
	assert.False(t, IsBoolean(Lower(name)))
	assert.False(t, IsBoolean(nil))
}

func TestEqNilBecomesNullTest(t *testing.T) {
	_, _, f := newFixture()
	name := Col(f["person.name"])

	u, ok := Eq(name, nil).(Unary)
	require.True(t, ok)
	assert.Equal(t, OpIsNull, u.Op())

	u, ok = Ne(name, nil).(Unary)
	require.True(t, ok)
	assert.Equal(t, OpNotNull, u.Op())
}

func TestLiteralsTakeOperandType(t *testing.T) {
	_, _, f := newFixture()

	b := Eq(Col(f["person.name"]), "Ann").(Binary)
	assert.Equal(t, types.String, b.Right().ResultType().Kind())

	b = Eq(Col(f["pet.owner"]), 7).(Binary)
	assert.Equal(t, types.BigInt, b.Right().ResultType().Kind())
	assert.Equal(t, 7, b.Right().(Literal).Value())
}

func TestAndOrSkipNil(t *testing.T) {
	_, _, f := newFixture()
	q := Eq(Col(f["person.name"]), "a")

	assert.Nil(t, And())
	assert.Nil(t, Or(nil, nil))
	assert.Equal(t, q, And(nil, q, nil))
	assert.Nil(t, Not(nil))

	combined := Or(q, q, q).(Binary)
	assert.Equal(t, OpOr, combined.Op())
	assert.Equal(t, OpOr, combined.Left().(Binary).Op())
}

func TestMemberWithSelectIsSubquery(t *testing.T) {
	person, _, f := newFixture()
	sub := From(person).Columns(Col(f["person.id"])).Where(Like(Col(f["person.name"]), "A%"))

	in := Member(Col(f["pet.owner"]), sub).(In)
	got, ok := in.Subquery()
	require.True(t, ok)
	assert.Len(t, got.Projection(), 1)
	assert.Empty(t, in.Values())

	in = NotMember(Col(f["pet.owner"]), 1, 2, 3).(In)
	_, ok = in.Subquery()
	assert.False(t, ok)
	assert.True(t, in.Negated())
	assert.Len(t, in.Values(), 3)
}

func TestSelectBuildersDoNotMutate(t *testing.T) {
	person, _, f := newFixture()
	base := From(person)
	filtered := base.Where(Eq(Col(f["person.name"]), "a"))
	paged := filtered.Page(10, 20).OrderBy(Asc(Col(f["person.name"])))

	assert.Nil(t, base.Filter())
	assert.NotNil(t, filtered.Filter())
	assert.False(t, filtered.Paged())
	assert.Empty(t, filtered.Ordering())

	limit, hasLimit, offset := paged.Pagination()
	assert.Equal(t, int64(10), limit)
	assert.True(t, hasLimit)
	assert.Equal(t, int64(20), offset)
	assert.Len(t, paged.Ordering(), 1)
}

func TestWhereAccumulatesWithAnd(t *testing.T) {
	person, _, f := newFixture()
	s := From(person).Where(Eq(Col(f["person.name"]), "a")).Where(Gt(Col(f["person.id"]), 3))

	b, ok := s.Filter().(Binary)
	require.True(t, ok)
	assert.Equal(t, OpAnd, b.Op())
}

func TestResolvedSourcesInfersFromColumns(t *testing.T) {
	person, pet, f := newFixture()

	s := Select{}.
		Columns(Col(f["pet.id"]), Col(f["person.name"])).
		Where(Eq(Col(f["pet.owner"]), Col(f["person.id"])))
	got := s.ResolvedSources()
	require.Len(t, got, 2)
	assert.Same(t, pet, got[0])
	assert.Same(t, person, got[1])

	joined := Select{}.
		Columns(Col(f["person.name"]), Col(f["pet.id"])).
		LeftJoin(pet, Eq(Col(f["pet.owner"]), Col(f["person.id"])))
	got = joined.ResolvedSources()
	require.Len(t, got, 1)
	assert.Same(t, person, got[0])
}

func TestWalkSkipsSubselects(t *testing.T) {
	person, _, f := newFixture()
	inner := From(person).Columns(Max(Col(f["person.id"])))
	e := Gt(Col(f["pet.id"]), Scalar(inner))

	assert.False(t, ContainsAggregate(e))
	assert.True(t, ContainsAggregate(Gt(Count(Col(f["pet.id"])), 2)))

	tables := Tables(e)
	require.Len(t, tables, 1)
	assert.Equal(t, "pet", tables[0].Name())
}

func TestResultTypes(t *testing.T) {
	_, _, f := newFixture()
	id := Col(f["person.id"])
	name := Col(f["person.name"])

	assert.Equal(t, types.BigInt, CountAll().ResultType().Kind())
	assert.Equal(t, types.Double, Avg(id).ResultType().Kind())
	assert.Equal(t, types.Integer, Length(name).ResultType().Kind())
	assert.Equal(t, types.Text, Concat(name, "x").ResultType().Kind())
	assert.Equal(t, types.String, As(name, "n").ResultType().Kind())
	assert.Equal(t, types.String, Scalar(Select{}.Columns(name)).ResultType().Kind())
}
