package plan

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/godal/dalerr"
	"github.com/satishbabariya/godal/schema"
	"github.com/satishbabariya/godal/types"
)

func tableNames(tables []*schema.Table) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = t.Name()
	}
	return out
}

func deferredNames(ds []Deferred) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.FK.Name
	}
	return out
}

func TestSortTablesFollowsReferences(t *testing.T) {
	reg := schema.NewRegistry()
	reg.MustDefineTable("pet", schema.NewField("owner", types.ReferenceType("person")))
	reg.MustDefineTable("toy", schema.NewField("pet", types.ReferenceType("pet")))
	reg.MustDefineTable("person", schema.NewField("name", types.TextType()))
	require.NoError(t, reg.Finalize())

	sorted, deferred := SortTables(reg.Tables(), false)
	if diff := cmp.Diff([]string{"person", "pet", "toy"}, tableNames(sorted)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, deferred)
}

func TestSortTablesDefersCyclesAndSelfReferences(t *testing.T) {
	reg := schema.NewRegistry()
	reg.MustDefineTable("a", schema.NewField("b", types.ReferenceType("b")))
	reg.MustDefineTable("b", schema.NewField("a", types.ReferenceType("a")))
	reg.MustDefineTable("node", schema.NewField("parent", types.ReferenceType("node")))
	require.NoError(t, reg.Finalize())

	sorted, deferred := SortTables(reg.Tables(), false)
	assert.Equal(t, []string{"node", "a", "b"}, tableNames(sorted))
	assert.ElementsMatch(t, []string{"fk_a_b", "fk_node_parent"}, deferredNames(deferred))

	sorted, deferred = SortTables(reg.Tables(), true)
	assert.Len(t, sorted, 3)
	assert.Empty(t, deferred)
}

func TestOrderPutsDestructiveStepsLast(t *testing.T) {
	reg := schema.NewRegistry()
	thing := reg.MustDefineTable("thing", schema.NewField("name", types.TextType()))
	require.NoError(t, reg.Finalize())

	steps := []Step{
		NewStep(DropColumn{Table: "thing", Column: "old"}, nil, false),
		NewStep(AddIndex{Table: "thing", Index: schema.IndexInfo{Name: "thing_name", Fields: []string{"name"}}}, nil, false),
		NewStep(DropIndex{Table: "thing", Name: "legacy"}, nil, false),
		NewStep(AddColumn{Table: "thing", Field: thing.Field("name")}, nil, false),
		NewStep(CreateTable{Table: thing}, nil, false),
	}
	ordered := Order(steps)

	var got []string
	for _, s := range ordered {
		got = append(got, s.String())
	}
	want := []string{
		"create table thing (id, name)",
		"add column thing.name text",
		"add index thing_name on thing (name)",
		"drop index legacy on thing",
		"drop column thing.old",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	seenDestructive := false
	for _, s := range ordered {
		if s.Destructive {
			seenDestructive = true
		} else {
			assert.False(t, seenDestructive, "additive step %s after destructive", s)
		}
	}
}

func TestPlanHelpers(t *testing.T) {
	p := &Plan{}
	assert.True(t, p.Empty())
	assert.NoError(t, p.Blocked())

	p.Steps = []Step{
		NewStep(RenameColumn{Table: "t", From: "a", To: "b"}, []string{"ALTER 1"}, false),
		NewStep(AddIndex{Table: "t", Index: schema.IndexInfo{Name: "i", Fields: []string{"b"}}}, []string{"CREATE 2"}, true),
	}
	p.Pending = []Step{NewStep(DropColumn{Table: "t", Column: "c"}, []string{"DROP"}, false)}

	assert.False(t, p.Empty())
	assert.Equal(t, []string{"ALTER 1", "CREATE 2"}, p.SQL())
	require.Len(t, p.NonTransactional(), 1)

	err := p.Blocked()
	var blocked *dalerr.DestructiveChangeBlocked
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, []string{"drop column t.c"}, blocked.Pending)
	assert.True(t, p.Pending[0].Destructive)
}
