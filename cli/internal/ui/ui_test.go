package ui

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/godal/migrate/plan"
	"github.com/satishbabariya/godal/schema"
)

func samplePlan() *plan.Plan {
	return &plan.Plan{
		Dialect: "mysql",
		Steps: []plan.Step{
			plan.NewStep(plan.RenameColumn{Table: "thing", From: "title", To: "name"},
				[]string{"ALTER TABLE `thing` RENAME COLUMN `title` TO `name`"}, true),
			plan.NewStep(plan.AddIndex{Table: "thing", Index: schema.IndexInfo{Name: "thing_name", Fields: []string{"name"}, Unique: true}},
				[]string{"CREATE UNIQUE INDEX `thing_name` ON `thing` (`name`)"}, true),
		},
		Pending: []plan.Step{
			plan.NewStep(plan.DropColumn{Table: "thing", Column: "label"},
				[]string{"ALTER TABLE `thing` DROP COLUMN `label`"}, true),
		},
		Warnings: []string{"column thing.price added as nullable"},
	}
}

func TestPlanReport(t *testing.T) {
	g := goldie.New(t)
	g.Assert(t, "plan_report", []byte(PlanReport("mysql", samplePlan())))
}

func TestPlanReportEmpty(t *testing.T) {
	assert.Equal(t, "# Migration plan (sqlite)\n\nThe schema is up to date.\n", PlanReport("sqlite", &plan.Plan{}))
}

func TestPrinterPlan(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	New(&buf).Plan(samplePlan(), false)
	assert.Equal(t, `~ rename column thing.title -> name
+ add unique index thing_name on thing (name)
! drop column thing.label (pending: destructive)
⚠ column thing.price added as nullable
`, buf.String())

	buf.Reset()
	New(&buf).Plan(&plan.Plan{}, false)
	assert.Equal(t, "✓ schema is up to date\n", buf.String())
}

func TestSymbol(t *testing.T) {
	assert.Equal(t, "+", Symbol(plan.AddColumn{}))
	assert.Equal(t, "-", Symbol(plan.DropTable{}))
	assert.Equal(t, "~", Symbol(plan.AlterColumnType{}))
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf).Table([]string{"Column", "Type"}, [][]string{{"nickname", "varchar(32)"}}))
	assert.Contains(t, buf.String(), "nickname")
	assert.Contains(t, buf.String(), "varchar(32)")
}
