package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// project switches to a fresh directory holding a config for a sqlite
// database and the starter schema.
func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	out, err := execute(t, "init", "--non-interactive", "--uri", "sqlite://"+filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "wrote godal.yaml")
	assert.Contains(t, out, "wrote schema.yaml")
	return dir
}

func TestPlanApplyHistory(t *testing.T) {
	project(t)

	out, err := execute(t, "plan")
	require.NoError(t, err)
	assert.Contains(t, out, "+ create table person (id, nickname, created_at)")

	out, err = execute(t, "apply")
	require.NoError(t, err)
	assert.Contains(t, out, "applied")

	out, err = execute(t, "plan")
	require.NoError(t, err)
	assert.Contains(t, out, "schema is up to date")

	out, err = execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "additive")

	out, err = execute(t, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "person")
	assert.Contains(t, out, "nickname")
}

func TestApplyKeepsDestructiveChangesPending(t *testing.T) {
	project(t)
	_, err := execute(t, "apply")
	require.NoError(t, err)

	smaller := `tables:
  - name: person
    fields:
      - name: nickname
        type: string(64)
        notnull: true
        unique: true
`
	require.NoError(t, os.WriteFile("schema.yaml", []byte(smaller), 0o644))

	out, err := execute(t, "apply")
	require.NoError(t, err)
	assert.Contains(t, out, "drop column person.created_at (pending: destructive)")

	out, err = execute(t, "apply", "--destructive", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "applied 1 step(s)")

	out, err = execute(t, "plan", "--destructive")
	require.NoError(t, err)
	assert.Contains(t, out, "schema is up to date")
}

func TestCompile(t *testing.T) {
	project(t)

	out, err := execute(t, "compile", "--dialect", "postgres")
	require.NoError(t, err)
	assert.Contains(t, out, `CREATE TABLE "person" ("id" SERIAL PRIMARY KEY`)

	_, err = execute(t, "compile", "--dialect", "nosuchdb")
	assert.Error(t, err)
}

func TestMissingSchemaFails(t *testing.T) {
	project(t)
	_, err := execute(t, "plan", "--schema", "missing.yaml")
	assert.ErrorContains(t, err, "failed to open schema")
}

func TestParseRenames(t *testing.T) {
	got, err := parseRenames([]string{"thing.title=name", "thing.qty=quantity", "person.nick=nickname"})
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]string{
		"thing":  {"title": "name", "qty": "quantity"},
		"person": {"nick": "nickname"},
	}, got)

	got, err = parseRenames(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, bad := range []string{"title=name", "thing.title", "thing.=name", "thing.title="} {
		_, err := parseRenames([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "godal version")
}
