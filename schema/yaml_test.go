package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/godal/dalerr"
)

const shopYAML = `
tables:
  - name: thing
    fields:
      - name: name
        type: string(64)
        notnull: true
        unique: true
      - name: price
        type: decimal(10,2)
        default: 0
      - name: added
        type: datetime
        default_expr: CURRENT_TIMESTAMP
      - name: owner
        type: reference person
        ondelete: set null
        label: Owner
    indexes:
      - name: thing_price
        fields: [price]
  - name: person
    fields:
      - name: nickname
        type: string(32)
`

func TestLoadYAML(t *testing.T) {
	reg, err := LoadYAML(strings.NewReader(shopYAML))
	require.NoError(t, err)
	assert.True(t, reg.Finalized())

	thing := reg.Table("thing")
	require.NotNil(t, thing)
	assert.Equal(t, []string{"id", "name", "price", "added", "owner"}, names(thing.Fields()))
	assert.True(t, thing.Field("name").IsUnique())
	assert.False(t, thing.Field("name").Nullable())

	def, ok := thing.Field("price").Default()
	assert.True(t, ok)
	assert.Equal(t, 0, def)
	assert.Equal(t, CurrentTimestamp, thing.Field("added").DefaultKeyword())
	assert.Equal(t, "Owner", thing.Field("owner").Label())

	require.Len(t, thing.ForeignKeys(), 1)
	fk := thing.ForeignKeys()[0]
	assert.Equal(t, "person", fk.RefTable)
	assert.Equal(t, SetNull, fk.OnDelete)

	require.Len(t, thing.Indexes(), 1)
	assert.Equal(t, "thing_price", thing.Indexes()[0].Name)
}

func TestLoadYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown key", "tables:\n  - name: t\n    colums: []\n", "colums"},
		{"bad type", "tables:\n  - name: t\n    fields:\n      - name: a\n        type: nonsense(\n", "field a"},
		{"bad ondelete", "tables:\n  - name: t\n    fields:\n      - name: a\n        type: reference t\n        ondelete: explode\n", "unknown ondelete"},
		{"bad default_expr", "tables:\n  - name: t\n    fields:\n      - name: a\n        type: date\n        default_expr: yesterday\n", "unknown default_expr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadYAML(strings.NewReader(tt.doc))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadYAMLUnresolvedReference(t *testing.T) {
	doc := "tables:\n  - name: thing\n    fields:\n      - name: owner\n        type: reference nobody\n"
	_, err := LoadYAML(strings.NewReader(doc))
	assert.ErrorIs(t, err, dalerr.ErrUnresolvedReference)
}
