package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		spec string
		want Type
	}{
		{"id", IdentityType()},
		{"big-id", BigIdentityType()},
		{"integer", IntegerType()},
		{"int", IntegerType()},
		{"string", StringType(DefaultStringLength)},
		{"string(64)", StringType(64)},
		{"decimal(10,2)", DecimalType(10, 2)},
		{"decimal( 10 , 2 )", DecimalType(10, 2)},
		{"reference person", ReferenceType("person")},
		{"big-reference person", BigReferenceType("person")},
		{"list:integer", ListOf(IntegerType())},
		{"list:reference tag", ListOf(ReferenceType("tag"))},
		{"json", JSONType()},
		{"blob", BinaryType()},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := Parse(tt.spec)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseRejectsMalformedSpecs(t *testing.T) {
	for _, spec := range []string{
		"",
		"varchar",
		"reference",
		"string(0)",
		"decimal(2,5)",
		"decimal(10)",
		"integer(4)",
		"list:id",
		"text person",
		"string(64); DROP TABLE x",
	} {
		_, err := Parse(spec)
		assert.Error(t, err, spec)
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, typ := range []Type{
		StringType(32),
		DecimalType(12, 4),
		ReferenceType("thing"),
		ListOf(StringType(0)),
		DateTimeType(),
	} {
		back, err := Parse(typ.String())
		require.NoError(t, err)
		assert.True(t, typ.Equal(back), typ.String())
	}
}

func TestConvertible(t *testing.T) {
	assert.True(t, Convertible(IntegerType(), DoubleType()))
	assert.True(t, Convertible(IntegerType(), StringType(10)))
	assert.True(t, Convertible(DateType(), DateTimeType()))
	assert.False(t, Convertible(BinaryType(), IntegerType()))
	assert.False(t, Convertible(BinaryType(), TextType()))
	assert.False(t, Convertible(StringType(10), IntegerType()))
}
