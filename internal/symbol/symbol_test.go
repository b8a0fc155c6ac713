package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name      string
		signature string
		want      OverloadKey
	}{
		{"f", "", OverloadKey{Name: "f"}},
		{"f", "()", OverloadKey{Name: "f", Params: "void"}},
		{"f", "(void)", OverloadKey{Name: "f", Params: "void"}},
		{"f", "(int)", OverloadKey{Name: "f", Params: "int"}},
		{"f", "(int x)", OverloadKey{Name: "f", Params: "int"}},
		{"f", "(int, double)", OverloadKey{Name: "f", Params: "int,double"}},
		{"f", "(unsigned long count)", OverloadKey{Name: "f", Params: "unsigned long"}},
		{"f", "(char *buf)", OverloadKey{Name: "f", Params: "char *buf"}},
		{"f", "(int,  double )", OverloadKey{Name: "f", Params: "int,double"}},
	}
	for _, tc := range cases {
		got := DeriveKey(tc.name, tc.signature)
		assert.Equal(t, tc.want, got, "signature %q", tc.signature)
	}
}

func TestOverloadKey_Known(t *testing.T) {
	t.Parallel()
	assert.False(t, DeriveKey("f", "").Known())
	assert.True(t, DeriveKey("f", "()").Known())
	assert.Equal(t, "f(int)", DeriveKey("f", "(int)").String())
	assert.Equal(t, "f", DeriveKey("f", "").String())
}

func TestLocation_Validate(t *testing.T) {
	t.Parallel()
	good := Location{File: "a.c", StartLine: 1, StartCol: 1, EndLine: 2, EndCol: 5}
	require.NoError(t, good.Validate())

	bad := good
	bad.File = ""
	assert.Error(t, bad.Validate())

	bad = good
	bad.StartLine = 0
	assert.Error(t, bad.Validate())

	bad = good
	bad.EndLine = 1
	bad.EndCol = 0
	assert.Error(t, bad.Validate())

	// Same-line span with end column before start column is inverted.
	bad = good
	bad.EndLine = 1
	bad.EndCol = 1
	bad.StartCol = 9
	assert.Error(t, bad.Validate())
}

func TestDefinition_Validate(t *testing.T) {
	t.Parallel()
	d := Definition{
		Name:     "alpha",
		Kind:     KindFunction,
		Location: Location{File: "a.c", StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 8},
	}
	require.NoError(t, d.Validate())

	d.Kind = "module"
	assert.Error(t, d.Validate())

	d.Kind = KindMethod
	d.Name = ""
	assert.Error(t, d.Validate())
}
