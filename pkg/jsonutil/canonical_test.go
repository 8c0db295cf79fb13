package jsonutil_test

import (
	"math"
	"testing"

	"github.com/ppecheck/ppecheck/pkg/jsonutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalMarshal_SortsNestedKeys(t *testing.T) {
	out, err := jsonutil.CanonicalMarshal(map[string]any{
		"lanyard": map[string]any{"z": 1, "a": []any{"x", nil}},
		"harness": true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"harness":true,"lanyard":{"a":["x",null],"z":1}}`, string(out))
}

func TestCanonicalMarshal_StructFieldOrderIgnored(t *testing.T) {
	type ab struct {
		B string `json:"b"`
		A string `json:"a"`
	}
	type ba struct {
		A string `json:"a"`
		B string `json:"b"`
	}
	x, err := jsonutil.CanonicalMarshal(ab{A: "1", B: "2"})
	require.NoError(t, err)
	y, err := jsonutil.CanonicalMarshal(ba{A: "1", B: "2"})
	require.NoError(t, err)
	assert.Equal(t, x, y)
}

func TestCanonicalMarshal_NumbersVerbatim(t *testing.T) {
	out, err := jsonutil.CanonicalMarshal(map[string]any{
		"lat": 52.520008123456789,
		"big": int64(1714658400000123),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"big":1714658400000123,"lat":52.52000812345679}`, string(out))
}

func TestCanonicalMarshal_Unsupported(t *testing.T) {
	_, err := jsonutil.CanonicalMarshal(math.Inf(1))
	assert.Error(t, err)
}
