package ident_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/ident"
	"github.com/stretchr/testify/assert"
)

func TestValidateID_Valid(t *testing.T) {
	for _, id := range []string{"harness", "h1", "full-body_harness.v2", "A9"} {
		assert.NoError(t, ident.ValidateID("item", id), id)
	}
}

func TestValidateID_Invalid(t *testing.T) {
	cases := []string{"", "-lead", "a/b", "a..b", "with space", "\u00fc", strings.Repeat("x", 65)}
	for _, id := range cases {
		err := ident.ValidateID("category", id)
		assert.True(t, errors.Is(err, errclass.ErrNameInvalid), "expected invalid: %q", id)
	}
}

func TestNormalizeText_NFC(t *testing.T) {
	decomposed := "Cafe\u0301"
	assert.Equal(t, "Caf\u00e9", ident.NormalizeText(decomposed))
}

func TestNormalizeText_StripsControl(t *testing.T) {
	assert.Equal(t, "line1\nline2\tend", ident.NormalizeText("line1\nline2\tend\x00\x07"))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, ident.IsBlank(""))
	assert.True(t, ident.IsBlank(" \t\n "))
	assert.False(t, ident.IsBlank(" x "))
}
