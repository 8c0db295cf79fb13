package color

import (
	"strings"
	"testing"

	"github.com/ppecheck/ppecheck/pkg/model"
	"github.com/stretchr/testify/assert"
)

func restore(t *testing.T) {
	enabled, overridden := state.enabled.Load(), state.overridden.Load()
	t.Cleanup(func() {
		state.enabled.Store(enabled)
		state.overridden.Store(overridden)
	})
}

func TestEnableDisable(t *testing.T) {
	restore(t)

	Enable()
	assert.True(t, Enabled())
	Disable()
	assert.False(t, Enabled())
}

func TestWrapping(t *testing.T) {
	restore(t)
	Enable()

	assert.Equal(t, Green+"ok"+Reset, Success("ok"))
	assert.Equal(t, Red+"bad 2"+Reset, Errorf("bad %d", 2))
	assert.Equal(t, Yellow+"careful"+Reset, Warningf("care%s", "ful"))
	assert.Equal(t, Cyan+"abc"+Reset, ID("abc"))
	assert.Equal(t, Bold+"H"+Reset, Header("H"))
	assert.Equal(t, DimCode+"d"+Reset, Dim("d"))
	assert.Equal(t, Green+"x"+Reset, Successf("x"))
	assert.Equal(t, Red+"e"+Reset, Error("e"))
	assert.Equal(t, Yellow+"w"+Reset, Warning("w"))
}

func TestDisabledIsPlain(t *testing.T) {
	restore(t)
	Disable()

	assert.Equal(t, "ok", Success("ok"))
	assert.Equal(t, "[FAIL]", Status(model.StatusFail))
	assert.Equal(t, "success_with_issues", Outcome(model.OutcomeSuccessWithIssues))
}

func TestStatusMarkersSameWidth(t *testing.T) {
	restore(t)
	Disable()

	for _, s := range []model.ItemStatus{model.StatusPass, model.StatusFail, model.StatusNotApplicable, model.StatusUndecided} {
		assert.Len(t, Status(s), 6, s)
	}
}

func TestStatusColors(t *testing.T) {
	restore(t)
	Enable()

	assert.True(t, strings.HasPrefix(Status(model.StatusPass), Green))
	assert.True(t, strings.HasPrefix(Status(model.StatusFail), Red))
	assert.True(t, strings.HasPrefix(Status(model.StatusUndecided), Yellow))
	assert.True(t, strings.HasPrefix(Outcome(model.OutcomeSuccess), Green))
}
