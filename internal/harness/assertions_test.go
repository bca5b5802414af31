package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/climatevalue/internal/model"
)

func intp(n int) *int    { return &n }
func boolp(b bool) *bool { return &b }

func TestCheckRun(t *testing.T) {
	rr := RunResult{Summary: model.RunSummary{
		Inserted: 5,
		Entities: []model.EntityResult{
			{Key: "phoenix", Status: model.StatusDone, Allocation: 5, Inserted: 5},
		},
	}}

	t.Run("matching", func(t *testing.T) {
		exp := &RunExpect{
			Inserted: intp(5),
			Canceled: boolp(false),
			Entities: map[string]EntityExpect{"phoenix": {Status: "done", Inserted: intp(5)}},
		}
		assert.Empty(t, checkRun(0, exp, rr))
	})

	t.Run("mismatch and absent entity", func(t *testing.T) {
		exp := &RunExpect{
			Complete: boolp(true),
			Entities: map[string]EntityExpect{
				"miami":   {},
				"phoenix": {Status: "failed"},
			},
		}
		errs := checkRun(1, exp, rr)
		require.Len(t, errs, 3)
		assert.Contains(t, errs[0], "run 2 complete = true")
		assert.Contains(t, errs[1], "run 2 miami = present")
		assert.Contains(t, errs[2], "run 2 phoenix.status = failed")
	})

	t.Run("nil expectation", func(t *testing.T) {
		assert.Nil(t, checkRun(0, nil, rr))
	})
}

func TestAssertQuotaBound(t *testing.T) {
	s := &Scenario{Budget: 10}

	ok := &Result{Runs: []RunResult{{Summary: model.RunSummary{
		Inserted: 10,
		Entities: []model.EntityResult{{Key: "a", Allocation: 10, Inserted: 10}},
	}}}}
	assert.NoError(t, assertQuotaBound(ok, s))

	over := &Result{Runs: []RunResult{{Summary: model.RunSummary{
		Inserted: 4,
		Entities: []model.EntityResult{{Key: "a", Allocation: 3, Inserted: 4}},
	}}}}
	err := assertQuotaBound(over, s)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertQuotaBound, ae.Type)
}

func TestAssertRunComplete(t *testing.T) {
	assert.Error(t, assertRunComplete(&Result{}))
	done := &Result{Runs: []RunResult{{Summary: model.RunSummary{Complete: true}}}}
	assert.NoError(t, assertRunComplete(done))
}
