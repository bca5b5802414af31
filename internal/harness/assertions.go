package harness

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/climatevalue/internal/model"
	"github.com/roach88/climatevalue/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // assertion type, or "expect" for run expectations
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// AssertionContext provides the state assertions inspect.
type AssertionContext struct {
	Store    *store.Store
	Ctx      context.Context
	Scenario *Scenario
}

// EvaluateAssertions runs every assertion and returns failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertRecordCount:
			err = assertRecordCount(result, a)
		case AssertUniqueRecords:
			err = assertUniqueRecords(actx)
		case AssertQuotaBound:
			err = assertQuotaBound(result, actx.Scenario)
		case AssertRunComplete:
			err = assertRunComplete(result)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func assertRecordCount(result *Result, a Assertion) error {
	got := result.Counts[a.Entity]
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertRecordCount,
		Expected: fmt.Sprintf("%s has %d records", a.Entity, a.Count),
		Actual:   fmt.Sprintf("%d records", got),
	}
}

// assertUniqueRecords checks that no (entity, discriminator) pair is stored
// twice.
func assertUniqueRecords(actx *AssertionContext) error {
	groups, err := actx.Store.Duplicates(actx.Ctx)
	if err != nil {
		return fmt.Errorf("unique_records: %w", err)
	}
	if len(groups) == 0 {
		return nil
	}
	first := groups[0]
	return &AssertionError{
		Type:     AssertUniqueRecords,
		Expected: "no duplicate records",
		Actual:   fmt.Sprintf("%d duplicate groups, first %s/%s x%d", len(groups), first.Key, first.Discriminator, first.Count),
	}
}

// assertQuotaBound checks every run stayed within its budget and every
// entity within its allocation.
func assertQuotaBound(result *Result, s *Scenario) error {
	for i, rr := range result.Runs {
		if rr.Summary.Inserted > s.Budget {
			return &AssertionError{
				Type:     AssertQuotaBound,
				Expected: fmt.Sprintf("run %d inserts at most %d", i+1, s.Budget),
				Actual:   fmt.Sprintf("%d inserted", rr.Summary.Inserted),
			}
		}
		for _, e := range rr.Summary.Entities {
			if e.Inserted > e.Allocation {
				return &AssertionError{
					Type:     AssertQuotaBound,
					Expected: fmt.Sprintf("run %d: %s inserts at most %d", i+1, e.Key, e.Allocation),
					Actual:   fmt.Sprintf("%d inserted", e.Inserted),
				}
			}
		}
	}
	return nil
}

func assertRunComplete(result *Result) error {
	if len(result.Runs) > 0 && result.Runs[len(result.Runs)-1].Summary.Complete {
		return nil
	}
	return &AssertionError{
		Type:     AssertRunComplete,
		Expected: "last run complete",
		Actual:   "incomplete",
	}
}

// checkRun compares a run against its expectations.
func checkRun(index int, exp *RunExpect, rr RunResult) []string {
	if exp == nil {
		return nil
	}
	var errs []string
	mismatch := func(what string, want, got any) {
		errs = append(errs, (&AssertionError{
			Type:     "expect",
			Expected: fmt.Sprintf("run %d %s = %v", index+1, what, want),
			Actual:   fmt.Sprintf("%v", got),
		}).Error())
	}
	checkInt := func(what string, want *int, got int) {
		if want != nil && *want != got {
			mismatch(what, *want, got)
		}
	}
	checkBool := func(what string, want *bool, got bool) {
		if want != nil && *want != got {
			mismatch(what, *want, got)
		}
	}

	s := rr.Summary
	checkInt("inserted", exp.Inserted, s.Inserted)
	checkInt("duplicates", exp.Duplicates, s.Duplicates)
	checkInt("skipped", exp.Skipped, s.Skipped)
	checkInt("failed", exp.Failed, s.Failed)
	checkBool("complete", exp.Complete, s.Complete)
	checkBool("canceled", exp.Canceled, rr.Canceled)

	byKey := make(map[string]model.EntityResult, len(s.Entities))
	for _, e := range s.Entities {
		byKey[e.Key] = e
	}
	for _, key := range slices.Sorted(maps.Keys(exp.Entities)) {
		want := exp.Entities[key]
		got, ok := byKey[key]
		if !ok {
			mismatch(key, "present", "absent")
			continue
		}
		if want.Status != "" && want.Status != string(got.Status) {
			mismatch(key+".status", want.Status, got.Status)
		}
		checkInt(key+".allocation", want.Allocation, got.Allocation)
		checkInt(key+".inserted", want.Inserted, got.Inserted)
		checkInt(key+".duplicates", want.Duplicates, got.Duplicates)
		checkInt(key+".skipped", want.Skipped, got.Skipped)
		checkBool(key+".aggregated", want.Aggregated, got.Aggregated)
	}
	return errs
}
