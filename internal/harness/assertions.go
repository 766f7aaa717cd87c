package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s", event.Seq, event.Action, event.Code)
		if len(event.IDs) > 0 {
			fmt.Fprintf(&buf, " %v", event.IDs)
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}

func stateIDs(rows []map[string]any) []int64 {
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i], _ = row["id"].(int64)
	}
	return ids
}

func assertIDs(result *Result, kind string, want, got []int64) error {
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("ids %v", want),
		Actual:   fmt.Sprintf("ids %v", got),
		Trace:    result.Trace,
	}
}

// assertQueue checks the backup queue entries, in queue order.
func assertQueue(result *Result, assertion Assertion) error {
	got := result.State.Queue
	if slices.Equal(assertion.Entries, got) {
		return nil
	}
	return &AssertionError{
		Type:     AssertQueue,
		Expected: fmt.Sprintf("entries %q", assertion.Entries),
		Actual:   fmt.Sprintf("entries %q", got),
		Trace:    result.Trace,
	}
}

// assertRemoteCalls checks how many calls of one op reached the server.
func assertRemoteCalls(result *Result, assertion Assertion) error {
	got := result.State.Calls[assertion.Op]
	if got == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertRemoteCalls,
		Expected: fmt.Sprintf("%d %s calls", assertion.Count, assertion.Op),
		Actual:   fmt.Sprintf("%d %s calls", got, assertion.Op),
		Trace:    result.Trace,
	}
}

// EvaluateAssertions evaluates all assertions against the final state of result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertQueue:
			err = assertQueue(result, assertion)
		case AssertLocalIDs:
			err = assertIDs(result, assertion.Type, assertion.IDs, stateIDs(result.State.Local))
		case AssertRemoteIDs:
			err = assertIDs(result, assertion.Type, assertion.IDs, stateIDs(result.State.Remote))
		case AssertViewIDs:
			err = assertIDs(result, assertion.Type, assertion.IDs, result.State.View)
		case AssertRemoteCalls:
			err = assertRemoteCalls(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
