package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/kolpmikel/FinanceApp/internal/model"
)

// Snapshot renders the trace and final data of a run as canonical JSON.
// Golden files hold exactly these bytes.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, event := range result.Trace {
		entry := map[string]any{
			"seq":    event.Seq,
			"action": event.Action,
			"code":   event.Code,
		}
		if len(event.IDs) > 0 {
			ids := make([]any, len(event.IDs))
			for j, id := range event.IDs {
				ids[j] = id
			}
			entry["ids"] = ids
		}
		trace[i] = entry
	}

	queue := make([]any, len(result.State.Queue))
	for i, q := range result.State.Queue {
		queue[i] = q
	}

	return model.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"trace":         trace,
		"local":         rowsToAny(result.State.Local),
		"remote":        rowsToAny(result.State.Remote),
		"queue":         queue,
	})
}

func rowsToAny(rows []map[string]any) []any {
	out := make([]any, len(rows))
	for i, row := range rows {
		out[i] = row
	}
	return out
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass and Errors.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the snapshot of an existing result against its
// golden file without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)
	return nil
}
