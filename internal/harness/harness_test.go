package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func boolPtr(b bool) *bool { return &b }

func TestRun_CreateMirrorsLocally(t *testing.T) {
	scenario := &Scenario{
		Name:        "create",
		Description: "create online",
		Seed:        Seed{NextID: 42},
		Steps: []Step{
			{Action: ActionCreate, Tx: &TxSpec{Account: 1, Amount: "100", Date: "2025-06-03T10:00:00Z"}, Expect: &Expect{IDs: []int64{42}}},
		},
		Assertions: []Assertion{
			{Type: AssertLocalIDs, IDs: []int64{42}},
			{Type: AssertRemoteIDs, IDs: []int64{42}},
			{Type: AssertViewIDs, IDs: []int64{42}},
			{Type: AssertQueue},
			{Type: AssertRemoteCalls, Op: "create", Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 1)
	assert.Equal(t, TraceEvent{Seq: 1, Action: ActionCreate, Code: CodeOK, IDs: []int64{42}}, result.Trace[0])
}

func TestRun_StepFailureWithoutExpectFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "offline",
		Description: "fetch with nothing to fall back on",
		Steps: []Step{
			{Action: ActionSetRemote, Offline: boolPtr(true)},
			{Action: ActionFetch},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "steps[1] fetch: expected code ok, got REMOTE_UNAVAILABLE")
	assert.Equal(t, "REMOTE_UNAVAILABLE", result.Trace[1].Code)
}

func TestRun_InjectedStatusIsClassified(t *testing.T) {
	scenario := &Scenario{
		Name:        "rejected",
		Description: "the server refuses creates",
		Steps: []Step{
			{Action: ActionSetRemote, Fail: map[string]int{"create": 422}},
			{Action: ActionCreate, Tx: &TxSpec{Amount: "5", Date: "2025-06-01T10:00:00Z"}, Expect: &Expect{Code: "REMOTE_REJECTED"}},
			{Action: ActionSetRemote},
			{Action: ActionCreate, Tx: &TxSpec{Amount: "5", Date: "2025-06-01T10:00:00Z"}, Expect: &Expect{IDs: []int64{1}}},
		},
		Assertions: []Assertion{
			{Type: AssertRemoteIDs, IDs: []int64{1}},
			{Type: AssertRemoteCalls, Op: "create", Count: 2},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_SeededQueueIsReplayed(t *testing.T) {
	tx := TxSpec{ID: 9, Account: 1, Amount: "70", Date: "2025-06-04T10:00:00Z"}
	scenario := &Scenario{
		Name:        "seeded queue",
		Description: "an entry left by an earlier session",
		Seed: Seed{
			Remote: []TxSpec{tx},
			Queue:  []QueuedSpec{{Action: "create", Tx: tx}},
		},
		Steps: []Step{
			{Action: ActionReplay, Expect: &Expect{Count: intPtr(1)}},
		},
		Assertions: []Assertion{
			{Type: AssertQueue, Entries: []string{}},
			{Type: AssertLocalIDs, IDs: []int64{9}},
			{Type: AssertRemoteCalls, Op: "create", Count: 0},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_MismatchedExpectations(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "every check is wrong",
		Seed: Seed{
			Remote: []TxSpec{{ID: 1, Amount: "1", Date: "2025-06-01T10:00:00Z"}},
		},
		Steps: []Step{
			{Action: ActionFetch, Expect: &Expect{IDs: []int64{2}, Count: intPtr(3)}},
		},
		Assertions: []Assertion{
			{Type: AssertLocalIDs, IDs: []int64{2}},
			{Type: AssertQueue, Entries: []string{"transaction/1 create"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "expected ids [2], got [1]")
	assert.Contains(t, result.Errors[1], "expected count 3, got 1")
	assert.Contains(t, result.Errors[2], "Assertion failed: local_ids")
	assert.Contains(t, result.Errors[3], "Assertion failed: queue")
}

func TestRun_AccountAndCategories(t *testing.T) {
	scenario := &Scenario{
		Name:        "account",
		Description: "account and catalog reads",
		Seed: Seed{
			Account: &AccountSpec{ID: 1, UserID: 7, Name: "Main", Balance: "10", Currency: "RUB"},
			Categories: []CategorySpec{
				{ID: 1, Name: "Salary", Emoji: "\U0001F4B0", Direction: "income"},
				{ID: 2, Name: "Cafe", Emoji: "\u2615", Direction: "outcome"},
			},
		},
		Steps: []Step{
			{Action: ActionAccount, Expect: &Expect{IDs: []int64{1}}},
			{Action: ActionCategories, Expect: &Expect{Count: intPtr(2)}},
			{Action: ActionSetRemote, Offline: boolPtr(true)},
			{Action: ActionCategories, Direction: "income", Expect: &Expect{IDs: []int64{1}}},
			{Action: ActionAccount, Expect: &Expect{IDs: []int64{1}}},
			{Action: ActionAccountUpdate, Balance: "20", Expect: &Expect{Code: "REMOTE_UNAVAILABLE"}},
		},
		Assertions: []Assertion{
			{Type: AssertRemoteCalls, Op: "fetch_account", Count: 1},
			{Type: AssertRemoteCalls, Op: "categories", Count: 2},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "offline_create_then_sync.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestScenarios(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)
			require.Equal(t, name, scenario.Name, "scenario name must match its file")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}
