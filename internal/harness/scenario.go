package harness

import (
	"bytes"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/kolpmikel/FinanceApp/internal/model"
	"github.com/kolpmikel/FinanceApp/internal/testutil"
)

// Scenario defines a sync scenario: the starting state of the server and the
// device, the steps a user takes, and what must hold afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed is the state before the first step.
	Seed Seed `yaml:"seed,omitempty"`

	// Steps are executed in order on one set of engines.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	// Supported types: queue, local_ids, remote_ids, view_ids, remote_calls
	Assertions []Assertion `yaml:"assertions"`

	// RequestID is the fixed request id attached to every remote call.
	// Defaults to "test-request".
	RequestID string `yaml:"request_id,omitempty"`
}

// Seed is the state of the server and the device before the first step.
type Seed struct {
	Account    *AccountSpec   `yaml:"account,omitempty"`
	Categories []CategorySpec `yaml:"categories,omitempty"`
	Remote     []TxSpec       `yaml:"remote,omitempty"`
	Local      []TxSpec       `yaml:"local,omitempty"`
	Queue      []QueuedSpec   `yaml:"queue,omitempty"`

	// NextID is the id the server assigns to the next created transaction.
	NextID int64 `yaml:"next_id,omitempty"`
}

// TxSpec describes a transaction in a scenario file.
type TxSpec struct {
	ID       int64  `yaml:"id,omitempty"`
	Account  int64  `yaml:"account,omitempty"`
	Category int64  `yaml:"category,omitempty"`
	Amount   string `yaml:"amount"`
	Date     string `yaml:"date"` // RFC 3339
	Comment  string `yaml:"comment,omitempty"`
}

// Transaction converts s into a model transaction.
func (s TxSpec) Transaction() (model.Transaction, error) {
	amount, err := decimal.NewFromString(s.Amount)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("amount %q: %w", s.Amount, err)
	}
	date, err := model.ParseTime(s.Date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("date %q: %w", s.Date, err)
	}
	tx := model.Transaction{
		ID:              s.ID,
		Amount:          amount,
		TransactionDate: date,
		Comment:         model.String(s.Comment),
	}
	if s.Account != 0 {
		tx.AccountID = model.Int64(s.Account)
	}
	if s.Category != 0 {
		tx.CategoryID = model.Int64(s.Category)
	}
	return tx, nil
}

// AccountSpec describes the primary account.
type AccountSpec struct {
	ID       int64  `yaml:"id"`
	UserID   int64  `yaml:"user_id,omitempty"`
	Name     string `yaml:"name"`
	Balance  string `yaml:"balance"`
	Currency string `yaml:"currency"`
}

// Account converts s into a model account.
func (s AccountSpec) Account() (model.BankAccount, error) {
	balance, err := decimal.NewFromString(s.Balance)
	if err != nil {
		return model.BankAccount{}, fmt.Errorf("balance %q: %w", s.Balance, err)
	}
	return model.BankAccount{
		ID:       s.ID,
		UserID:   s.UserID,
		Name:     s.Name,
		Balance:  balance,
		Currency: s.Currency,
	}, nil
}

// CategorySpec describes a catalog entry.
type CategorySpec struct {
	ID        int64  `yaml:"id"`
	Name      string `yaml:"name"`
	Emoji     string `yaml:"emoji"`
	Direction string `yaml:"direction"`
}

// Category converts s into a model category.
func (s CategorySpec) Category() (model.Category, error) {
	dir, err := model.ParseDirection(s.Direction)
	if err != nil {
		return model.Category{}, err
	}
	c := model.Category{ID: s.ID, Name: s.Name, Emoji: s.Emoji, Direction: dir}
	return c, c.Validate()
}

// QueuedSpec is a backup queue entry present before the first step.
type QueuedSpec struct {
	Action string `yaml:"action"`
	Tx     TxSpec `yaml:"tx"`
}

// Step is one user-level call against the engines, or a change to the
// simulated environment.
type Step struct {
	// Action is one of the Action* constants.
	Action string `yaml:"action"`

	// Tx is the transaction for create and update.
	Tx *TxSpec `yaml:"tx,omitempty"`

	// ID is the transaction id for delete and forget.
	ID int64 `yaml:"id,omitempty"`

	// From and To bound a fetch. Both empty means every transaction.
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to,omitempty"`

	// Balance is the new balance for account_update.
	Balance string `yaml:"balance,omitempty"`

	// Direction filters a categories step.
	Direction string `yaml:"direction,omitempty"`

	// Offline toggles connectivity for set_remote.
	Offline *bool `yaml:"offline,omitempty"`

	// Fail maps remote ops to the HTTP status they answer with. A set_remote
	// step replaces every earlier injected failure.
	Fail map[string]int `yaml:"fail,omitempty"`

	// Faults lists the broken store method groups for set_local. An empty
	// list heals the store.
	Faults []string `yaml:"faults,omitempty"`

	// Expect validates the step result. Nil means the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected result of a step.
type Expect struct {
	// Code is "ok" or an engine error code such as REMOTE_UNAVAILABLE.
	Code string `yaml:"code,omitempty"`

	// IDs are the returned transaction ids, in order (create, fetch).
	IDs []int64 `yaml:"ids,omitempty"`

	// Count is the number of returned items (fetch, categories, replay).
	Count *int `yaml:"count,omitempty"`
}

// Step actions.
const (
	ActionCreate        = "create"
	ActionUpdate        = "update"
	ActionDelete        = "delete"
	ActionFetch         = "fetch"
	ActionReplay        = "replay"
	ActionAccount       = "account"
	ActionAccountUpdate = "account_update"
	ActionCategories    = "categories"
	ActionSetRemote     = "set_remote"
	ActionSetLocal      = "set_local"
	ActionForget        = "forget"
)

// Assertion validates the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "queue": backup queue entries equal Entries, in queue order
	// - "local_ids": local transaction ids equal IDs
	// - "remote_ids": server transaction ids equal IDs
	// - "view_ids": the transaction view ids equal IDs
	// - "remote_calls": the server received Count calls of Op
	Type string `yaml:"type"`

	// Entries are queue entries formatted "kind/id action" (used by queue).
	Entries []string `yaml:"entries,omitempty"`

	// IDs are transaction ids sorted by date then id (used by *_ids).
	IDs []int64 `yaml:"ids,omitempty"`

	// Op is the remote op (used by remote_calls).
	Op string `yaml:"op,omitempty"`

	// Count is the expected number of calls (used by remote_calls).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertQueue       = "queue"
	AssertLocalIDs    = "local_ids"
	AssertRemoteIDs   = "remote_ids"
	AssertViewIDs     = "view_ids"
	AssertRemoteCalls = "remote_calls"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields so "assertion:" vs "assertions:" typos fail loudly
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if err := validateSeed(&s.Seed); err != nil {
		return err
	}
	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateSeed(seed *Seed) error {
	if seed.Account != nil {
		if _, err := seed.Account.Account(); err != nil {
			return fmt.Errorf("seed.account: %w", err)
		}
	}
	for i, c := range seed.Categories {
		if _, err := c.Category(); err != nil {
			return fmt.Errorf("seed.categories[%d]: %w", i, err)
		}
	}
	for i, tx := range seed.Remote {
		if err := validateTx(tx, true); err != nil {
			return fmt.Errorf("seed.remote[%d]: %w", i, err)
		}
	}
	for i, tx := range seed.Local {
		if err := validateTx(tx, true); err != nil {
			return fmt.Errorf("seed.local[%d]: %w", i, err)
		}
	}
	for i, q := range seed.Queue {
		if _, err := model.ParseAction(q.Action); err != nil {
			return fmt.Errorf("seed.queue[%d]: %w", i, err)
		}
		if err := validateTx(q.Tx, true); err != nil {
			return fmt.Errorf("seed.queue[%d].tx: %w", i, err)
		}
	}
	if seed.NextID < 0 {
		return fmt.Errorf("seed.next_id must be non-negative")
	}
	return nil
}

func validateTx(tx TxSpec, needID bool) error {
	if needID && tx.ID <= 0 {
		return fmt.Errorf("id is required")
	}
	if tx.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	if tx.Date == "" {
		return fmt.Errorf("date is required")
	}
	_, err := tx.Transaction()
	return err
}

// validateStep validates a single step based on its action.
func validateStep(index int, st *Step) error {
	switch st.Action {
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	case ActionCreate, ActionUpdate:
		if st.Tx == nil {
			return fmt.Errorf("steps[%d]: tx is required for %s", index, st.Action)
		}
		if err := validateTx(*st.Tx, st.Action == ActionUpdate); err != nil {
			return fmt.Errorf("steps[%d].tx: %w", index, err)
		}
	case ActionDelete, ActionForget:
		if st.ID <= 0 {
			return fmt.Errorf("steps[%d]: id is required for %s", index, st.Action)
		}
	case ActionFetch:
		if (st.From == "") != (st.To == "") {
			return fmt.Errorf("steps[%d]: fetch needs both from and to, or neither", index)
		}
		if _, err := st.interval(); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	case ActionAccountUpdate:
		if _, err := decimal.NewFromString(st.Balance); err != nil {
			return fmt.Errorf("steps[%d]: balance: %w", index, err)
		}
	case ActionCategories:
		if st.Direction != "" {
			if _, err := model.ParseDirection(st.Direction); err != nil {
				return fmt.Errorf("steps[%d]: %w", index, err)
			}
		}
	case ActionSetRemote:
		for op, status := range st.Fail {
			if _, err := testutil.ParseOp(op); err != nil {
				return fmt.Errorf("steps[%d]: %w", index, err)
			}
			if status < 400 || status > 599 {
				return fmt.Errorf("steps[%d]: fail status %d for %s is not an error status", index, status, op)
			}
		}
	case ActionSetLocal:
		for _, f := range st.Faults {
			if _, err := testutil.ParseFault(f); err != nil {
				return fmt.Errorf("steps[%d]: %w", index, err)
			}
		}
	case ActionReplay, ActionAccount:
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, st.Action)
	}
	return nil
}

// interval returns the fetch bounds, both ends inclusive.
func (st *Step) interval() (model.Interval, error) {
	if st.From == "" {
		return model.Interval{}, nil
	}
	from, err := model.ParseTime(st.From)
	if err != nil {
		return model.Interval{}, fmt.Errorf("from: %w", err)
	}
	to, err := model.ParseTime(st.To)
	if err != nil {
		return model.Interval{}, fmt.Errorf("to: %w", err)
	}
	if to.Before(from) {
		return model.Interval{}, fmt.Errorf("to %s is before from %s", st.To, st.From)
	}
	return model.Interval{Start: from, End: to}, nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertQueue, AssertLocalIDs, AssertRemoteIDs, AssertViewIDs:
	case AssertRemoteCalls:
		if _, err := testutil.ParseOp(a.Op); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for remote_calls", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
