package harness

// TraceEvent records one executed scenario step.
type TraceEvent struct {
	Seq    int64   `json:"seq"`
	Action string  `json:"action"`
	Code   string  `json:"code"` // "ok" or the engine error code
	IDs    []int64 `json:"ids,omitempty"`
}

// CodeOK is the trace code of a step that returned no error.
const CodeOK = "ok"

// State is the final state of the simulated device and server.
type State struct {
	Local  []map[string]any // local transaction rows, canonical fields
	Remote []map[string]any // server transactions, canonical fields
	Queue  []string         // backup queue entries, "kind/id action"
	View   []int64          // ids of the transaction view
	Calls  map[string]int   // remote calls per op
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is captured after the last step.
	State State `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(seq int64, action, code string, ids []int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:    seq,
		Action: action,
		Code:   code,
		IDs:    ids,
	})
}
