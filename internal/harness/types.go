package harness

import "github.com/roach88/aligniov/internal/ir"

// Trace event types.
const (
	EventResolve    = "resolve"
	EventQueryError = "query_error"
	EventBuildError = "build_error"
)

// TraceEvent records one step of a scenario run.
type TraceEvent struct {
	Type string `json:"type"`
	Seq  int64  `json:"seq"`

	Channel     string         `json:"channel,omitempty"`
	At          string         `json:"at,omitempty"`
	Interval    ir.Interval    `json:"interval"`
	Corrections ir.Corrections `json:"corrections"`
	Refreshed   bool           `json:"refreshed"`

	// Error is the query error message; Code is the loader error code of
	// a failed build.
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation and assertion holds.
	Pass bool `json:"pass"`

	// Trace contains every query outcome in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
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

// nextSeq returns the logical sequence number of the next trace event.
func (r *Result) nextSeq() int64 {
	return int64(len(r.Trace)) + 1
}

// AddResolveTrace records a successful query.
func (r *Result) AddResolveTrace(ch ir.Channel, at ir.TimePoint, iv ir.Interval, c ir.Corrections, refreshed bool) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:        EventResolve,
		Seq:         r.nextSeq(),
		Channel:     ch.String(),
		At:          at.String(),
		Interval:    iv,
		Corrections: c,
		Refreshed:   refreshed,
	})
}

// AddQueryErrorTrace records a failed query.
func (r *Result) AddQueryErrorTrace(channel string, at ir.TimePoint, err error) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    EventQueryError,
		Seq:     r.nextSeq(),
		Channel: channel,
		At:      at.String(),
		Error:   err.Error(),
	})
}

// AddBuildErrorTrace records a failed build by its loader error code.
func (r *Result) AddBuildErrorTrace(code string) {
	r.Trace = append(r.Trace, TraceEvent{
		Type: EventBuildError,
		Seq:  r.nextSeq(),
		Code: code,
	})
}
