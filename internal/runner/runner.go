package runner

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/restbench/restbench/internal/dispatch"
	"github.com/restbench/restbench/internal/history"
	"github.com/restbench/restbench/internal/logging"
	"github.com/restbench/restbench/internal/types"
	"github.com/restbench/restbench/internal/vars"
)

// EnvironmentSource supplies the variable scopes for a run. Implemented by
// the store package; tests use inline fakes.
type EnvironmentSource interface {
	// GlobalVariables returns the active (or default) environment's variables.
	GlobalVariables() (map[string]string, error)
	// CollectionVariables returns the collection's active sub-environment
	// variables, falling back to its first sub-environment.
	CollectionVariables(collectionID string) (map[string]string, error)
}

// Progress is emitted after each item of a collection run.
type Progress struct {
	Current     int    `json:"current"`
	Total       int    `json:"total"`
	RequestID   string `json:"requestId"`
	RequestName string `json:"requestName"`
	Status      string `json:"status"` // "completed" or "error"
	Err         string `json:"error,omitempty"`
}

// Options tunes one Run invocation.
type Options struct {
	// OnProgress, when set, is invoked once per item after its result is
	// recorded. Called from the run goroutine; keep it cheap.
	OnProgress func(Progress)
}

// Runner executes saved requests: one at a time for ad hoc sends, or a
// whole collection strictly sequentially.
type Runner struct {
	dispatcher *dispatch.Service
	envs       EnvironmentSource
	recorder   history.Recorder
	log        logging.Logger
}

// New creates a Runner. recorder may be nil to disable history.
func New(dispatcher *dispatch.Service, envs EnvironmentSource, recorder history.Recorder, log logging.Logger) *Runner {
	return &Runner{
		dispatcher: dispatcher,
		envs:       envs,
		recorder:   recorder,
		log:        logging.OrNoop(log),
	}
}

// Execute is the single-send unit: resolve, dispatch, record. Transport
// failures, timeouts and cancellations propagate as errors - the caller
// decides what failure means for a one-off send. History is recorded on
// success and failure alike.
func (r *Runner) Execute(ctx context.Context, req types.RequestDescriptor, vctx types.VariableContext) (*types.DispatchResult, error) {
	resolved, unresolved := vars.ResolveRequest(req, vctx)
	for _, name := range unresolved {
		r.log.Warn("unresolved variable %q in request %s", name, req.Name)
	}

	result, err := r.dispatcher.Send(ctx, resolved.URL, dispatch.SendOptions{
		Method:        resolved.Method,
		Headers:       resolved.Headers,
		Body:          resolved.Body,
		IsJSON:        resolved.IsJSON,
		QueryParams:   resolved.QueryParams,
		TimeoutMs:     resolved.TimeoutMs,
		TransactionID: resolved.TransactionID,
	})
	if err != nil {
		r.record(req, resolved, dispatch.ResultFromError(err))
		return nil, err
	}

	if resolved.Filter != "" || resolved.Query != "" {
		filtered, ferr := dispatch.ApplyFilter(result.Body, resolved.Filter, resolved.Query)
		if ferr != nil {
			r.log.Warn("response filter skipped for request %s: %v", req.Name, ferr)
		} else {
			result.Body = filtered
		}
	}

	r.record(req, resolved, result)
	return result, nil
}

// Run executes a collection strictly sequentially. The variable context is
// determined once, before the first item. A failing item is converted to a
// failed RunResult and the loop continues; no per-item error ever escapes.
func (r *Runner) Run(ctx context.Context, collectionID string, requests []types.RequestDescriptor, opts Options) *types.RunReport {
	vctx := r.variableContext(collectionID)

	ordered := make([]types.RequestDescriptor, len(requests))
	copy(ordered, requests)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Order != ordered[j].Order {
			return ordered[i].Order < ordered[j].Order
		}
		return ordered[i].ID < ordered[j].ID
	})

	report := &types.RunReport{
		Results: make([]types.RunResult, 0, len(ordered)),
		Summary: types.RunSummary{Total: len(ordered)},
	}

	for i, req := range ordered {
		result, err := r.Execute(ctx, req, vctx)

		item := types.RunResult{
			RequestID:   req.ID,
			RequestName: req.Name,
		}
		progress := Progress{
			Current:     i + 1,
			Total:       len(ordered),
			RequestID:   req.ID,
			RequestName: req.Name,
		}

		if err != nil {
			item.Error = err.Error()
			progress.Status = "error"
			progress.Err = err.Error()
		} else {
			item.Success = true
			item.Status = result.Status
			item.ResponseTimeMs = result.ResponseTimeMs
			progress.Status = "completed"
		}

		report.Results = append(report.Results, item)
		if item.Success && item.Status < 400 {
			report.Summary.Passed++
		} else {
			report.Summary.Failed++
		}

		if opts.OnProgress != nil {
			opts.OnProgress(progress)
		}
	}

	return report
}

// variableContext captures the run-wide scopes. A provider failure degrades
// to an empty scope rather than aborting the run.
func (r *Runner) variableContext(collectionID string) types.VariableContext {
	vctx := types.VariableContext{}
	if r.envs == nil {
		return vctx
	}

	global, err := r.envs.GlobalVariables()
	if err != nil {
		r.log.Warn("failed to load global environment: %v", err)
	}
	vctx.Global = global

	if collectionID != "" {
		collection, err := r.envs.CollectionVariables(collectionID)
		if err != nil {
			r.log.Warn("failed to load collection environment: %v", err)
		}
		vctx.Collection = collection
	}

	return vctx
}

// record persists one execution. Failures are logged and swallowed - they
// must never mask the outcome of the dispatch they describe.
func (r *Runner) record(original, resolved types.RequestDescriptor, result *types.DispatchResult) {
	if r.recorder == nil {
		return
	}

	entry := types.HistoryEntry{
		RequestID:      original.ID,
		CollectionID:   original.CollectionID,
		RequestName:    original.Name,
		Method:         resolved.Method,
		URL:            resolved.URL,
		Headers:        resolved.Headers,
		Body:           original.Body,
		QueryParams:    original.QueryParams,
		ResponseStatus: result.Status,
		ResponseText:   result.StatusText,
		ResponseHeader: result.Headers,
		ResponseBody:   renderBody(result.Body),
		ResponseTimeMs: result.ResponseTimeMs,
		Error:          result.Error,
	}

	if err := r.recorder.Record(entry); err != nil {
		r.log.Warn("failed to record history for %s %s: %v", resolved.Method, resolved.URL, err)
	}
}

// renderBody flattens a typed response body for storage.
func renderBody(body any) string {
	switch v := body.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
