package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/restbench/restbench/internal/config"
	"github.com/restbench/restbench/internal/dispatch"
	"github.com/restbench/restbench/internal/history"
	"github.com/restbench/restbench/internal/logging"
	"github.com/restbench/restbench/internal/parser"
	"github.com/restbench/restbench/internal/runner"
	"github.com/restbench/restbench/internal/store"
	"github.com/restbench/restbench/internal/types"
)

// Options carries the shared flags of the send and run commands.
type Options struct {
	EnvFile      string // optional .env overlay
	Environments string // environments file override
	TimeoutMs    int64  // per-request timeout override
	OutputJSON   bool   // machine-readable output
	NoHistory    bool   // skip history recording
}

// engine wires the dispatch service, environments and history together.
type engine struct {
	runner   *runner.Runner
	envs     *store.Manager
	recorder *history.Manager
}

func newEngine(opts Options, log logging.Logger) (*engine, error) {
	envs := store.NewManager()
	envPath := opts.Environments
	if envPath == "" {
		envPath = config.GetEnvironmentsFilePath()
	}
	if err := envs.Load(envPath); err != nil {
		return nil, err
	}
	if opts.EnvFile != "" {
		if err := envs.LoadEnvFile(opts.EnvFile); err != nil {
			return nil, err
		}
	}

	var recorder *history.Manager
	if !opts.NoHistory {
		var err error
		recorder, err = history.NewManager(config.DatabasePath)
		if err != nil {
			return nil, err
		}
	}

	dispatcher := dispatch.NewService(log)

	// A nil interface must stay nil; wrap the concrete recorder only when
	// history is enabled.
	var rec history.Recorder
	if recorder != nil {
		rec = recorder
	}

	return &engine{
		runner:   runner.New(dispatcher, envs, rec, log),
		envs:     envs,
		recorder: recorder,
	}, nil
}

func (e *engine) close() {
	if e.recorder != nil {
		e.recorder.Close()
	}
}

// interruptContext returns a context cancelled by Ctrl-C.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// Send executes one request file and prints the result. Transport-level
// failures are rendered as a status-0 result rather than aborting with a
// bare error, so scripted callers always get a result shape.
func Send(filePath string, opts Options) error {
	log := logging.NewDefault()

	req, err := parser.ParseRequestFile(filePath)
	if err != nil {
		return err
	}
	if opts.TimeoutMs > 0 {
		req.TimeoutMs = opts.TimeoutMs
	}

	eng, err := newEngine(opts, log)
	if err != nil {
		return err
	}
	defer eng.close()

	ctx, cancel := interruptContext()
	defer cancel()

	vctx, err := variableContext(eng.envs, req.CollectionID)
	if err != nil {
		return err
	}

	result, err := eng.runner.Execute(ctx, *req, vctx)
	if err != nil {
		result = dispatch.ResultFromError(err)
	}

	return printResult(result, opts.OutputJSON)
}

// Run executes every request of a collection file sequentially and prints
// per-item progress plus the final summary.
func Run(filePath string, opts Options) error {
	log := logging.NewDefault()

	collection, err := parser.ParseCollectionFile(filePath)
	if err != nil {
		return err
	}

	eng, err := newEngine(opts, log)
	if err != nil {
		return err
	}
	defer eng.close()

	// Sub-environments declared inline in the collection file take part in
	// resolution alongside the workspace environments.
	if len(collection.Environments) > 0 {
		eng.envs.SetWorkspace(mergedWorkspace(eng.envs, collection))
	}

	if opts.TimeoutMs > 0 {
		for i := range collection.Requests {
			if collection.Requests[i].TimeoutMs == 0 {
				collection.Requests[i].TimeoutMs = opts.TimeoutMs
			}
		}
	}

	ctx, cancel := interruptContext()
	defer cancel()

	runOpts := runner.Options{}
	if !opts.OutputJSON {
		runOpts.OnProgress = func(p runner.Progress) {
			marker := "ok"
			if p.Status == "error" {
				marker = "error"
			}
			fmt.Printf("[%d/%d] %-40s %s\n", p.Current, p.Total, p.RequestName, marker)
		}
	}

	report := eng.runner.Run(ctx, collection.ID, collection.Requests, runOpts)

	if opts.OutputJSON {
		encoded, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	fmt.Printf("\n%d total, %d passed, %d failed\n",
		report.Summary.Total, report.Summary.Passed, report.Summary.Failed)
	return nil
}

// Ping probes a URL for reachability.
func Ping(url string, timeoutMs int64) error {
	svc := dispatch.NewService(logging.NewDefault())

	ctx, cancel := interruptContext()
	defer cancel()

	if svc.TestConnection(ctx, url, timeoutMs) {
		fmt.Printf("%s is reachable\n", url)
		return nil
	}
	return fmt.Errorf("%s is not reachable", url)
}

func variableContext(envs *store.Manager, collectionID string) (types.VariableContext, error) {
	vctx := types.VariableContext{}

	global, err := envs.GlobalVariables()
	if err != nil {
		return vctx, err
	}
	vctx.Global = global

	if collectionID != "" {
		collection, err := envs.CollectionVariables(collectionID)
		if err == nil {
			vctx.Collection = collection
		}
	}
	return vctx, nil
}

// mergedWorkspace adds the collection file's inline environments to the
// loaded workspace so CollectionVariables can find them.
func mergedWorkspace(envs *store.Manager, collection *types.Collection) store.Workspace {
	global, _ := envs.GlobalVariables()
	return store.Workspace{
		Environments:      []types.Environment{{ID: "inline", Variables: global}},
		ActiveEnvironment: "inline",
		Collections: []types.Collection{{
			ID:                collection.ID,
			ActiveEnvironment: collection.ActiveEnvironment,
			Environments:      collection.Environments,
		}},
	}
}

func printResult(result *types.DispatchResult, asJSON bool) error {
	if asJSON {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	fmt.Printf("Status: %s (%dms)\n", statusLine(result), result.ResponseTimeMs)
	if result.Error != "" {
		fmt.Printf("Error: %s\n", result.Error)
	}
	if result.Body != nil && result.Body != "" {
		switch body := result.Body.(type) {
		case string:
			fmt.Println(body)
		default:
			encoded, err := json.MarshalIndent(body, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(encoded))
		}
	}
	return nil
}

func statusLine(result *types.DispatchResult) string {
	if result.StatusText != "" {
		return result.StatusText
	}
	return fmt.Sprintf("%d", result.Status)
}
