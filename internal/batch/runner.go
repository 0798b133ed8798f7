package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Motphys/phys-bench/internal/domain"
	"github.com/Motphys/phys-bench/internal/recorder"
)

// RunResult is the outcome of one sweep run
type RunResult struct {
	Config   domain.RunConfig
	Status   domain.Status
	DropTime *float64 // from the sidecar, failure only
	Duration time.Duration
	Detail   string // stderr tail or error text for failed runs
}

// Passed reports whether the run succeeded
func (r RunResult) Passed() bool {
	return r.Status == domain.StatusSuccess
}

// Recorder receives finished sweep results for persistence
type Recorder interface {
	Record(result domain.Result) (string, error)
}

// Runner executes sweep plans by re-invoking this binary's run
// command once per configuration. Crashes, hangs and import errors in
// an engine backend then cost one run, not the sweep.
type Runner struct {
	// Binary is the executable to invoke, normally os.Executable().
	Binary string

	// OutputDir is passed through to each run.
	OutputDir string

	// Timeout bounds one run. Zero selects DefaultRunTimeout.
	Timeout time.Duration

	// Parallel is the number of concurrent runs. Values below 1 run
	// the sweep sequentially.
	Parallel int

	// StopOnError aborts the rest of the sweep when a run errors or
	// times out, instead of completing the matrix.
	StopOnError bool

	// Store, when set, receives each finished result.
	Store Recorder
}

// Run executes every configuration in the plan and returns one result
// per run, in plan order. With StopOnError set, the first errored or
// timed-out run cancels the remainder and is returned as an error;
// cancelled runs still appear in the results.
func (r *Runner) Run(ctx context.Context, plan Plan) ([]RunResult, error) {
	configs := plan.Configs()
	results := make([]RunResult, len(configs))

	parallel := r.Parallel
	if parallel < 1 {
		parallel = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, cfg := range configs {
		i, cfg := i, cfg
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = RunResult{Config: cfg, Status: domain.StatusError, Detail: err.Error()}
				return nil
			}
			results[i] = r.RunOne(ctx, cfg)
			if r.StopOnError && (results[i].Status == domain.StatusError || results[i].Status == domain.StatusTimeout) {
				return fmt.Errorf("%s %s: %s", cfg.Engine, cfg.Object, results[i].Status)
			}
			return nil
		})
	}
	stopErr := g.Wait()

	if r.Store != nil {
		for _, res := range results {
			record := domain.NewResult(res.Config, res.Status, res.DropTime, recorder.VideoPath(r.OutputDir, res.Config))
			if _, err := r.Store.Record(record); err != nil {
				log.Printf("[batch] recording result: %v", err)
			}
		}
	}
	return results, stopErr
}

// RunOne executes a single configuration in a subprocess. Every
// subprocess failure becomes a result rather than an error: a sweep
// always produces a full matrix.
func (r *Runner) RunOne(ctx context.Context, cfg domain.RunConfig) RunResult {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"run",
		"--engine", cfg.Engine,
		"--object", string(cfg.Object),
		"--dt", fmt.Sprintf("%g", cfg.Dt),
		"--output", r.OutputDir,
	}
	if cfg.Shake {
		args = append(args, "--shake")
	}
	if cfg.Record {
		args = append(args, "--record")
	}
	if cfg.MJX {
		args = append(args, "--mjx")
	}

	log.Printf("[batch] %s %s dt=%g mjx=%t", cfg.Engine, cfg.Object, cfg.Dt, cfg.MJX)
	start := time.Now()

	cmd := exec.CommandContext(runCtx, r.Binary, args...)
	var stderr strings.Builder
	cmd.Stderr = io.MultiWriter(os.Stderr, &stderr)
	err := cmd.Run()
	duration := time.Since(start)

	result := RunResult{Config: cfg, Duration: duration}
	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		result.Status = domain.StatusTimeout
		result.Detail = fmt.Sprintf("killed after %s", timeout)
	case err != nil:
		result.Status = domain.StatusError
		result.Detail = tail(stderr.String(), 500)
		if result.Detail == "" {
			result.Detail = err.Error()
		}
	default:
		// The run command exits zero for both verdicts; the sidecar
		// holds the verdict and the drop time.
		result.Status, result.DropTime = readVerdict(r.OutputDir, cfg)
	}
	return result
}

// readVerdict reads the run's sidecar to learn how it ended
func readVerdict(outputDir string, cfg domain.RunConfig) (domain.Status, *float64) {
	path := recorder.ResultPath(recorder.VideoPath(outputDir, cfg))
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.StatusError, nil
	}
	var result domain.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.StatusError, nil
	}
	return result.Status, result.DropTime
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// WriteSummary prints the sweep results as an aligned table
func WriteSummary(w io.Writer, results []RunResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENGINE\tOBJECT\tTASK\tMJX\tDT\tSTATUS\tTIME")
	passed := 0
	for _, res := range results {
		cfg := res.Config
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%g\t%s\t%s\n",
			cfg.Engine, cfg.Object, cfg.Task(), cfg.MJX, cfg.Dt,
			res.Status, res.Duration.Round(time.Millisecond))
		if res.Passed() {
			passed++
		}
	}
	fmt.Fprintf(tw, "\n%d/%d passed\n", passed, len(results))
	tw.Flush()
}
