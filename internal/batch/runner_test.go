package batch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Motphys/phys-bench/internal/domain"
	"github.com/Motphys/phys-bench/internal/recorder"
)

// writeScript creates a fake run binary for subprocess tests
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-bench")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

// captureStore records results handed to the runner's store
type captureStore struct {
	records []domain.Result
}

func (s *captureStore) Record(result domain.Result) (string, error) {
	s.records = append(s.records, result)
	return "id", nil
}

func TestRunnerReadsVerdicts(t *testing.T) {
	outputDir := t.TempDir()
	plan := Plan{Name: "t", Engines: []string{"mujoco"}, Objects: []string{"cube", "ball"}, Shake: true}
	if err := plan.Validate(); err != nil {
		t.Fatal(err)
	}

	// Sidecars exist before the sweep; the fake binary just exits 0
	// the way the real run command does for both verdicts.
	for object, body := range map[domain.ObjectKind]string{
		"cube": `{"status": "success"}`,
		"ball": `{"status": "failure", "drop_time": 6.4}`,
	} {
		cfg := domain.RunConfig{Engine: "mujoco", Object: object, Shake: true, Dt: 0.002}
		sidecar := recorder.ResultPath(recorder.VideoPath(outputDir, cfg))
		if err := os.WriteFile(sidecar, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}

	store := &captureStore{}
	r := &Runner{
		Binary:    writeScript(t, "exit 0"),
		OutputDir: outputDir,
		Timeout:   10 * time.Second,
		Store:     store,
	}
	results, err := r.Run(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}

	byObject := map[domain.ObjectKind]RunResult{}
	for _, res := range results {
		byObject[res.Config.Object] = res
	}
	if byObject["cube"].Status != domain.StatusSuccess {
		t.Errorf("cube status = %q", byObject["cube"].Status)
	}
	ball := byObject["ball"]
	if ball.Status != domain.StatusFailure {
		t.Errorf("ball status = %q", ball.Status)
	}
	if ball.DropTime == nil || *ball.DropTime != 6.4 {
		t.Errorf("ball DropTime = %v, want 6.4 from the sidecar", ball.DropTime)
	}

	// The stored record carries the drop time too.
	if len(store.records) != 2 {
		t.Fatalf("len(store.records) = %d, want 2", len(store.records))
	}
	for _, rec := range store.records {
		if rec.Object != "ball" {
			continue
		}
		if rec.DropTime == nil || *rec.DropTime != 6.4 {
			t.Errorf("stored ball DropTime = %v, want 6.4", rec.DropTime)
		}
	}
}

func TestRunnerTimeout(t *testing.T) {
	plan := Plan{Name: "t", Engines: []string{"mujoco"}, Objects: []string{"cube"}}
	if err := plan.Validate(); err != nil {
		t.Fatal(err)
	}

	r := &Runner{
		Binary:    writeScript(t, "sleep 10"),
		OutputDir: t.TempDir(),
		Timeout:   100 * time.Millisecond,
	}
	results, err := r.Run(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Status != domain.StatusTimeout {
		t.Errorf("status = %q, want timeout", results[0].Status)
	}
}

func TestRunnerSubprocessError(t *testing.T) {
	plan := Plan{Name: "t", Engines: []string{"mujoco"}, Objects: []string{"cube"}}
	if err := plan.Validate(); err != nil {
		t.Fatal(err)
	}

	r := &Runner{
		Binary:    writeScript(t, "echo 'ImportError: no module named mujoco' >&2; exit 1"),
		OutputDir: t.TempDir(),
		Timeout:   10 * time.Second,
	}
	results, err := r.Run(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Status != domain.StatusError {
		t.Errorf("status = %q, want error", results[0].Status)
	}
	if !strings.Contains(results[0].Detail, "ImportError") {
		t.Errorf("Detail = %q, want stderr tail", results[0].Detail)
	}
}

func TestRunnerStopOnError(t *testing.T) {
	plan := Plan{Name: "t", Engines: []string{"mujoco"}, Objects: []string{"cube", "ball", "bottle"}}
	if err := plan.Validate(); err != nil {
		t.Fatal(err)
	}

	r := &Runner{
		Binary:      writeScript(t, "exit 1"),
		OutputDir:   t.TempDir(),
		Timeout:     10 * time.Second,
		StopOnError: true,
	}
	results, err := r.Run(context.Background(), plan)
	if err == nil {
		t.Fatal("Run() with StopOnError should surface the failure")
	}
	if results[0].Status != domain.StatusError {
		t.Errorf("results[0].Status = %q, want error", results[0].Status)
	}
	// Later runs are cancelled rather than executed.
	last := results[len(results)-1]
	if last.Status != domain.StatusError {
		t.Errorf("last status = %q, want error", last.Status)
	}
	if !strings.Contains(last.Detail, "context canceled") {
		t.Errorf("last Detail = %q, want cancellation", last.Detail)
	}
}

func TestRunnerParallel(t *testing.T) {
	plan := Plan{Name: "t", Engines: []string{"mujoco", "genesis"}, Objects: []string{"cube", "ball", "bottle"}}
	if err := plan.Validate(); err != nil {
		t.Fatal(err)
	}

	r := &Runner{
		Binary:    writeScript(t, "exit 0"),
		OutputDir: t.TempDir(),
		Timeout:   10 * time.Second,
		Parallel:  3,
	}
	results, err := r.Run(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 6 {
		t.Fatalf("len(results) = %d, want 6", len(results))
	}
	// Results stay in plan order regardless of completion order.
	for i, cfg := range plan.Configs() {
		if results[i].Config != cfg {
			t.Errorf("results[%d].Config = %+v, want %+v", i, results[i].Config, cfg)
		}
	}
}

func TestWriteSummary(t *testing.T) {
	results := []RunResult{
		{Config: domain.RunConfig{Engine: "mujoco", Object: "cube", Shake: true, Dt: 0.002},
			Status: domain.StatusSuccess, Duration: 12 * time.Second},
		{Config: domain.RunConfig{Engine: "genesis", Object: "cube", Shake: true, Dt: 0.002},
			Status: domain.StatusTimeout, Duration: 60 * time.Second},
	}
	var sb strings.Builder
	WriteSummary(&sb, results)
	out := sb.String()
	if !strings.Contains(out, "1/2 passed") {
		t.Errorf("summary missing tally:\n%s", out)
	}
	if !strings.Contains(out, "timeout") {
		t.Errorf("summary missing status:\n%s", out)
	}
}
