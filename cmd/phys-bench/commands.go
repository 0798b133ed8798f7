package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Motphys/phys-bench/internal/batch"
	"github.com/Motphys/phys-bench/internal/config"
	"github.com/Motphys/phys-bench/internal/controller"
	"github.com/Motphys/phys-bench/internal/domain"
	"github.com/Motphys/phys-bench/internal/engine"
	"github.com/Motphys/phys-bench/internal/gpu"
	"github.com/Motphys/phys-bench/internal/notify"
	"github.com/Motphys/phys-bench/internal/observer"
	"github.com/Motphys/phys-bench/internal/pool"
	"github.com/Motphys/phys-bench/internal/recorder"
	"github.com/Motphys/phys-bench/internal/report"
	"github.com/Motphys/phys-bench/internal/results"
	"github.com/Motphys/phys-bench/internal/resultstore"
	"github.com/Motphys/phys-bench/internal/sim"
	"github.com/Motphys/phys-bench/internal/simproto"
	"github.com/Motphys/phys-bench/internal/updater"
	"github.com/Motphys/phys-bench/tui"
	"github.com/Motphys/phys-bench/web/api"
)

var (
	runEngine    string
	runObject    string
	runShake     bool
	runRecord    bool
	runDt        float64
	runMJX       bool
	runVisual    bool
	runSynthetic bool
	runOutput    string

	batchPlanFile string
	batchParallel int
	batchEngines  []string
	batchPool     string

	listEngine string
	servePort  int

	workerServer string
	workerID     string
	workerJobs   int

	poolPort int
)

func init() {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one grasp test",
		RunE:  runRun,
	}
	runCmd.Flags().StringVar(&runEngine, "engine", "mujoco", "physics engine backend")
	runCmd.Flags().StringVar(&runObject, "object", "cube", "object to grasp (cube, ball, bottle)")
	runCmd.Flags().BoolVar(&runShake, "shake", false, "shake the arm during the verify window")
	runCmd.Flags().BoolVar(&runRecord, "record", false, "record a video of the run")
	runCmd.Flags().Float64Var(&runDt, "dt", 0.002, "simulation timestep in seconds")
	runCmd.Flags().BoolVar(&runMJX, "mjx", false, "use the mjx robot model asset")
	runCmd.Flags().BoolVar(&runVisual, "visual", false, "open the engine's viewer")
	runCmd.Flags().BoolVar(&runSynthetic, "synthetic", false, "use the built-in kinematic engine (no backend)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "output directory (default from config)")
	rootCmd.AddCommand(runCmd)

	batchCmd := &cobra.Command{
		Use:   "batch [PLAN]",
		Short: "Run a sweep of grasp tests",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().StringVar(&batchPlanFile, "plans", "", "sweep plans TOML file")
	batchCmd.Flags().IntVar(&batchParallel, "parallel", 0, "concurrent runs (default from config)")
	batchCmd.Flags().StringSliceVar(&batchEngines, "engines", nil, "engines for the default plan")
	batchCmd.Flags().StringVar(&batchPool, "pool", "", "coordinator base URL; dispatch the sweep to pool workers")
	rootCmd.AddCommand(batchCmd)

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run sweep plans on their cron schedules",
		RunE:  runSchedule,
	}
	scheduleCmd.Flags().StringVar(&batchPlanFile, "plans", "", "sweep plans TOML file")
	rootCmd.AddCommand(scheduleCmd)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the HTML comparison report",
		RunE:  runReport,
	}
	rootCmd.AddCommand(reportCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded results",
		RunE:  runList,
	}
	listCmd.Flags().StringVar(&listEngine, "engine", "", "filter by engine")
	rootCmd.AddCommand(listCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the results dashboard",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (default from config)")
	rootCmd.AddCommand(serveCmd)

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch the terminal results matrix",
		RunE:  runTUI,
	}
	rootCmd.AddCommand(tuiCmd)

	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Run sweeps assigned by a pool coordinator",
		RunE:  runWorker,
	}
	workerCmd.Flags().StringVar(&workerServer, "server", "", "coordinator WebSocket URL")
	workerCmd.Flags().StringVar(&workerID, "id", "", "worker ID (default hostname)")
	workerCmd.Flags().IntVar(&workerJobs, "jobs", 1, "concurrent runs on this worker")
	rootCmd.AddCommand(workerCmd)

	poolCmd := &cobra.Command{
		Use:   "pool",
		Short: "Start a pool coordinator for distributed sweeps",
		RunE:  runPool,
	}
	poolCmd.Flags().IntVar(&poolPort, "port", 9000, "port to listen on")
	rootCmd.AddCommand(poolCmd)

	gpuCmd := &cobra.Command{
		Use:   "gpu",
		Short: "Show local GPUs",
		RunE:  runGPU,
	}
	rootCmd.AddCommand(gpuCmd)

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update phys-bench to the latest release",
		RunE:  runUpdate,
	}
	rootCmd.AddCommand(updateCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the phys-bench version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

func loadRegistry(cfg *config.Config) (*engine.Registry, error) {
	reg := engine.NewRegistry()
	if err := reg.LoadManifests(cfg.General.EnginesDir); err != nil {
		return nil, fmt.Errorf("loading engine manifests: %w", err)
	}
	return reg, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	outputDir := runOutput
	if outputDir == "" {
		outputDir = cfg.General.OutputDir
	}

	runCfg := domain.RunConfig{
		Engine: runEngine,
		Object: domain.ObjectKind(runObject),
		Shake:  runShake,
		Record: runRecord,
		Dt:     runDt,
		MJX:    runMJX,
		Visual: runVisual,
	}
	if err := runCfg.Validate(); err != nil {
		return err
	}

	if runEngine == "synthetic" {
		runSynthetic = true
	}
	spec := engine.Spec{Name: "synthetic", DropHeight: 0.04, CheckEvery: 1}
	if !runSynthetic {
		reg, err := loadRegistry(cfg)
		if err != nil {
			return err
		}
		spec, err = reg.Get(runEngine)
		if err != nil {
			return err
		}
	}

	runID := uuid.NewString()
	log.Printf("[run] %s: %s %s task=%s dt=%g mjx=%t", runID, runCfg.Engine, runCfg.Object, runCfg.Task(), runCfg.Dt, runCfg.MJX)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eng, err := openEngine(ctx, cfg, spec, runCfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctrl, err := controller.New(controller.Config{
		Dt:         runCfg.Dt,
		Shake:      runCfg.Shake,
		DropHeight: spec.DropHeight,
		CheckEvery: spec.CheckEvery,
	}, eng)
	if err != nil {
		return err
	}

	rec := recorder.New(cfg.Record.FPS)
	frames, _ := eng.(sim.FrameSource)
	capture := runCfg.Record && frames != nil

	var outcome *controller.Outcome
	for outcome == nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, out, err := ctrl.Tick()
		if err != nil {
			return err
		}
		if capture {
			if rec.ShouldCapture(ctrl.Elapsed()) {
				if err := frames.RequestCapture(); err != nil {
					return err
				}
			}
			done, err := frames.Completed()
			if err != nil {
				return err
			}
			rec.Add(done)
		}
		outcome = out
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	videoPath := recorder.VideoPath(outputDir, runCfg)
	if capture {
		// Let in-flight captures finish before encoding.
		for i := 0; i < 100; i++ {
			done, err := frames.Completed()
			if err != nil || len(done) == 0 {
				break
			}
			rec.Add(done)
		}
		if err := rec.SaveVideo(videoPath); err != nil {
			log.Printf("[run] saving video: %v", err)
		}
	}

	result := domain.NewResult(runCfg, outcome.Status, outcome.DropTime, videoPath)
	if err := recorder.SaveResult(videoPath, result); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}

	// Both verdicts exit zero; callers read the sidecar.
	if outcome.Status == domain.StatusSuccess {
		fmt.Printf("PASS: held through %d steps (%.1fs)\n", outcome.Steps, ctrl.Elapsed())
	} else {
		fmt.Printf("FAIL: dropped at %.2fs\n", *outcome.DropTime)
	}
	return nil
}

func openEngine(ctx context.Context, cfg *config.Config, spec engine.Spec, runCfg domain.RunConfig) (sim.Engine, error) {
	if runSynthetic {
		return sim.NewSynthetic(sim.SyntheticConfig{Dt: runCfg.Dt})
	}

	bridge, err := engine.StartProcess(ctx, spec.Bridge, cfg.General.AssetsDir)
	if err != nil {
		return nil, fmt.Errorf("starting %s bridge: %w", spec.Name, err)
	}
	scene := engine.ScenePath(string(runCfg.Object), runCfg.MJX)
	load := simproto.LoadRequest{
		Scene:  scene,
		Object: string(runCfg.Object),
		Dt:     runCfg.Dt,
		Visual: runCfg.Visual,
		Width:  cfg.Record.Width,
		Height: cfg.Record.Height,
	}
	if err := bridge.Load(load); err != nil {
		bridge.Close()
		return nil, fmt.Errorf("loading %s: %w", scene, err)
	}
	return bridge, nil
}

func resolvePlan(cfg *config.Config, args []string) (batch.Plan, *batch.PlanFile, error) {
	reg, err := loadRegistry(cfg)
	if err != nil {
		return batch.Plan{}, nil, err
	}

	file, err := batch.LoadPlans(batchPlanFile)
	if err != nil {
		return batch.Plan{}, nil, err
	}

	if len(args) > 0 {
		plan, ok := file.Get(args[0])
		if !ok {
			return batch.Plan{}, nil, fmt.Errorf("no plan %q in %s", args[0], batchPlanFile)
		}
		return plan, file, nil
	}

	engines := batchEngines
	if len(engines) == 0 {
		engines = reg.Names()
	}
	return batch.DefaultPlan(engines), file, nil
}

func newRunner(cfg *config.Config) (*batch.Runner, *resultstore.Store, error) {
	binary, err := os.Executable()
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.General.DatabasePath), 0755); err != nil {
		return nil, nil, err
	}
	store, err := resultstore.New(cfg.General.DatabasePath)
	if err != nil {
		return nil, nil, err
	}

	parallel := batchParallel
	if parallel == 0 {
		parallel = cfg.Batch.Parallel
	}
	return &batch.Runner{
		Binary:      binary,
		OutputDir:   cfg.General.OutputDir,
		Timeout:     time.Duration(cfg.Batch.RunTimeoutSec) * time.Second,
		Parallel:    parallel,
		StopOnError: cfg.Batch.StopOnError,
		Store:       store,
	}, store, nil
}

func notifierFor(cfg *config.Config) notify.Notifier {
	return notify.NewMultiNotifier(
		notify.NewDesktopNotifier(cfg.Notifications.Desktop),
		notify.NewSlackNotifier(cfg.Notifications.SlackWebhook),
	)
}

func executeSweep(cfg *config.Config, plan batch.Plan) error {
	runner, store, err := newRunner(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sweepID, err := store.BeginSweep(plan.Name)
	if err != nil {
		return err
	}

	runResults, err := runner.Run(context.Background(), plan)
	if err != nil {
		return err
	}

	passed := 0
	for _, res := range runResults {
		if res.Passed() {
			passed++
		}
	}
	if err := store.FinishSweep(sweepID, len(runResults), passed); err != nil {
		log.Printf("[batch] finishing sweep: %v", err)
	}

	batch.WriteSummary(os.Stdout, runResults)

	if entries, err := results.Load(cfg.General.OutputDir); err == nil {
		if path, err := report.WriteFile(cfg.General.OutputDir, entries); err == nil {
			fmt.Printf("Report: %s\n", path)
		}
	}

	if plan.NotifyOnComplete {
		if err := notifierFor(cfg).Send(notify.SweepNotification(plan.Name, len(runResults), passed)); err != nil {
			log.Printf("[batch] notify: %v", err)
		}
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	plan, _, err := resolvePlan(cfg, args)
	if err != nil {
		return err
	}
	if batchPool != "" {
		return submitToPool(batchPool, plan)
	}
	return executeSweep(cfg, plan)
}

// submitToPool hands the sweep to a coordinator instead of running it
// locally; results land in the coordinator's store.
func submitToPool(baseURL string, plan batch.Plan) error {
	body, err := json.Marshal(plan.Configs())
	if err != nil {
		return err
	}
	resp, err := http.Post(strings.TrimRight(baseURL, "/")+"/submit", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("submitting to pool: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pool rejected sweep: %s", strings.TrimSpace(string(msg)))
	}

	var submitted pool.SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return fmt.Errorf("decoding pool response: %w", err)
	}
	fmt.Printf("Submitted %d jobs to %s\n", len(submitted.JobIDs), baseURL)
	return nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	file, err := batch.LoadPlans(batchPlanFile)
	if err != nil {
		return err
	}
	sched, err := batch.NewScheduler(file.Plans)
	if err != nil {
		return err
	}
	if len(sched.Plans()) == 0 {
		return fmt.Errorf("no scheduled plans in %s", batchPlanFile)
	}

	fmt.Printf("Scheduling %d plans:\n", len(sched.Plans()))
	for _, name := range sched.Plans() {
		fmt.Printf("  %s (next run %s)\n", name, humanize.Time(sched.NextRun(name)))
	}

	sched.Start(func(plan batch.Plan) error {
		return executeSweep(cfg, plan)
	})
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	entries, err := results.Load(cfg.General.OutputDir)
	if err != nil {
		return err
	}
	path, err := report.WriteFile(cfg.General.OutputDir, entries)
	if err != nil {
		return err
	}
	fmt.Printf("Report with %d results written to %s\n", len(entries), path)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	entries, err := results.Load(cfg.General.OutputDir)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENGINE\tOBJECT\tTASK\tMJX\tDT\tSTATUS\tVIDEO\tWHEN")
	for _, e := range entries {
		if listEngine != "" && e.Engine != listEngine {
			continue
		}
		video := "-"
		if e.VideoExists {
			video = filepath.Base(e.VideoPath)
		}
		when := e.Timestamp
		if ts, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
			when = humanize.Time(ts)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%s\t%s\t%s\n",
			e.Engine, e.Object, e.Task, e.MJX, results.FormatDt(e.Dt), e.Status, video, when)
	}
	return w.Flush()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	port := servePort
	if port == 0 {
		port = cfg.Web.Port
	}
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, port)

	server := api.NewServer(api.DirLoader{Dir: cfg.General.OutputDir}, cfg.General.OutputDir, addr)

	// Push a refresh event to dashboard clients when new results land.
	watcher, err := observerFor(cfg, server)
	if err != nil {
		log.Printf("[serve] watching results disabled: %v", err)
	} else {
		watcher.Start(context.Background())
		defer watcher.Stop()
	}

	fmt.Printf("Dashboard on http://%s\n", addr)
	return server.Start()
}

func observerFor(cfg *config.Config, server *api.Server) (*observer.Watcher, error) {
	return observer.NewWatcher(cfg.General.OutputDir, func(changed []string) {
		server.Broadcast(api.SSEEvent{Type: "results", Data: changed})
	})
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p := tea.NewProgram(tui.NewModel(cfg.General.OutputDir), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if workerServer == "" {
		return fmt.Errorf("--server is required")
	}
	id := workerID
	if id == "" {
		id, _ = os.Hostname()
	}

	devices, err := gpu.Probe()
	if err != nil {
		log.Printf("[worker] gpu probe: %v", err)
	}

	runner, store, err := newRunner(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	worker, err := pool.NewWorker(pool.WorkerConfig{
		ServerURL: workerServer,
		WorkerID:  id,
		MaxJobs:   workerJobs,
		GPU:       gpu.Summary(devices),
	}, func(ctx context.Context, job pool.JobMessage) pool.ResultMessage {
		res := runner.RunOne(ctx, domain.RunConfig{
			Engine: job.Engine,
			Object: domain.ObjectKind(job.Object),
			Shake:  job.Shake,
			Record: job.Record,
			MJX:    job.MJX,
			Dt:     job.Dt,
		})
		return pool.ResultMessage{
			Status:     string(res.Status),
			DropTime:   res.DropTime,
			DurationMs: res.Duration.Milliseconds(),
			Detail:     res.Detail,
		}
	})
	if err != nil {
		return err
	}

	fmt.Printf("Worker %s connecting to %s\n", id, workerServer)
	worker.RunWithReconnect()
	return nil
}

func runPool(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.General.DatabasePath), 0755); err != nil {
		return err
	}
	store, err := resultstore.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	coord := pool.NewCoordinator(pool.CoordinatorConfig{
		JobTimeoutSec: cfg.Batch.RunTimeoutSec,
	})
	coord.OnResult(func(res pool.JobResult) {
		record := domain.NewResult(res.Config, res.Status, res.DropTime,
			recorder.VideoPath(cfg.General.OutputDir, res.Config))
		if _, err := store.Record(record); err != nil {
			log.Printf("[pool] recording result: %v", err)
		}
		log.Printf("[pool] %s %s on %s: %s", res.Config.Engine, res.Config.Object, res.WorkerID, res.Status)
	})

	stop := make(chan struct{})
	defer close(stop)
	go coord.StartHeartbeat(stop)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", coord.HandleWebSocket)
	mux.HandleFunc("/submit", coord.HandleSubmit)
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, coord.Status())
	})

	addr := fmt.Sprintf(":%d", poolPort)
	fmt.Printf("Coordinator on ws://%s/ws\n", addr)
	return http.ListenAndServe(addr, mux)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	latest, err := updater.CheckLatestVersion()
	if err != nil {
		return err
	}
	if !updater.NeedsUpdate(version, latest) {
		fmt.Printf("phys-bench %s is up to date\n", version)
		return nil
	}

	fmt.Printf("Updating %s -> %s\n", version, latest)
	if err := updater.SelfUpdate(latest); err != nil {
		return err
	}
	fmt.Println("Updated. Restart phys-bench to use the new version.")
	return nil
}

func runGPU(cmd *cobra.Command, args []string) error {
	devices, err := gpu.Probe()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No NVIDIA GPU found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tMEMORY\tUSED\tUTIL")
	for _, d := range devices {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d%%\n",
			d.Index, d.Name,
			humanize.IBytes(uint64(d.MemoryMB)*1024*1024),
			humanize.IBytes(uint64(d.MemoryUsedMB)*1024*1024),
			d.UtilPercent)
	}
	return w.Flush()
}
