package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"colonysim.ai/internal/persistence/indexdb"
	persistlog "colonysim.ai/internal/persistence/log"
	"colonysim.ai/internal/sim/catalogs"
	"colonysim.ai/internal/sim/colony"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/scenario"
	"colonysim.ai/internal/sim/tuning"
)

func main() {
	var (
		scenarioPath = flag.String("scenario", "./configs/scenarios/camp.json", "scenario file to run")
		configDir    = flag.String("configs", "./configs", "config directory (blueprints, recipes)")
		tuningPath   = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		ticks        = flag.Int("ticks", 0, "ticks to run (default: scenario ticks)")
		seed         = flag.Int64("seed", 0, "override the tuning seed")
		realtime     = flag.Bool("realtime", false, "tick at tick_rate_hz and hot-reload tuning")
		statusEvery  = flag.Duration("status_every", 5*time.Second, "status line interval in realtime mode")
		disableDB    = flag.Bool("disable_db", false, "disable the sqlite transition index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[colonysim] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load catalogs: %v", err)
		}
		logger.Printf("no catalogs under %s; using builtin blueprints and recipes", *configDir)
		cats = catalogs.Builtin()
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Default()
		tp = ""
	}

	sc, err := scenario.Load(*scenarioPath)
	if err != nil {
		logger.Fatalf("load scenario: %v", err)
	}
	n := sc.Ticks
	if *ticks > 0 {
		n = *ticks
	}
	if n <= 0 && !*realtime {
		logger.Fatalf("scenario %s has no tick count; pass -ticks", sc.Name)
	}

	runDir := filepath.Join(*dataDir, "runs", sc.Name)
	decisions := persistlog.NewDecisionLogger(runDir)
	defer decisions.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "colonysim.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.BeginRun(ctx, decisions.RunID(), sc.Name, tune.Sim.Seed); err != nil {
			logger.Fatalf("index run: %v", err)
		}
		if err := idx.UpsertCatalogs(ctx, cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	recorders := colony.MultiRecorder{decisions}
	if idx != nil {
		recorders = append(recorders, idx)
	}
	opts := []colony.Option{colony.WithLogger(logger), colony.WithRecorder(recorders)}
	if *seed != 0 {
		opts = append(opts, colony.WithSeed(*seed))
	}
	col := colony.New(colony.Config{ID: sc.Name, Tuning: tune, Catalogs: cats}, opts...)
	if err := sc.Build(col); err != nil {
		logger.Fatalf("build scenario: %v", err)
	}
	recordGrid(ctx, idx, decisions.RunID(), col, logger)
	logger.Printf("run=%s scenario=%s settlers=%d ticks=%s dt=%.3fs",
		decisions.RunID(), sc.Name, len(col.Agents()), humanize.Comma(int64(n)), tune.DT())

	start := time.Now()
	if *realtime {
		runRealtime(ctx, col, tp, uint64(n), *statusEvery, logger)
	} else {
		for i := 0; i < n && ctx.Err() == nil; i++ {
			col.Step()
		}
	}
	elapsed := time.Since(start)

	if err := decisions.Close(); err != nil {
		logger.Printf("decision log: %v", err)
	}
	if failed, err := decisions.Err(); failed > 0 {
		logger.Printf("decision log: %d writes failed, last: %v", failed, err)
	}

	sum := col.Summary()
	printSummary(os.Stdout, sum, tune.DT(), elapsed)
	fmt.Fprintf(os.Stdout, "decision log: %s (%s)\n", filepath.Join(runDir, "decisions"), humanize.Bytes(dirSize(filepath.Join(runDir, "decisions"))))

	if idx != nil {
		// ctx may already be cancelled by a signal; finish the index anyway.
		done := context.Background()
		if err := idx.Flush(done); err != nil {
			logger.Printf("index flush: %v", err)
			return
		}
		recordGrid(done, idx, decisions.RunID(), col, logger)
		printIndexStats(done, os.Stdout, idx, decisions.RunID(), logger)
	}
}

func recordGrid(ctx context.Context, idx *indexdb.SQLiteIndex, runID string, col *colony.Colony, logger *log.Logger) {
	if idx == nil {
		return
	}
	g := col.Grid()
	err := idx.RecordGrid(ctx, runID, indexdb.Grid{
		Tick:     col.Tick(),
		Width:    g.Width(),
		Height:   g.Height(),
		Walkable: g.WalkableCount(),
		Mask:     g.EncodeWalkable(),
	})
	if err != nil {
		logger.Printf("index grid: %v", err)
	}
}

func runRealtime(ctx context.Context, col *colony.Colony, tuningPath string, maxTicks uint64, every time.Duration, logger *log.Logger) {
	if tuningPath != "" {
		w, err := tuning.NewWatcher(tuningPath)
		if err != nil {
			logger.Printf("tuning watcher disabled: %v", err)
		} else {
			defer w.Close()
			go func() {
				for {
					select {
					case t, ok := <-w.Updates:
						if !ok {
							return
						}
						col.UpdateTuning(t)
					case err, ok := <-w.Errors:
						if !ok {
							return
						}
						logger.Printf("tuning reload rejected: %v", err)
					}
				}
			}()
		}
	}

	if every > 0 {
		go func() {
			ticker := time.NewTicker(every)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					_ = col.Do(ctx, func(c *colony.Colony) {
						s := c.Summary()
						logger.Printf("tick=%s settlers=%d idle=%d stored=%d", humanize.Comma(int64(s.Tick)), s.Settlers, s.States[model.StateIdle], totalStored(s))
					})
				}
			}
		}()
	}

	if err := col.Run(ctx, maxTicks); err != nil && err != context.Canceled {
		logger.Printf("run: %v", err)
	}
	col.Stop()
}

func totalStored(s colony.Summary) int {
	n := 0
	for _, c := range s.Stored {
		n += c
	}
	return n
}

func printSummary(w io.Writer, s colony.Summary, dt float64, elapsed time.Duration) {
	simSeconds := float64(s.Tick) * dt
	fmt.Fprintf(w, "ticks: %s (%ss simulated in %s)\n", humanize.Comma(int64(s.Tick)), humanize.Ftoa(simSeconds), elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "settlers: %d  buildings: %d  sites: %d  ground items: %d\n", s.Settlers, s.Buildings, s.PendingBuilds, s.GroundItems)

	var states []string
	for st, n := range s.States {
		states = append(states, fmt.Sprintf("%s=%d", st, n))
	}
	sort.Strings(states)
	fmt.Fprintf(w, "states: %s\n", strings.Join(states, " "))

	var stored []string
	for r, n := range s.Stored {
		stored = append(stored, fmt.Sprintf("%s=%s", r, humanize.Comma(int64(n))))
	}
	sort.Strings(stored)
	fmt.Fprintf(w, "stored: %s\n", strings.Join(stored, " "))
}

func printIndexStats(ctx context.Context, w io.Writer, idx *indexdb.SQLiteIndex, runID string, logger *log.Logger) {
	counts, err := idx.FallbackCounts(ctx, runID)
	if err != nil {
		logger.Printf("index fallbacks: %v", err)
		return
	}
	var codes []string
	for c := range counts {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	for _, c := range codes {
		fmt.Fprintf(w, "fallback %-26s %s\n", c, humanize.Comma(int64(counts[c])))
	}

	dwell, err := idx.StateDwell(ctx, runID)
	if err != nil {
		logger.Printf("index dwell: %v", err)
		return
	}
	var total uint64
	for _, t := range dwell {
		total += t
	}
	if total == 0 {
		return
	}
	for _, st := range model.AllStates() {
		if t := dwell[st]; t > 0 {
			fmt.Fprintf(w, "dwell %-20s %5.1f%%\n", st, 100*float64(t)/float64(total))
		}
	}
	if st := idx.Stats(); st.DropTotal > 0 {
		logger.Printf("index dropped %s transitions", humanize.Comma(int64(st.DropTotal)))
	}
}

func dirSize(dir string) uint64 {
	var n uint64
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	for _, e := range entries {
		if info, err := e.Info(); err == nil && !info.IsDir() {
			n += uint64(info.Size())
		}
	}
	return n
}
