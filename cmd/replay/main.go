package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	persistlog "colonysim.ai/internal/persistence/log"
	"colonysim.ai/internal/sim/catalogs"
	"colonysim.ai/internal/sim/colony"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/scenario"
	"colonysim.ai/internal/sim/settler"
	"colonysim.ai/internal/sim/tuning"
)

func main() {
	var (
		scenarioPath = flag.String("scenario", "", "scenario file the run was started from")
		decisionsDir = flag.String("decisions", "", "dir containing decisions-*.jsonl.zst")
		runID        = flag.String("run", "", "run id to verify (default: the latest run in the dir)")
		configDir    = flag.String("configs", "./configs", "config directory")
		tuningPath   = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		seed         = flag.Int64("seed", 0, "seed override the run used, if any")
	)
	flag.Parse()

	if *scenarioPath == "" || *decisionsDir == "" {
		fmt.Fprintln(os.Stderr, "missing -scenario or -decisions")
		os.Exit(2)
	}

	files, err := listDecisionFiles(*decisionsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list decisions:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no decision files found in", *decisionsDir)
		os.Exit(1)
	}
	want, id, err := loadRun(files, *runID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read decisions:", err)
		os.Exit(1)
	}
	if len(want) == 0 {
		fmt.Fprintln(os.Stderr, "no decisions for run", id)
		os.Exit(1)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	tp := *tuningPath
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}
	sc, err := scenario.Load(*scenarioPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load scenario:", err)
		os.Exit(1)
	}

	v := &verifier{want: want}
	opts := []colony.Option{colony.WithRecorder(settler.RecorderFunc(v.record))}
	if *seed != 0 {
		opts = append(opts, colony.WithSeed(*seed))
	}
	col := colony.New(colony.Config{ID: sc.Name, Tuning: tune, Catalogs: cats}, opts...)
	if err := sc.Build(col); err != nil {
		fmt.Fprintln(os.Stderr, "build scenario:", err)
		os.Exit(1)
	}

	last := want[len(want)-1].Tick
	for col.Tick() < last && v.err == nil {
		col.Step()
	}
	if v.err == nil && v.next < len(want) {
		v.err = fmt.Errorf("run ended at tick %d with %d logged decisions unmatched", col.Tick(), len(want)-v.next)
	}
	if v.err != nil {
		fmt.Fprintln(os.Stderr, "replay:", v.err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: run=%s checked=%d decisions through tick=%d\n", id, v.next, last)
}

type verifier struct {
	want []persistlog.Decision
	next int
	err  error
}

func (v *verifier) record(t model.Transition) {
	if v.err != nil {
		return
	}
	if v.next >= len(v.want) {
		v.err = fmt.Errorf("unlogged decision at tick %d: %s %s->%s", t.Tick, t.AgentID, t.From, t.To)
		return
	}
	w := v.want[v.next]
	got := persistlog.Decision{
		RunID:    w.RunID,
		Tick:     t.Tick,
		AgentID:  t.AgentID,
		From:     t.From.String(),
		To:       t.To.String(),
		Reason:   t.Reason,
		Code:     t.Code,
		Fallback: t.Fallback,
	}
	if got != w {
		v.err = fmt.Errorf("decision %d mismatch:\n  got  %+v\n  want %+v", v.next, got, w)
		return
	}
	v.next++
}

func listDecisionFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "decisions-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// loadRun collects one run's decisions across hourly files. With no run id
// the run of the last logged decision is used.
func loadRun(files []string, runID string) ([]persistlog.Decision, string, error) {
	var all []persistlog.Decision
	for _, path := range files {
		ds, err := persistlog.ReadDecisions(path)
		if err != nil {
			return nil, "", err
		}
		all = append(all, ds...)
	}
	if runID == "" && len(all) > 0 {
		runID = all[len(all)-1].RunID
	}
	var out []persistlog.Decision
	for _, d := range all {
		if d.RunID == runID {
			out = append(out, d)
		}
	}
	return out, runID, nil
}
