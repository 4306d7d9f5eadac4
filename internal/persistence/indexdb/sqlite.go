// Package indexdb keeps a queryable SQLite index of settler decisions next
// to the compressed decision logs.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"colonysim.ai/internal/sim/catalogs"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/tuning"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
	runID  atomic.Value // string

	dropped atomic.Uint64
}

type reqKind int

const (
	reqTransition reqKind = iota + 1
	reqFlush
)

type req struct {
	kind reqKind

	runID      string
	transition model.Transition
	done       chan struct{}
}

// Stats reports the writer queue health.
type Stats struct {
	QueueDepth    int
	QueueCapacity int
	DropTotal     uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return open(path, 65536)
}

func open(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{db: db, ch: make(chan req, queue)}
	s.runID.Store("")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			scenario TEXT NOT NULL,
			seed INTEGER NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS transitions (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			agent_id TEXT NOT NULL,
			from_state TEXT NOT NULL,
			to_state TEXT NOT NULL,
			reason TEXT NOT NULL,
			code TEXT,
			fallback INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_agent_tick ON transitions(run_id, agent_id, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_code ON transitions(code) WHERE code IS NOT NULL;`,
		`CREATE TABLE IF NOT EXISTS grids (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			walkable INTEGER NOT NULL,
			mask TEXT NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{QueueDepth: len(s.ch), QueueCapacity: cap(s.ch), DropTotal: s.dropped.Load()}
}

// BeginRun registers a run; later transitions are filed under it.
func (s *SQLiteIndex) BeginRun(ctx context.Context, runID, scenario string, seed int64) error {
	if s == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs(run_id,scenario,seed,started_at) VALUES(?,?,?,?)`,
		runID, scenario, seed, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}
	s.runID.Store(runID)
	return nil
}

// Record queues one transition. It never blocks the tick: when the writer
// falls behind the row is dropped; the JSONL log remains the source of
// truth.
func (s *SQLiteIndex) Record(t model.Transition) {
	if s == nil || s.closed.Load() {
		return
	}
	runID, _ := s.runID.Load().(string)
	select {
	case s.ch <- req{kind: reqTransition, runID: runID, transition: t}:
	default:
		s.dropped.Add(1)
	}
}

// Flush waits until everything queued so far is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertCatalogs stores the blueprints, recipes and tuning a run used.
func (s *SQLiteIndex) UpsertCatalogs(ctx context.Context, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	{
		bps := make([]catalogs.BlueprintDef, 0, len(cats.Blueprints.ByID))
		for _, bp := range cats.Blueprints.ByID {
			bps = append(bps, bp)
		}
		sort.Slice(bps, func(i, j int) bool { return bps[i].ID < bps[j].ID })
		if b, _ := json.Marshal(bps); len(b) > 0 {
			rows = append(rows, kv{name: "blueprints", digest: cats.Blueprints.Digest, json: b})
		}
	}
	{
		rs := make([]catalogs.RecipeDef, 0, len(cats.Recipes.ByID))
		for _, r := range cats.Recipes.ByID {
			rs = append(rs, r)
		}
		sort.Slice(rs, func(i, j int) bool { return rs[i].RecipeID < rs[j].RecipeID })
		if b, _ := json.Marshal(rs); len(b) > 0 {
			rows = append(rows, kv{name: "recipes", digest: cats.Recipes.Digest, json: b})
		}
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Grid is a walkability dump taken at one tick.
type Grid struct {
	Tick     uint64
	Width    int
	Height   int
	Walkable int
	Mask     string
}

// RecordGrid stores a walkability dump synchronously.
func (s *SQLiteIndex) RecordGrid(ctx context.Context, runID string, g Grid) error {
	if s == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO grids(run_id,tick,width,height,walkable,mask) VALUES(?,?,?,?,?,?)`,
		runID, int64(g.Tick), g.Width, g.Height, g.Walkable, g.Mask)
	return err
}

// Grids returns a run's walkability dumps in tick order.
func (s *SQLiteIndex) Grids(ctx context.Context, runID string) ([]Grid, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, width, height, walkable, mask FROM grids WHERE run_id=? ORDER BY tick`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Grid
	for rows.Next() {
		var g Grid
		var tick int64
		if err := rows.Scan(&tick, &g.Width, &g.Height, &g.Walkable, &g.Mask); err != nil {
			return nil, err
		}
		g.Tick = uint64(tick)
		out = append(out, g)
	}
	return out, rows.Err()
}

// CatalogDigest returns the stored digest of a catalog row.
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name=?`, name).Scan(&d)
	return d, err
}

// FallbackCounts counts fallback transitions per error code for a run.
func (s *SQLiteIndex) FallbackCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, COUNT(*) FROM transitions WHERE run_id=? AND fallback=1 AND code IS NOT NULL GROUP BY code`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, err
		}
		out[code] = n
	}
	return out, rows.Err()
}

// StateDwell sums, per state, the ticks agents spent in it between
// consecutive transitions of a run. The open interval after an agent's
// last transition is not counted.
func (s *SQLiteIndex) StateDwell(ctx context.Context, runID string) (map[model.State]uint64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT agent_id, tick, to_state FROM transitions WHERE run_id=? ORDER BY agent_id, seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[model.State]uint64{}
	var (
		lastAgent string
		lastTick  uint64
		lastState model.State
		have      bool
	)
	for rows.Next() {
		var agent, to string
		var tick int64
		if err := rows.Scan(&agent, &tick, &to); err != nil {
			return nil, err
		}
		st, ok := model.ParseState(to)
		if !ok {
			return nil, fmt.Errorf("transitions: unknown state %q", to)
		}
		if have && agent == lastAgent && uint64(tick) >= lastTick {
			out[lastState] += uint64(tick) - lastTick
		}
		lastAgent, lastTick, lastState, have = agent, uint64(tick), st, true
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTransition, _ := s.db.Prepare(`INSERT OR REPLACE INTO transitions(run_id,seq,tick,agent_id,from_state,to_state,reason,code,fallback) VALUES(?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertTransition != nil {
			_ = insertTransition.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		seq = map[string]int64{}
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		switch r.kind {
		case reqFlush:
			commit()
			close(r.done)
			continue

		case reqTransition:
			begin()
			if tx == nil || insertTransition == nil {
				continue
			}
			if _, ok := seq[r.runID]; !ok {
				var last sql.NullInt64
				_ = tx.QueryRow(`SELECT MAX(seq) FROM transitions WHERE run_id=?`, r.runID).Scan(&last)
				seq[r.runID] = last.Int64
			}
			seq[r.runID]++
			t := r.transition
			var code any
			if t.Code != "" {
				code = t.Code
			}
			if _, err := tx.Stmt(insertTransition).Exec(
				r.runID,
				seq[r.runID],
				int64(t.Tick),
				t.AgentID,
				t.From.String(),
				t.To.String(),
				t.Reason,
				code,
				t.Fallback,
			); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
