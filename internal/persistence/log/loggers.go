// Package log writes settler decisions as hourly-rotated, zstd-compressed
// JSON lines.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"colonysim.ai/internal/sim/model"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Flush pushes buffered lines into the current zstd frame.
func (w *JSONLZstdWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// Decision is one logged state transition.
type Decision struct {
	RunID    string `json:"run_id"`
	Tick     uint64 `json:"tick"`
	AgentID  string `json:"agent_id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Reason   string `json:"reason"`
	Code     string `json:"code,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

// DecisionLogger records every settler transition of one run.
type DecisionLogger struct {
	runID string
	w     *JSONLZstdWriter

	errs    atomic.Uint64
	lastErr atomic.Value // error
}

func NewDecisionLogger(dir string) *DecisionLogger {
	return &DecisionLogger{
		runID: uuid.NewString(),
		w:     NewJSONLZstdWriter(filepath.Join(dir, "decisions"), "decisions"),
	}
}

func (l *DecisionLogger) RunID() string { return l.runID }

func (l *DecisionLogger) Record(t model.Transition) {
	err := l.w.Write(Decision{
		RunID:    l.runID,
		Tick:     t.Tick,
		AgentID:  t.AgentID,
		From:     t.From.String(),
		To:       t.To.String(),
		Reason:   t.Reason,
		Code:     t.Code,
		Fallback: t.Fallback,
	})
	if err != nil {
		l.errs.Add(1)
		l.lastErr.Store(err)
	}
}

// Err returns the number of failed writes and the most recent failure.
func (l *DecisionLogger) Err() (uint64, error) {
	err, _ := l.lastErr.Load().(error)
	return l.errs.Load(), err
}

func (l *DecisionLogger) Flush() error { return l.w.Flush() }
func (l *DecisionLogger) Close() error { return l.w.Close() }

// ReadDecisions decodes one compressed decision file.
func ReadDecisions(path string) ([]Decision, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Decision
	jd := json.NewDecoder(dec)
	for {
		var d Decision
		if err := jd.Decode(&d); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		out = append(out, d)
	}
}
