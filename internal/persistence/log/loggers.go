package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"thegrind.cafe/internal/sim/world"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	now func() time.Time

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
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
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
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// SignalLogger writes one JSONL entry per simulation signal (compressed).
type SignalLogger struct{ w *JSONLZstdWriter }

func NewSignalLogger(saveDir string) *SignalLogger {
	return &SignalLogger{w: NewJSONLZstdWriter(filepath.Join(saveDir, "signals"), "signals")}
}

func (l *SignalLogger) WriteSignal(s world.Signal) error { return l.w.Write(s) }
func (l *SignalLogger) Close() error                      { return l.w.Close() }

// DayLogger keeps the end-of-day summaries in their own stream.
type DayLogger struct{ w *JSONLZstdWriter }

func NewDayLogger(saveDir string) *DayLogger {
	return &DayLogger{w: NewJSONLZstdWriter(filepath.Join(saveDir, "days"), "days")}
}

func (l *DayLogger) WriteDay(d world.DaySummary) error { return l.w.Write(d) }
func (l *DayLogger) Close() error                      { return l.w.Close() }

// Fanout sends every signal to the signal log and day summaries to the day
// log as well. Either may be nil.
type Fanout struct {
	Signals *SignalLogger
	Days    *DayLogger
}

func (f Fanout) WriteSignal(s world.Signal) error {
	var errs []error
	if f.Signals != nil {
		errs = append(errs, f.Signals.WriteSignal(s))
	}
	if f.Days != nil && s.Kind == world.SignalDayEnded && s.Day != nil {
		errs = append(errs, f.Days.WriteDay(*s.Day))
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	if f.Signals != nil {
		errs = append(errs, f.Signals.Close())
	}
	if f.Days != nil {
		errs = append(errs, f.Days.Close())
	}
	return errors.Join(errs...)
}
