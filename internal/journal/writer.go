// Package journal appends shell events to date-organized JSONL files so
// navigation decisions and pushes can be audited after the fact.
package journal

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// ErrClosed is returned by Write after Close.
	ErrClosed = errors.New("journal: writer closed")
	// ErrBufferFull is returned when the write queue is saturated.
	ErrBufferFull = errors.New("journal: buffer full")
)

const fileName = "events.jsonl"

// Writer writes JSON lines asynchronously into baseDir/<YYYY-MM-DD>/.
type Writer struct {
	baseDir   string
	maxSizeMB int
	writeCh   chan any
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	now       func() time.Time

	mu          sync.Mutex
	currentDate string
	logger      *lumberjack.Logger
}

// NewWriter starts a writer with a queue of bufferSize records.
func NewWriter(baseDir string, bufferSize, maxSizeMB int) *Writer {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 50
	}
	w := &Writer{
		baseDir:   baseDir,
		maxSizeMB: maxSizeMB,
		writeCh:   make(chan any, bufferSize),
		done:      make(chan struct{}),
		now:       time.Now,
	}
	w.wg.Add(1)
	go w.writeLoop()
	return w
}

// Write queues a record without blocking.
func (w *Writer) Write(record any) error {
	select {
	case <-w.done:
		return ErrClosed
	default:
	}
	select {
	case w.writeCh <- record:
		return nil
	default:
		slog.Warn("journal buffer full, dropping record", "dir", w.baseDir)
		return ErrBufferFull
	}
}

// Close stops the writer after flushing queued records.
func (w *Writer) Close() error {
	w.closeOnce.Do(func() { close(w.done) })
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logger != nil {
		err := w.logger.Close()
		w.logger = nil
		return err
	}
	return nil
}

func (w *Writer) writeLoop() {
	defer w.wg.Done()
	for {
		select {
		case record := <-w.writeCh:
			w.writeRecord(record)
		case <-w.done:
			for {
				select {
				case record := <-w.writeCh:
					w.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) writeRecord(record any) {
	data, err := json.Marshal(record)
	if err != nil {
		slog.Error("journal marshal failed", "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	date := w.now().UTC().Format("2006-01-02")
	if date != w.currentDate || w.logger == nil {
		if !w.rotateForDate(date) {
			return
		}
	}
	if _, err := w.logger.Write(append(data, '\n')); err != nil {
		slog.Error("journal write failed", "error", err)
	}
}

func (w *Writer) rotateForDate(date string) bool {
	if w.logger != nil {
		w.logger.Close()
		w.logger = nil
	}
	dir := filepath.Join(w.baseDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("journal mkdir failed", "dir", dir, "error", err)
		return false
	}
	w.logger = &lumberjack.Logger{
		Filename:   filepath.Join(dir, fileName),
		MaxSize:    w.maxSizeMB,
		MaxBackups: 100,
		MaxAge:     30,
	}
	w.currentDate = date
	slog.Info("journal file opened", "file", w.logger.Filename)
	return true
}
