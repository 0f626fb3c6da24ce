package output

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
)

// DumpRecord is one attempt's raw request and response, serialized as a
// single JSON line in the dump file.
type DumpRecord struct {
	Time            time.Time   `json:"time"`
	Method          string      `json:"method"`
	URL             string      `json:"url"`
	RequestHeaders  http.Header `json:"request_headers,omitempty"`
	RequestBody     string      `json:"request_body,omitempty"`
	Status          int         `json:"status,omitempty"`
	ResponseHeaders http.Header `json:"response_headers,omitempty"`
	ResponseBody    string      `json:"response_body,omitempty"`
	Error           string      `json:"error,omitempty"`
}

// dumpHeader is the first line of every dump file, identifying the run.
type dumpHeader struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
}

// DumpWriter streams raw request/response records to a side-channel file as
// JSON lines. The file is guarded by an exclusive advisory lock so two
// concurrent runs cannot interleave the same dump. Writes are best-effort:
// failures are counted and reported once at the end of the run and never
// affect the statistics path.
type DumpWriter struct {
	mu       sync.Mutex
	file     *os.File
	enc      *json.Encoder
	lock     *flock.Flock
	failures int64
}

// NewDumpWriter opens (and truncates) the dump file, takes the lock, and
// writes the run header line.
func NewDumpWriter(path, runID string) (*DumpWriter, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock dump file: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("dump file %s is locked by another run", path)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("open dump file: %w", err)
	}

	w := &DumpWriter{
		file: file,
		enc:  json.NewEncoder(file),
		lock: lock,
	}
	if err := w.enc.Encode(dumpHeader{RunID: runID, StartedAt: time.Now().UTC()}); err != nil {
		file.Close()
		lock.Unlock()
		return nil, fmt.Errorf("write dump header: %w", err)
	}
	return w, nil
}

// Write appends one record. Encode errors are counted, not returned: a
// broken side channel must not fail the attempt that produced the record.
func (w *DumpWriter) Write(rec DumpRecord) {
	if w == nil {
		return
	}
	w.mu.Lock()
	err := w.enc.Encode(rec)
	w.mu.Unlock()
	if err != nil {
		atomic.AddInt64(&w.failures, 1)
	}
}

// Failures returns how many records could not be written.
func (w *DumpWriter) Failures() int64 {
	if w == nil {
		return 0
	}
	return atomic.LoadInt64(&w.failures)
}

// Close flushes the file and releases the lock.
func (w *DumpWriter) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.file.Close()
	if unlockErr := w.lock.Unlock(); err == nil {
		err = unlockErr
	}
	return err
}
