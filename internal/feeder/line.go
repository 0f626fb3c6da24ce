package feeder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// LineFeeder streams records from a text file with one record per line. Each
// line holds whitespace-separated key:value tokens. The file is read lazily;
// when the cursor reaches the end it rewinds to the start, so the dataset is
// logically infinite. It is safe for concurrent access.
type LineFeeder struct {
	path  string
	count int

	mu     sync.Mutex
	file   *os.File
	scan   *bufio.Scanner
	lineNo int
}

// NewLineFeeder opens the given file and counts its records. The file stays
// open for the lifetime of the feeder; Close releases it.
func NewLineFeeder(path string) (*LineFeeder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}

	count := 0
	scan := bufio.NewScanner(file)
	for scan.Scan() {
		if strings.TrimSpace(scan.Text()) != "" {
			count++
		}
	}
	if err := scan.Err(); err != nil {
		file.Close()
		return nil, fmt.Errorf("read data file: %w", err)
	}
	if count == 0 {
		file.Close()
		return nil, fmt.Errorf("data file %s has no records", path)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("rewind data file: %w", err)
	}

	return &LineFeeder{
		path:  path,
		count: count,
		file:  file,
		scan:  bufio.NewScanner(file),
	}, nil
}

// Next returns the record on the current line and advances the cursor. At end
// of file the cursor rewinds and the first line is returned again. A token
// that is not a key:value pair fails with MalformedRecordError.
func (f *LineFeeder) Next(ctx context.Context) (Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	rewound := false
	for {
		if f.scan.Scan() {
			f.lineNo++
			line := strings.TrimSpace(f.scan.Text())
			if line == "" {
				continue
			}
			return f.parseLine(line)
		}
		if err := f.scan.Err(); err != nil {
			return nil, fmt.Errorf("read %s: %w", f.path, err)
		}
		if rewound {
			return nil, fmt.Errorf("data file %s has no records", f.path)
		}
		if err := f.rewind(); err != nil {
			return nil, err
		}
		rewound = true
	}
}

// parseLine splits a line into whitespace-separated key:value fields.
func (f *LineFeeder) parseLine(line string) (Record, error) {
	tokens := strings.Fields(line)
	record := make(Record, 0, len(tokens))
	for _, token := range tokens {
		field, err := ParseField(token)
		if err != nil {
			return nil, &MalformedRecordError{Path: f.path, Line: f.lineNo, Token: token}
		}
		record = append(record, field)
	}
	return record, nil
}

// rewind seeks back to the start of the file and resets the scanner.
func (f *LineFeeder) rewind() error {
	if _, err := f.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind %s: %w", f.path, err)
	}
	f.scan = bufio.NewScanner(f.file)
	f.lineNo = 0
	return nil
}

// Close releases the underlying file.
func (f *LineFeeder) Close() error {
	return f.file.Close()
}

// Len returns the number of non-blank lines counted when the feeder opened.
func (f *LineFeeder) Len() int {
	return f.count
}
