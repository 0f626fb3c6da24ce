package feeder

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/tidwall/gjson"
)

// JSONFeeder reads records from a JSON file containing an array of flat
// objects. It provides records in cyclic order and is safe for concurrent
// access.
type JSONFeeder struct {
	records []Record
	index   int
	mu      sync.Mutex
}

// NewJSONFeeder creates a new JSON feeder from the given file path.
// The file must contain a JSON array of objects; values are coerced to
// strings and fields keep their document order.
func NewJSONFeeder(path string) (*JSONFeeder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open JSON file: %w", err)
	}

	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("decode JSON: %s is not valid JSON", path)
	}

	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("decode JSON: %s must contain a top-level array of objects", path)
	}

	var records []Record
	var parseErr error
	root.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			parseErr = fmt.Errorf("record %d is not an object", len(records))
			return false
		}
		record := make(Record, 0, 4)
		item.ForEach(func(key, value gjson.Result) bool {
			record = append(record, Field{Key: key.String(), Value: value.String()})
			return true
		})
		if len(record) == 0 {
			parseErr = fmt.Errorf("record %d is empty", len(records))
			return false
		}
		records = append(records, record)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("JSON file contains empty array")
	}

	return &JSONFeeder{
		records: records,
		index:   0,
	}, nil
}

// Next returns the next record, starting over from the first after the last.
func (f *JSONFeeder) Next(ctx context.Context) (Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	record := f.records[f.index]
	f.index = (f.index + 1) % len(f.records)
	return record, nil
}

// Close releases resources. For JSON feeder, this is a no-op.
func (f *JSONFeeder) Close() error {
	return nil
}

// Len returns the total number of records in the dataset.
func (f *JSONFeeder) Len() int {
	return len(f.records)
}
