package feeder

import (
	"context"
)

// StaticFeeder returns the same record for every request. It backs runs whose
// payload comes from command-line data pairs, and runs with no payload at all
// (an empty record).
type StaticFeeder struct {
	record Record
}

// NewStaticFeeder creates a feeder that always yields record.
func NewStaticFeeder(record Record) *StaticFeeder {
	return &StaticFeeder{record: record}
}

// Next returns the fixed record.
func (f *StaticFeeder) Next(ctx context.Context) (Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return f.record, nil
}

// Close releases resources. For static feeder, this is a no-op.
func (f *StaticFeeder) Close() error {
	return nil
}

// Len returns the total number of records in the dataset.
func (f *StaticFeeder) Len() int {
	return 1
}
