package feeder

import (
	"context"
	"fmt"
	"strings"
)

// Field is one key/value pair of a payload record.
type Field struct {
	Key   string
	Value string
}

// Record is a single row of payload data. Fields keep the order they had in
// the source, so encoders that visit a record produce stable output.
type Record []Field

// Get returns the value of the first field named key.
func (r Record) Get(key string) (string, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Feeder provides per-request payload data from a dataset in deterministic
// cyclic order: after the last record the next call starts over from the
// first. Implementations must be safe for concurrent use.
type Feeder interface {
	// Next returns the next record from the dataset. Each cursor position is
	// delivered to exactly one caller.
	Next(ctx context.Context) (Record, error)

	// Close releases any resources held by the feeder.
	Close() error

	// Len returns the total number of records in the dataset.
	Len() int
}

// MalformedRecordError reports a dataset entry that cannot be parsed into
// key:value fields. The dispatcher treats it as fatal: the run stops instead
// of measuring requests built from broken payloads.
type MalformedRecordError struct {
	Path  string
	Line  int
	Token string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record in %s line %d: %q is not a key:value pair", e.Path, e.Line, e.Token)
}

// ParseField splits a key:value token on its first colon. The value may
// contain further colons; the key must be non-empty.
func ParseField(token string) (Field, error) {
	key, value, ok := strings.Cut(token, ":")
	if !ok || key == "" {
		return Field{}, fmt.Errorf("%q is not a key:value pair", token)
	}
	return Field{Key: key, Value: value}, nil
}
