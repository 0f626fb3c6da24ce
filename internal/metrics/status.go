package metrics

import (
	"fmt"
	"sort"
)

// TransportClassLabel is the status bucket for attempts that never produced
// an HTTP response.
const TransportClassLabel = "transport"

// StatusClassLabel returns the bucket an outcome's status falls into:
// "1xx" through "5xx", or "transport" when no response was received.
func StatusClassLabel(o Outcome) string {
	if o.Class == TransportError || o.StatusCode < 100 {
		return TransportClassLabel
	}
	return fmt.Sprintf("%dxx", o.StatusCode/100)
}

// StatusBucket represents the aggregated count for one status class.
type StatusBucket struct {
	Class string
	Count int
}

// FlattenStatusBuckets converts a class->count map into a sorted slice of
// StatusBucket rows. Rows are sorted by descending count, then by class for
// stability.
func FlattenStatusBuckets(buckets map[string]int) []StatusBucket {
	if len(buckets) == 0 {
		return nil
	}
	rows := make([]StatusBucket, 0, len(buckets))
	for class, count := range buckets {
		rows = append(rows, StatusBucket{Class: class, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Class < rows[j].Class
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
