package metrics

import (
	"reflect"
	"testing"
)

func TestFlattenStatusBuckets(t *testing.T) {
	tests := []struct {
		name    string
		buckets map[string]int
		want    []StatusBucket
	}{
		{
			name:    "nil buckets",
			buckets: nil,
			want:    nil,
		},
		{
			name:    "empty buckets",
			buckets: map[string]int{},
			want:    nil,
		},
		{
			name:    "single bucket",
			buckets: map[string]int{"2xx": 10},
			want: []StatusBucket{
				{Class: "2xx", Count: 10},
			},
		},
		{
			name: "multiple buckets sorted by count desc",
			buckets: map[string]int{
				"2xx":       10,
				"5xx":       5,
				"transport": 20,
			},
			want: []StatusBucket{
				{Class: "transport", Count: 20},
				{Class: "2xx", Count: 10},
				{Class: "5xx", Count: 5},
			},
		},
		{
			name: "tie breaking by class",
			buckets: map[string]int{
				"4xx": 10,
				"2xx": 10,
				"5xx": 10,
			},
			want: []StatusBucket{
				{Class: "2xx", Count: 10},
				{Class: "4xx", Count: 10},
				{Class: "5xx", Count: 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlattenStatusBuckets(tt.buckets)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FlattenStatusBuckets() = %v, want %v", got, tt.want)
			}
		})
	}
}
