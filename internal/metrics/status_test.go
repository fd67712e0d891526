package metrics

import (
	"reflect"
	"testing"
)

func TestFlattenStatusBuckets(t *testing.T) {
	tests := []struct {
		name   string
		counts map[string]int
		want   []StatusBucket
	}{
		{
			name:   "nil counts",
			counts: nil,
			want:   nil,
		},
		{
			name:   "empty counts",
			counts: map[string]int{},
			want:   nil,
		},
		{
			name:   "single code",
			counts: map[string]int{"200": 10},
			want: []StatusBucket{
				{Class: "2xx", Code: "200", Count: 10},
			},
		},
		{
			name: "sorted by count desc",
			counts: map[string]int{
				"200": 10,
				"500": 5,
				"999": 20,
			},
			want: []StatusBucket{
				{Class: "transport", Code: "999", Count: 20},
				{Class: "2xx", Code: "200", Count: 10},
				{Class: "5xx", Code: "500", Count: 5},
			},
		},
		{
			name: "tie breaking by code",
			counts: map[string]int{
				"404": 10,
				"200": 10,
			},
			want: []StatusBucket{
				{Class: "2xx", Code: "200", Count: 10},
				{Class: "4xx", Code: "404", Count: 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlattenStatusBuckets(tt.counts)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FlattenStatusBuckets() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusClass(t *testing.T) {
	cases := map[string]string{
		"200": "2xx",
		"301": "3xx",
		"404": "4xx",
		"503": "5xx",
		"999": "transport",
		"abc": "other",
		"42":  "other",
	}
	for code, want := range cases {
		if got := StatusClass(code); got != want {
			t.Errorf("StatusClass(%q) = %q, want %q", code, got, want)
		}
	}
}
