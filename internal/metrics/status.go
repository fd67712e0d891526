package metrics

import (
	"sort"
	"strconv"
)

// StatusBucket represents the number of outcomes recorded with one status code.
type StatusBucket struct {
	Class string
	Code  string
	Count int
}

// StatusClass groups a status code: "2xx".."5xx", "transport" for
// StatusTransportFailure, and "other" for anything unparseable.
func StatusClass(code string) string {
	if code == StatusTransportFailure {
		return "transport"
	}
	n, err := strconv.Atoi(code)
	if err != nil || n < 100 || n > 599 {
		return "other"
	}
	return strconv.Itoa(n/100) + "xx"
}

// FlattenStatusBuckets converts a status->count map into a sorted slice of StatusBucket rows.
// Rows are sorted by descending count, then by code for stability.
func FlattenStatusBuckets(counts map[string]int) []StatusBucket {
	if len(counts) == 0 {
		return nil
	}
	rows := make([]StatusBucket, 0, len(counts))
	for code, count := range counts {
		rows = append(rows, StatusBucket{Class: StatusClass(code), Code: code, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Code < rows[j].Code
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
