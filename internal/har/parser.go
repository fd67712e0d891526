package har

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNoEntries is returned when filtering leaves nothing to convert.
var ErrNoEntries = errors.New("no HAR entries matched")

// ParseFile reads and parses a HAR file from disk
func ParseFile(path string) (*HAR, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open HAR file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse decodes a HAR document from r.
func Parse(r io.Reader) (*HAR, error) {
	var har HAR
	if err := json.NewDecoder(r).Decode(&har); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty HAR data")
		}
		return nil, fmt.Errorf("failed to parse HAR JSON: %w", err)
	}

	if har.Log == nil {
		return nil, fmt.Errorf("invalid HAR: missing log field")
	}

	return &har, nil
}
