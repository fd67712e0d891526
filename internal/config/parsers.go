// Package config loads volley settings from flags and JSON or YAML files.
package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/torosent/volley/internal/request"
)

// Viper hands back file settings with lower-cased keys, JSON numbers as
// float64, YAML numbers as int, nested objects as map[string]interface{} and
// lists as []interface{}. The converters below accept those shapes plus
// strings, so quoted values in a file still work.

func lookupSetting(settings map[string]interface{}, candidates ...string) (interface{}, bool) {
	for _, key := range candidates {
		if val, ok := settings[strings.ToLower(key)]; ok {
			return val, true
		}
	}
	return nil, false
}

func asString(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case map[string]interface{}, []interface{}:
		return "", fmt.Errorf("expected a scalar, got %T", value)
	default:
		return fmt.Sprint(v), nil
	}
}

// asInt accepts whole numbers only; 2.5 requests per round is an error, not 2.
func asInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		if v > math.MaxInt || v < math.MinInt {
			return 0, fmt.Errorf("%d is out of range", v)
		}
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%g is not a whole number", v)
		}
		if v >= float64(math.MaxInt) || v < float64(math.MinInt) {
			return 0, fmt.Errorf("%g is out of range", v)
		}
		return int(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		return strconv.Atoi(s)
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", value)
	}
}

// asCount reads rate and rounds, which the scheduler holds as uint32.
func asCount(value interface{}) (int, error) {
	n, err := asInt(value)
	if err != nil {
		return 0, err
	}
	if n < 0 || uint64(n) > math.MaxUint32 {
		return 0, fmt.Errorf("%d is outside 0..%d", n, uint64(math.MaxUint32))
	}
	return n, nil
}

func asFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	default:
		return 0, fmt.Errorf("unsupported float type %T", value)
	}
}

func asBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return false, nil
		}
		return strconv.ParseBool(s)
	default:
		return false, fmt.Errorf("unsupported boolean type %T", value)
	}
}

// asDuration parses Go duration strings; bare numbers are seconds.
func asDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		return time.ParseDuration(s)
	case int:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("unsupported duration type %T", value)
	}
}

// asStringSlice accepts a list or a single string, for one threshold.
func asStringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []interface{}:
		result := make([]string, len(v))
		for i, item := range v {
			str, err := asString(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			result[i] = str
		}
		return result, nil
	case string:
		return []string{v}, nil
	default:
		return nil, fmt.Errorf("unsupported string slice type %T", value)
	}
}

func asSettings(value interface{}) (map[string]interface{}, error) {
	m, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected map, got %T", value)
	}
	result := make(map[string]interface{}, len(m))
	for key, val := range m {
		result[strings.ToLower(strings.TrimSpace(key))] = val
	}
	return result, nil
}

// parseHeaders accepts either a key/value map or a list of
// {key, value, enabled} rows. Map entries are always enabled.
func parseHeaders(value interface{}) ([]request.Header, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		headers := make([]request.Header, 0, len(v))
		for idx, item := range v {
			row, err := asSettings(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", idx, err)
			}
			header, err := headerRow(row)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", idx, err)
			}
			headers = append(headers, header)
		}
		return headers, nil
	case map[string]interface{}:
		hdrs := make(map[string]string, len(v))
		for key, raw := range v {
			if strings.TrimSpace(key) == "" {
				return nil, fmt.Errorf("header key cannot be empty")
			}
			val, err := asString(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			hdrs[key] = val
		}
		return request.HeadersFromMap(hdrs), nil
	default:
		return nil, fmt.Errorf("unsupported headers type %T", value)
	}
}

// headerRow reads one {key, value, enabled} row. "name" and "selected" are
// accepted as aliases used by exported request collections.
func headerRow(row map[string]interface{}) (request.Header, error) {
	header := request.Header{Enabled: true}
	if raw, ok := lookupSetting(row, "key", "name"); ok {
		val, err := asString(raw)
		if err != nil {
			return request.Header{}, fmt.Errorf("key: %w", err)
		}
		header.Key = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(row, "value"); ok {
		val, err := asString(raw)
		if err != nil {
			return request.Header{}, fmt.Errorf("value: %w", err)
		}
		header.Value = val
	}
	if raw, ok := lookupSetting(row, "enabled", "selected"); ok {
		val, err := asBool(raw)
		if err != nil {
			return request.Header{}, fmt.Errorf("enabled: %w", err)
		}
		header.Enabled = val
	}
	if header.Enabled && header.Key == "" {
		return request.Header{}, fmt.Errorf("key cannot be empty")
	}
	return header, nil
}
