package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// ErrTemplateNotFound is returned when a path selector matches nothing.
var ErrTemplateNotFound = errors.New("template not found")

// LoadFile reads a template from a YAML or JSON file. When selector is set it
// is evaluated as a gjson path against the document (YAML documents are
// converted to JSON first), which allows picking one request out of a larger
// collection such as "requests.#(name==\"login\")".
func LoadFile(path, selector string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("read template file: %w", err)
	}
	return Parse(data, filepath.Ext(path), selector)
}

// Parse decodes a template document. ext picks the decoder (".yaml", ".yml" or
// anything else for JSON).
func Parse(data []byte, ext, selector string) (Template, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Template{}, errors.New("template document is empty")
	}

	raw := data
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Template{}, fmt.Errorf("parse yaml template: %w", err)
		}
		converted, err := json.Marshal(normalizeYAML(doc))
		if err != nil {
			return Template{}, fmt.Errorf("convert yaml template: %w", err)
		}
		raw = converted
	default:
		if !gjson.ValidBytes(data) {
			return Template{}, errors.New("parse json template: invalid JSON")
		}
	}

	if selector = strings.TrimSpace(selector); selector != "" {
		result := gjson.GetBytes(raw, selector)
		if !result.Exists() {
			return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, selector)
		}
		if !result.IsObject() {
			return Template{}, fmt.Errorf("template path %q does not select an object", selector)
		}
		raw = []byte(result.Raw)
	}

	var tmpl Template
	if err := json.Unmarshal(raw, &tmpl); err != nil {
		return Template{}, fmt.Errorf("decode template: %w", err)
	}
	return tmpl, nil
}

// LoadBody returns the contents of a body file.
func LoadBody(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read body file: %w", err)
	}
	return string(data), nil
}

// yaml.v3 decodes nested maps as map[string]interface{} already, but keys of
// non-string type still need stringifying before json.Marshal.
func normalizeYAML(v interface{}) interface{} {
	switch typed := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, val := range typed {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, val := range typed {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, val := range typed {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}
