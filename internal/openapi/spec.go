// Package openapi embeds the dashboard server's API description.
package openapi

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"sigs.k8s.io/yaml"
)

//go:embed spec.yaml
var specYAML []byte

var (
	jsonOnce sync.Once
	jsonDoc  []byte
	jsonErr  error
)

// JSON returns the document converted to JSON. The conversion runs once.
func JSON() ([]byte, error) {
	jsonOnce.Do(func() {
		jsonDoc, jsonErr = yaml.YAMLToJSON(specYAML)
		if jsonErr != nil {
			jsonErr = fmt.Errorf("convert openapi yaml: %w", jsonErr)
		}
	})
	return jsonDoc, jsonErr
}

// YAML returns the raw document.
func YAML() []byte {
	return specYAML
}

// Paths lists the documented route templates in sorted order.
func Paths() ([]string, error) {
	raw, err := JSON()
	if err != nil {
		return nil, err
	}
	var doc struct {
		Paths map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode openapi document: %w", err)
	}
	paths := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}
