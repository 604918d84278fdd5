package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseKV parses a key=value pair, attempting type inference for the value
func ParseKV(kvPair string) (string, any, error) {
	parts := strings.SplitN(kvPair, "=", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("invalid format, expected key=value: %s", kvPair)
	}

	key := strings.TrimSpace(parts[0])
	if key == "" {
		return "", nil, fmt.Errorf("empty key in key=value pair")
	}

	return key, inferValue(strings.TrimSpace(parts[1])), nil
}

func inferValue(valueStr string) any {
	// Integers first so "1" does not become true
	if intVal, err := strconv.Atoi(valueStr); err == nil {
		return intVal
	}
	if floatVal, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return floatVal
	}
	if valueStr == "true" || valueStr == "false" {
		boolVal, _ := strconv.ParseBool(valueStr)
		return boolVal
	}
	return valueStr
}

// ParseJSON parses a JSON object string into a map
func ParseJSON(jsonStr string) (map[string]any, error) {
	var result map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return result, nil
}

// ParseFile reads a JSON or YAML object from path. The extension picks the
// decoder; anything other than .yaml/.yml is treated as JSON.
func ParseFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var result map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
		}
	}
	return result, nil
}

// ParseEnvWithPrefix collects PREFIX (a JSON object) and PREFIX_<KEY>
// variables. Keys are lowercased.
func ParseEnvWithPrefix(prefix string) map[string]any {
	values := make(map[string]any)

	if jsonStr := os.Getenv(prefix); jsonStr != "" {
		if parsed, err := ParseJSON(jsonStr); err == nil {
			maps.Copy(values, parsed)
		}
	}

	envPrefix := prefix + "_"
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, envPrefix) {
			continue
		}
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 || parts[1] == "" {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(parts[0], envPrefix))
		values[key] = inferValue(strings.TrimSpace(parts[1]))
	}

	if len(values) == 0 {
		return nil
	}
	return values
}

// ParseKVPairs parses a list of key=value pairs into a map
func ParseKVPairs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	values := make(map[string]any, len(pairs))
	for _, kv := range pairs {
		key, value, err := ParseKV(kv)
		if err != nil {
			return nil, err
		}
		values[key] = value
	}
	return values, nil
}

// Merge merges sources in order; later sources override earlier ones
func Merge(sources ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, src := range sources {
		maps.Copy(result, src)
	}
	return result
}

// BuildWithPrefix layers env (lowest), a JSON/YAML file, a JSON string and
// key=value pairs (highest) into one map. Empty inputs are skipped.
func BuildWithPrefix(envPrefix, jsonStr string, kvPairs []string, filePath string) (map[string]any, error) {
	sources := []map[string]any{ParseEnvWithPrefix(envPrefix)}

	if filePath != "" {
		fileValues, err := ParseFile(filePath)
		if err != nil {
			return nil, err
		}
		sources = append(sources, fileValues)
	}

	if jsonStr != "" {
		jsonValues, err := ParseJSON(jsonStr)
		if err != nil {
			return nil, err
		}
		sources = append(sources, jsonValues)
	}

	kvValues, err := ParseKVPairs(kvPairs)
	if err != nil {
		return nil, err
	}
	sources = append(sources, kvValues)

	return Merge(sources...), nil
}
