package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalMap converts a string-keyed map to deterministic JSON TEXT.
// encoding/json sorts map keys, so equal maps always give equal text.
// A nil map is stored as "{}".
func marshalMap[V any](m map[string]V) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalMap parses JSON TEXT written by marshalMap. Never returns nil.
func unmarshalMap[V any](data string) (map[string]V, error) {
	m := map[string]V{}
	if data == "" || data == "{}" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func marshalFields(fields map[string]string) (string, error) {
	s, err := marshalMap(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return s, nil
}

func unmarshalFields(data string) (map[string]string, error) {
	m, err := unmarshalMap[string](data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return m, nil
}
