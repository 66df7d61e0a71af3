package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

type (
	// Values represents a map of named values flowing into or out of nodes
	Values map[string]any

	valuePair struct {
		K string `json:"k"`
		V any    `json:"v"`
	}
)

var (
	ErrMarshalValues = errors.New("failed to marshal values")
)

// Clone returns a shallow copy of the Values. A nil receiver clones to an
// empty, writable map
func (v Values) Clone() Values {
	if v == nil {
		return Values{}
	}
	return maps.Clone(v)
}

// Merge returns a new Values combining the receiver with other. Keys in
// other win on collision; neither operand is mutated
func (v Values) Merge(other Values) Values {
	res := v.Clone()
	maps.Copy(res, other)
	return res
}

// GetString retrieves a string value, returning defaultValue if not found
// or wrong type
func (v Values) GetString(name, defaultValue string) string {
	val, ok := v[name]
	if !ok {
		return defaultValue
	}
	str, ok := val.(string)
	if !ok {
		return defaultValue
	}
	return str
}

// GetBool retrieves a boolean value, returning defaultValue if not found or
// wrong type
func (v Values) GetBool(name string, defaultValue bool) bool {
	val, ok := v[name]
	if !ok {
		return defaultValue
	}
	b, ok := val.(bool)
	if !ok {
		return defaultValue
	}
	return b
}

// GetInt retrieves an integer value, returning defaultValue if not found or
// wrong type. Supports both int and float64 (converting from JSON numbers)
func (v Values) GetInt(name string, defaultValue int) int {
	val, ok := v[name]
	if !ok {
		return defaultValue
	}
	if i, ok := val.(int); ok {
		return i
	}
	if f, ok := val.(float64); ok {
		return int(f)
	}
	return defaultValue
}

// HashKey computes a deterministic SHA256 hash key of the Values. Keys are
// sorted alphabetically to ensure consistent hashing regardless of map
// iteration order. Returns hex string (64 chars) for use as cache key
func (v Values) HashKey() (string, error) {
	if len(v) == 0 {
		return sha256Hex(""), nil
	}

	keys := slices.Sorted(maps.Keys(v))
	pairs := make([]valuePair, len(keys))
	for i, k := range keys {
		pairs[i] = valuePair{K: k, V: v[k]}
	}

	data, err := json.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMarshalValues, err)
	}

	return sha256Hex(string(data)), nil
}

func sha256Hex(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}
