package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned by Get when the key is not cached
var ErrMiss = errors.New("cache: miss")

// CacheService represents a generic cache service
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// GetJSON decodes a cached JSON value into v.
// It reports false on a miss and an error on backend or decode failures.
func GetJSON(c CacheService, key string, v interface{}) (bool, error) {
	data, err := c.Get(key)
	if errors.Is(err, ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v encoded as JSON
func SetJSON(c CacheService, key string, v interface{}, expiration time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return c.Set(key, data, expiration)
}
