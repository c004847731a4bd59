package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// LoadJSON decodes the value under key into T. A missing key yields the zero
// value of T and no error.
func LoadJSON[T any](ctx context.Context, s Store, key string) (T, error) {
	var v T
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return v, nil
	}
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return v, nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON[T any](ctx context.Context, s Store, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
