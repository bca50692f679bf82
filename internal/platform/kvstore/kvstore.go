// Package kvstore provides durable storage for per-patient named JSON records
// (cart snapshot, shipping selection, coupon code). It defines the Store
// interface, Postgres, Redis, and in-memory implementations, and JSON helpers
// that never propagate a read failure past the boundary.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Load when no record exists for the key.
	ErrNotFound = errors.New("record not found")
	// ErrStoreUnavailable marks a failed read or write of the backing store.
	// Callers decide whether to retry or keep serving from memory.
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// Store is the persistence port for named JSON records. Records live in a flat
// per-patient namespace; there is no atomicity across keys, and concurrent
// writers to the same key race last-write-wins.
type Store interface {
	Load(ctx context.Context, patientID, key string) (json.RawMessage, error)
	Save(ctx context.Context, patientID, key string, value json.RawMessage) error
	Delete(ctx context.Context, patientID, key string) error
}

// LoadJSON reads the named record into dst. A missing record, an unavailable
// store, or an undecodable payload leaves dst untouched so the caller's
// default value survives; the error is returned for diagnostics only.
func LoadJSON(ctx context.Context, s Store, patientID, key string, dst interface{}) error {
	raw, err := s.Load(ctx, patientID, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode record %s: %w", key, err)
	}
	return nil
}

// SaveJSON marshals value and saves it under the named record.
func SaveJSON(ctx context.Context, s Store, patientID, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", key, err)
	}
	return s.Save(ctx, patientID, key, raw)
}

// Append treats the named record as a JSON array and appends item to it,
// creating the array if the record does not exist yet. Read-modify-write; not
// safe against concurrent writers of the same key.
func Append(ctx context.Context, s Store, patientID, key string, item interface{}) error {
	var arr []json.RawMessage
	raw, err := s.Load(ctx, patientID, key)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &arr); err != nil {
			return fmt.Errorf("decode record %s: %w", key, err)
		}
	case errors.Is(err, ErrNotFound):
		// start a fresh array
	default:
		return err
	}

	encoded, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item for %s: %w", key, err)
	}
	arr = append(arr, encoded)

	out, err := json.Marshal(arr)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", key, err)
	}
	return s.Save(ctx, patientID, key, out)
}
