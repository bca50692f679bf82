package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis stores records as plain string values under "portal:<patient>:<key>".
// Records are durable (no TTL); Redis persistence configuration is the
// operator's concern.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func recordKey(patientID, key string) string {
	return fmt.Sprintf("portal:%s:%s", patientID, key)
}

func (s *Redis) Load(ctx context.Context, patientID, key string) (json.RawMessage, error) {
	data, err := s.client.Get(ctx, recordKey(patientID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrStoreUnavailable, key, err)
	}
	return data, nil
}

func (s *Redis) Save(ctx context.Context, patientID, key string, value json.RawMessage) error {
	if err := s.client.Set(ctx, recordKey(patientID, key), string(value), 0).Err(); err != nil {
		return fmt.Errorf("%w: save %s: %v", ErrStoreUnavailable, key, err)
	}
	return nil
}

func (s *Redis) Delete(ctx context.Context, patientID, key string) error {
	if err := s.client.Del(ctx, recordKey(patientID, key)).Err(); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrStoreUnavailable, key, err)
	}
	return nil
}
