package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	otperrors "stylo/internal/otp/errors"
	"stylo/pkg/model"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix       = "otp:challenge:"
	maxWatchRetries = 5
)

func challengeKey(token string) string {
	return keyPrefix + token
}

// RedisChallengeStore stores challenges as JSON. Keys live for retention,
// which must cover the longest session lifetime so the resend counter
// survives a challenge's own expiry.
type RedisChallengeStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisChallengeStore(client *redis.Client, retention time.Duration) *RedisChallengeStore {
	return &RedisChallengeStore{client: client, retention: retention}
}

func (s *RedisChallengeStore) Get(ctx context.Context, token string) (*model.OTPChallenge, error) {
	data, err := s.client.Get(ctx, challengeKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get otp challenge: %w", err)
	}
	return decode(data)
}

func decode(data []byte) (*model.OTPChallenge, error) {
	var ch model.OTPChallenge
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("failed to decode otp challenge: %w", err)
	}
	return &ch, nil
}

func (s *RedisChallengeStore) Mutate(ctx context.Context, token string, fn MutateFunc) error {
	key := challengeKey(token)

	txf := func(tx *redis.Tx) error {
		var current *model.OTPChallenge
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("failed to get otp challenge: %w", err)
		default:
			if current, err = decode(data); err != nil {
				return err
			}
		}

		next, op := fn(current)
		if op == OpKeep {
			return nil
		}

		var payload []byte
		if op == OpSave {
			if payload, err = json.Marshal(next); err != nil {
				return fmt.Errorf("failed to encode otp challenge: %w", err)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if op == OpDelete {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, payload, s.retention)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return otperrors.ErrContention
}

func (s *RedisChallengeStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, challengeKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete otp challenge: %w", err)
	}
	return nil
}
