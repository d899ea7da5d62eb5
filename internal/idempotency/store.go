package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrNotFound     = errors.New("idempotency key not found")
	ErrHashMismatch = errors.New("idempotency key body mismatch")
	ErrInProgress   = errors.New("idempotency key in progress")
)

const redisKeyPrefix = "idempotency"

const (
	statusInProgress = "in_progress"
	statusCompleted  = "completed"
)

// Record is a stored mutation reply, replayed on retries of the same
// Idempotency-Key. Receipt and payment upload batches rely on this to stay
// atomic per request under client retry.
type Record struct {
	Key         string
	RequestHash string
	Status      int
	Body        []byte
	ContentType string
	ServedBy    string
}

// Store is redis-first with a postgres fallback for durability.
type Store struct {
	redis redis.Cmdable
	db    *pgxpool.Pool
	ttl   time.Duration
}

func NewStore(redis redis.Cmdable, db *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{redis: redis, db: db, ttl: ttl}
}

type cacheEnvelope struct {
	Key         string `json:"key"`
	Hash        string `json:"hash"`
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	ContentType string `json:"content_type"`
}

// Lookup returns the stored reply for key, ErrNotFound when the key is new,
// ErrInProgress while another request holds it, and ErrHashMismatch when the
// key is reused with a different request body.
func (s *Store) Lookup(ctx context.Context, key, requestHash string) (*Record, error) {
	if s.redis != nil {
		val, err := s.redis.Get(ctx, redisKey(key)).Result()
		if err == nil {
			var env cacheEnvelope
			if json.Unmarshal([]byte(val), &env) == nil {
				if env.Hash != requestHash {
					return nil, ErrHashMismatch
				}
				return &Record{
					Key:         env.Key,
					RequestHash: env.Hash,
					Status:      env.Status,
					Body:        env.Body,
					ContentType: env.ContentType,
					ServedBy:    "redis",
				}, nil
			}
		} else if err != redis.Nil {
			zap.L().Warn("redis idempotency lookup failed", zap.Error(err))
		}
	}

	var rec Record
	var state string
	err := s.db.QueryRow(ctx,
		`SELECT idempotency_key, request_hash, response_status, response_body, content_type, state
		 FROM idempotency_keys WHERE idempotency_key = $1`, key,
	).Scan(&rec.Key, &rec.RequestHash, &rec.Status, &rec.Body, &rec.ContentType, &state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}

	if rec.RequestHash != requestHash {
		return nil, ErrHashMismatch
	}
	if state != statusCompleted {
		return nil, ErrInProgress
	}
	rec.ServedBy = "postgres"
	return &rec, nil
}

// Reserve claims the key for the current request. Returns false when a
// concurrent request already holds it.
func (s *Store) Reserve(ctx context.Context, key, requestHash, method, path string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO idempotency_keys (idempotency_key, request_hash, request_method, request_path, response_status, response_body, content_type, state, created_at)
		 VALUES ($1, $2, $3, $4, 0, ''::bytea, '', $5, NOW())
		 ON CONFLICT (idempotency_key) DO NOTHING`,
		key, requestHash, method, path, statusInProgress)
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Complete stores the reply and releases waiters.
func (s *Store) Complete(ctx context.Context, key, requestHash string, status int, body []byte, contentType string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE idempotency_keys SET response_status = $1, response_body = $2, content_type = $3, state = $4
		 WHERE idempotency_key = $5`,
		status, body, contentType, statusCompleted, key)
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}

	if s.redis != nil {
		env := cacheEnvelope{Key: key, Hash: requestHash, Status: status, Body: body, ContentType: contentType}
		payload, err := json.Marshal(env)
		if err == nil {
			if err := s.redis.Set(ctx, redisKey(key), payload, s.ttl).Err(); err != nil {
				zap.L().Warn("redis idempotency store failed", zap.Error(err))
			}
		}
	}
	return nil
}

// WaitForCompletion polls until the in-progress holder finishes or the
// context deadline passes.
func (s *Store) WaitForCompletion(ctx context.Context, key, requestHash string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		rec, err := s.Lookup(ctx, key, requestHash)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrInProgress) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ErrInProgress
		case <-ticker.C:
		}
	}
}

func redisKey(key string) string {
	return redisKeyPrefix + ":" + key
}
