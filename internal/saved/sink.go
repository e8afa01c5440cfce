package saved

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Sink is durable storage for the local saved state
type Sink interface {
	Load(ctx context.Context) (State, error)
	Store(ctx context.Context, state State) error
}

// MemorySink keeps state in process memory. Useful for tests and when no Redis is configured.
type MemorySink struct {
	mu    sync.Mutex
	state State
}

// NewMemorySink creates an empty in-memory sink
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Load returns a copy of the stored state
func (m *MemorySink) Load(_ context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyState(m.state), nil
}

// Store replaces the stored state
func (m *MemorySink) Store(_ context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = copyState(state)
	return nil
}

func copyState(s State) State {
	out := State{
		Entries: make(map[string]Entry, len(s.Entries)),
		Pending: append([]Op(nil), s.Pending...),
	}
	for id, e := range s.Entries {
		out.Entries[id] = e
	}
	return out
}

// RedisSink stores the state as one JSON document per user.
// Keys are namespaced as "<prefix>saved:<user>".
type RedisSink struct {
	client *redis.Client
	key    string
}

// NewRedisSink connects to redis and verifies the connection
func NewRedisSink(ctx context.Context, address, password, prefix, userID string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisSinkFromClient(client, prefix, userID), nil
}

// NewRedisSinkFromClient wraps an existing client
func NewRedisSinkFromClient(client *redis.Client, prefix, userID string) *RedisSink {
	return &RedisSink{
		client: client,
		key:    fmt.Sprintf("%ssaved:%s", prefix, userID),
	}
}

// Key returns the redis key holding the state
func (r *RedisSink) Key() string {
	return r.key
}

// Load reads the state; a missing key is an empty state
func (r *RedisSink) Load(ctx context.Context) (State, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{Entries: make(map[string]Entry)}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to read saved state: %w", err)
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, fmt.Errorf("failed to decode saved state: %w", err)
	}
	return state, nil
}

// Store writes the state without expiry
func (r *RedisSink) Store(ctx context.Context, state State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode saved state: %w", err)
	}
	if err := r.client.Set(ctx, r.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to write saved state: %w", err)
	}
	return nil
}

// HealthCheck verifies Redis connectivity
func (r *RedisSink) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisSink) Close() error {
	return r.client.Close()
}
