package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	redisadapter "poseidon/internal/adapters/redis"
	"poseidon/pkg/errors"
)

// ErrKeyMissing is the façade's missing-key sentinel.
var ErrKeyMissing = errors.ErrNotFound

// KV is the durable key-value surface the façade runs on. The Redis adapter
// satisfies it; Memory is the fallback when the store is unreachable.
type KV interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error

	ListPush(ctx context.Context, key string, value interface{}) error
	ListTrim(ctx context.Context, key string, n int64) error
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	SetAdd(ctx context.Context, key string, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	SetRemove(ctx context.Context, key string, members ...string) error

	HashSet(ctx context.Context, key, field string, value interface{}) error
	HashGet(ctx context.Context, key, field string, dest interface{}) error
	HashGetAll(ctx context.Context, key string) (map[string]string, error)
	HashDelete(ctx context.Context, key string, fields ...string) error

	Health(ctx context.Context) error
}

// redisKV adapts the Redis client's missing-key error to the façade's
// sentinel.
type redisKV struct {
	*redisadapter.Client
}

// NewRedisKV wraps the Redis adapter as the façade's backing store.
func NewRedisKV(client *redisadapter.Client) KV {
	return &redisKV{Client: client}
}

func (r *redisKV) Get(ctx context.Context, key string, dest interface{}) error {
	err := r.Client.Get(ctx, key, dest)
	if err != nil && redisadapter.IsNil(err) {
		return errors.Wrapf(ErrKeyMissing, "key %s", key)
	}
	return err
}

func (r *redisKV) HashGet(ctx context.Context, key, field string, dest interface{}) error {
	err := r.Client.HashGet(ctx, key, field, dest)
	if err != nil && redisadapter.IsNil(err) {
		return errors.Wrapf(ErrKeyMissing, "key %s field %s", key, field)
	}
	return err
}

// Memory is the in-process fallback store. Writes survive only for the
// process lifetime; it exists so the engine can degrade rather than refuse
// to start when the store is down.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
	lists  map[string][][]byte
	sets   map[string]map[string]bool
	hashes map[string]map[string][]byte
}

// NewMemory creates the fallback store.
func NewMemory() *Memory {
	return &Memory{
		values: make(map[string][]byte),
		lists:  make(map[string][][]byte),
		sets:   make(map[string]map[string]bool),
		hashes: make(map[string]map[string][]byte),
	}
}

func (m *Memory) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = data
	return nil
}

func (m *Memory) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.RLock()
	data, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return errors.Wrapf(ErrKeyMissing, "key %s", key)
	}
	return json.Unmarshal(data, dest)
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
		delete(m.lists, key)
		delete(m.sets, key)
		delete(m.hashes, key)
	}
	return nil
}

func (m *Memory) ListPush(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = append([][]byte{data}, m.lists[key]...)
	return nil
}

func (m *Memory) ListTrim(_ context.Context, key string, n int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if list, ok := m.lists[key]; ok && int64(len(list)) > n {
		m.lists[key] = list[:n]
	}
	return nil
}

func (m *Memory) ListRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.lists[key]
	n := int64(len(list))
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return nil, nil
	}

	out := make([]string, 0, stop-start+1)
	for _, item := range list[start : stop+1] {
		out = append(out, string(item))
	}
	return out, nil
}

func (m *Memory) SetAdd(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets[key] == nil {
		m.sets[key] = make(map[string]bool)
	}
	for _, member := range members {
		m.sets[key][member] = true
	}
	return nil
}

func (m *Memory) SetMembers(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return out, nil
}

func (m *Memory) SetRemove(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range members {
		delete(m.sets[key], member)
	}
	return nil
}

func (m *Memory) HashSet(_ context.Context, key, field string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hashes[key] == nil {
		m.hashes[key] = make(map[string][]byte)
	}
	m.hashes[key][field] = data
	return nil
}

func (m *Memory) HashGet(_ context.Context, key, field string, dest interface{}) error {
	m.mu.RLock()
	data, ok := m.hashes[key][field]
	m.mu.RUnlock()
	if !ok {
		return errors.Wrapf(ErrKeyMissing, "key %s field %s", key, field)
	}
	return json.Unmarshal(data, dest)
}

func (m *Memory) HashGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.hashes[key]))
	for field, data := range m.hashes[key] {
		out[field] = string(data)
	}
	return out, nil
}

func (m *Memory) HashDelete(_ context.Context, key string, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, field := range fields {
		delete(m.hashes[key], field)
	}
	return nil
}

func (m *Memory) Health(context.Context) error { return nil }
