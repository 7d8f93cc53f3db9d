package repository

import (
	"context"
	"database/sql"
	"errors"
	"rekubricks/models"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// KVStore is a string key-value store. Cart snapshots are its only values.
type KVStore interface {
	Get(key string) (val string, exists bool, err error)
	Set(key string, val string) (err error)
	Delete(key string) (err error)
}

type RedisStore struct {
	rdb *redis.Client
	ctx context.Context
	ttl time.Duration
	log *zap.Logger
}

func NewRedisStore(redis_conn *redis.Client, _ctx context.Context, ttl time.Duration, logger *zap.Logger) (*RedisStore, error) {
	if redis_conn == nil {
		return nil, errors.New("conn must be non-nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	err := redis_conn.Ping(_ctx).Err()
	if err != nil {
		return nil, err
	}
	return &RedisStore{
		rdb: redis_conn,
		ctx: _ctx,
		ttl: ttl,
		log: logger,
	}, nil
}

func (s *RedisStore) Get(key string) (val string, exists bool, err error) {
	val, err = s.rdb.Get(s.ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			err = nil
			return
		}
		s.log.Error("redis get", zap.String("key", key), zap.Error(err))
		err = models.ErrServerError
		return
	}
	exists = true
	return
}

// Set overwrites the value and restarts its expiry.
func (s *RedisStore) Set(key string, val string) (err error) {
	err = s.rdb.Set(s.ctx, key, val, s.ttl).Err()
	if err != nil {
		s.log.Error("redis set", zap.String("key", key), zap.Error(err))
		err = models.ErrServerError
	}
	return
}

func (s *RedisStore) Delete(key string) (err error) {
	err = s.rdb.Del(s.ctx, key).Err()
	if err != nil {
		s.log.Error("redis del", zap.String("key", key), zap.Error(err))
		err = models.ErrServerError
	}
	return
}

type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
}

func NewSQLiteStore(conn *sql.DB, logger *zap.Logger) (*SQLiteStore, error) {
	if conn == nil {
		return nil, errors.New("conn must be non-nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	err := conn.Ping()
	if err != nil {
		return nil, err
	}
	_, err = conn.Exec("CREATE TABLE IF NOT EXISTS kv (Key TEXT PRIMARY KEY, Value TEXT NOT NULL, UpdatedAt TIMESTAMP NOT NULL)")
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{
		db:  conn,
		log: logger,
	}, nil
}

func (s *SQLiteStore) Get(key string) (val string, exists bool, err error) {
	err = s.db.QueryRow("SELECT Value FROM kv WHERE Key = ?", key).Scan(&val)
	if err != nil {
		if err == sql.ErrNoRows {
			err = nil
		} else {
			s.log.Error("sqlite get", zap.String("key", key), zap.Error(err))
			err = models.ErrServerError
		}
		return
	}
	exists = true
	return
}

func (s *SQLiteStore) Set(key string, val string) (err error) {
	_, err = s.db.Exec("INSERT INTO kv (Key, Value, UpdatedAt) VALUES (?, ?, ?) ON CONFLICT(Key) DO UPDATE SET Value = excluded.Value, UpdatedAt = excluded.UpdatedAt",
		key, val, time.Now().UTC())
	if err != nil {
		s.log.Error("sqlite set", zap.String("key", key), zap.Error(err))
		err = models.ErrServerError
	}
	return
}

func (s *SQLiteStore) Delete(key string) (err error) {
	_, err = s.db.Exec("DELETE FROM kv WHERE Key = ?", key)
	if err != nil {
		s.log.Error("sqlite delete", zap.String("key", key), zap.Error(err))
		err = models.ErrServerError
	}
	return
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[key]
	return val, ok, nil
}

func (m *MemoryStore) Set(key string, val string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = val
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
