package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Skotchmaster/shopeasy/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Storage is durable key/value storage for one browser session.
// Get returns "" for a missing key.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Backend opens the Storage of the browser identified by sid.
type Backend interface {
	Name() string
	Storage(c echo.Context, sid string) Storage
}

// CookieBackend keeps every key in its own HttpOnly cookie.
type CookieBackend struct {
	Secure bool
	TTL    time.Duration
}

func (b CookieBackend) Name() string { return "cookie" }

func (b CookieBackend) Storage(c echo.Context, _ string) Storage {
	return &cookieStorage{c: c, backend: b, pending: map[string]*string{}}
}

type cookieStorage struct {
	c       echo.Context
	backend CookieBackend

	mu      sync.Mutex
	pending map[string]*string
}

func (s *cookieStorage) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.pending[key]; ok {
		if v == nil {
			return "", nil
		}
		return *v, nil
	}
	ck, err := s.c.Cookie(key)
	if err != nil {
		return "", nil
	}
	return ck.Value, nil
}

func (s *cookieStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = &value
	s.c.SetCookie(CreateCookie(key, value, "/", time.Now().Add(s.backend.TTL), s.backend.Secure))
	return nil
}

func (s *cookieStorage) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.pending[key] = nil
		s.c.SetCookie(DeleteCookie(key, "/", s.backend.Secure))
	}
	return nil
}

// RedisBackend stores a session as one hash per sid with a sliding TTL.
type RedisBackend struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisBackend(ctx context.Context, redisURL string, ttl time.Duration) (*RedisBackend, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisBackend{Client: client, TTL: ttl}, nil
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Storage(_ echo.Context, sid string) Storage {
	return &redisStorage{client: b.Client, key: redisKey(sid), ttl: b.TTL}
}

func redisKey(sid string) string {
	return "storefront:session:" + sid
}

type redisStorage struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func (s *redisStorage) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis hget %s: %w", key, err)
	}
	return v, nil
}

func (s *redisStorage) Set(ctx context.Context, key, value string) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key, key, value)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hset %s: %w", key, err)
	}
	return nil
}

func (s *redisStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, s.key, keys...).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}

// SQLBackend stores one row per (sid, key) through gorm.
type SQLBackend struct {
	DB  *gorm.DB
	TTL time.Duration
}

func NewSQLBackend(db *gorm.DB, ttl time.Duration) (*SQLBackend, error) {
	if err := db.AutoMigrate(&models.SessionEntry{}); err != nil {
		return nil, fmt.Errorf("migrate session entries: %w", err)
	}
	return &SQLBackend{DB: db, TTL: ttl}, nil
}

func (b *SQLBackend) Name() string { return "sql" }

func (b *SQLBackend) Storage(_ echo.Context, sid string) Storage {
	return &sqlStorage{db: b.DB, sid: sid, ttl: b.TTL}
}

// PurgeExpired deletes rows whose TTL has passed.
func (b *SQLBackend) PurgeExpired(ctx context.Context) (int64, error) {
	res := b.DB.WithContext(ctx).Where("expires_at < ?", time.Now().UTC()).Delete(&models.SessionEntry{})
	return res.RowsAffected, res.Error
}

type sqlStorage struct {
	db  *gorm.DB
	sid string
	ttl time.Duration
}

func (s *sqlStorage) Get(ctx context.Context, key string) (string, error) {
	var e models.SessionEntry
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND entry_key = ? AND expires_at > ?", s.sid, key, time.Now().UTC()).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load session key %s: %w", key, err)
	}
	return e.Value, nil
}

func (s *sqlStorage) Set(ctx context.Context, key, value string) error {
	e := models.SessionEntry{
		SessionID: s.sid,
		Key:       key,
		Value:     value,
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("store session key %s: %w", key, err)
	}
	return nil
}

func (s *sqlStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND entry_key IN ?", s.sid, keys).
		Delete(&models.SessionEntry{}).Error
	if err != nil {
		return fmt.Errorf("delete session keys: %w", err)
	}
	return nil
}

// MemoryBackend keeps sessions in process memory.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: map[string]map[string]string{}}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Storage(_ echo.Context, sid string) Storage {
	return &memoryStorage{b: b, sid: sid}
}

type memoryStorage struct {
	b   *MemoryBackend
	sid string
}

func (s *memoryStorage) Get(_ context.Context, key string) (string, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	return s.b.data[s.sid][key], nil
}

func (s *memoryStorage) Set(_ context.Context, key, value string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	m, ok := s.b.data[s.sid]
	if !ok {
		m = map[string]string{}
		s.b.data[s.sid] = m
	}
	m[key] = value
	return nil
}

func (s *memoryStorage) Delete(_ context.Context, keys ...string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	for _, k := range keys {
		delete(s.b.data[s.sid], k)
	}
	return nil
}

// CreateCookie builds an HttpOnly cookie expiring at exp.
func CreateCookie(name, value, path string, exp time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func DeleteCookie(name, path string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
