// Package session keeps the locally cached session (token, phone, address,
// profile) and implements restore-or-start entry into the chat.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"go-chat-commerce/chat-commerce/types"
)

// Store persists the cached session per phone number. Load returns nil, nil when nothing is cached.
type Store interface {
	Load(ctx context.Context, phone string) (*types.Session, error)
	Save(ctx context.Context, sess types.Session) error
	SaveAddress(ctx context.Context, phone string, addr types.Address) error
	Address(ctx context.Context, phone string) (*types.Address, error)
	Clear(ctx context.Context, phone string) error
}

// RedisStore implements Store on Redis, one JSON document per phone.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects and pings Redis
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// NewRedisStore wraps client. A zero ttl keeps entries until Clear.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(phone string) string {
	return fmt.Sprintf("chat:session:%s", phone)
}

func (s *RedisStore) Load(ctx context.Context, phone string) (*types.Session, error) {
	val, err := s.client.Get(ctx, sessionKey(phone)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}

	var sess types.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session from redis: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess types.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.Phone), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session in redis: %w", err)
	}
	return nil
}

func (s *RedisStore) SaveAddress(ctx context.Context, phone string, addr types.Address) error {
	sess, err := s.Load(ctx, phone)
	if err != nil {
		return err
	}
	if sess == nil {
		sess = &types.Session{Phone: phone}
	}
	sess.ShippingAddress = &addr
	return s.Save(ctx, *sess)
}

func (s *RedisStore) Address(ctx context.Context, phone string) (*types.Address, error) {
	sess, err := s.Load(ctx, phone)
	if err != nil || sess == nil {
		return nil, err
	}
	return sess.ShippingAddress, nil
}

func (s *RedisStore) Clear(ctx context.Context, phone string) error {
	if err := s.client.Del(ctx, sessionKey(phone)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}

// MemoryStore implements Store in process memory
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]types.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]types.Session)}
}

func (m *MemoryStore) Load(_ context.Context, phone string) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[phone]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (m *MemoryStore) Save(_ context.Context, sess types.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.Phone] = sess
	return nil
}

func (m *MemoryStore) SaveAddress(_ context.Context, phone string, addr types.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.sessions[phone]
	sess.Phone = phone
	sess.ShippingAddress = &addr
	m.sessions[phone] = sess
	return nil
}

func (m *MemoryStore) Address(_ context.Context, phone string) (*types.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[phone]
	if !ok {
		return nil, nil
	}
	return sess.ShippingAddress, nil
}

func (m *MemoryStore) Clear(_ context.Context, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, phone)
	return nil
}
