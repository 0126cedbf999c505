// Package snapshot keeps per-cycle count snapshots so the monitor and
// dashboard can render trend indicators across invocations.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/wen-tracker-go/internal/config"
	"github.com/wen-tracker-go/internal/models"
)

// ConversationKey derives a stable snapshot key from the conversation URL
// without leaking the URL itself into storage keys
func ConversationKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:6])
}

// Store defines snapshot operations keyed by conversation
type Store interface {
	Save(ctx context.Context, conversation string, snap *models.Snapshot) error
	Latest(ctx context.Context, conversation string) (*models.Snapshot, error)
	History(ctx context.Context, conversation string, limit int) ([]models.Snapshot, error)
}

// Manager selects a snapshot backend
type Manager struct {
	store  Store
	logger *logrus.Logger
}

// NewManager creates a snapshot manager for the configured backend
func NewManager(cfg *config.Config, logger *logrus.Logger) (*Manager, error) {
	var store Store

	switch cfg.Snapshots.Backend {
	case "redis":
		redisStore, err := NewRedisStore(cfg, logger)
		if err != nil {
			return nil, err
		}
		store = redisStore
	case "memory":
		store = NewMemoryStore(cfg)
	default:
		return nil, fmt.Errorf("unsupported snapshot backend: %s", cfg.Snapshots.Backend)
	}

	return &Manager{store: store, logger: logger}, nil
}

func (m *Manager) Save(ctx context.Context, conversation string, snap *models.Snapshot) error {
	return m.store.Save(ctx, conversation, snap)
}

func (m *Manager) Latest(ctx context.Context, conversation string) (*models.Snapshot, error) {
	return m.store.Latest(ctx, conversation)
}

func (m *Manager) History(ctx context.Context, conversation string, limit int) ([]models.Snapshot, error) {
	return m.store.History(ctx, conversation, limit)
}

// RedisStore keeps snapshot history in a capped redis list so separate
// dashboard instances share trend state
type RedisStore struct {
	client     *redis.Client
	maxHistory int
	logger     *logrus.Logger
}

func NewRedisStore(cfg *config.Config, logger *logrus.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Snapshots.Redis.Addr,
		Password: cfg.Snapshots.Redis.Password,
		DB:       cfg.Snapshots.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{
		client:     client,
		maxHistory: cfg.Snapshots.MaxHistory,
		logger:     logger,
	}, nil
}

func (r *RedisStore) key(conversation string) string {
	return fmt.Sprintf("wen:snapshots:%s", conversation)
}

func (r *RedisStore) Save(ctx context.Context, conversation string, snap *models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	key := r.key(conversation)
	if err := r.client.LPush(ctx, key, data).Err(); err != nil {
		return err
	}
	return r.client.LTrim(ctx, key, 0, int64(r.maxHistory-1)).Err()
}

func (r *RedisStore) Latest(ctx context.Context, conversation string) (*models.Snapshot, error) {
	data, err := r.client.LIndex(ctx, r.key(conversation), 0).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap models.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *RedisStore) History(ctx context.Context, conversation string, limit int) ([]models.Snapshot, error) {
	if limit <= 0 || limit > r.maxHistory {
		limit = r.maxHistory
	}

	rows, err := r.client.LRange(ctx, r.key(conversation), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	snaps := make([]models.Snapshot, 0, len(rows))
	for _, row := range rows {
		var snap models.Snapshot
		if err := json.Unmarshal([]byte(row), &snap); err != nil {
			r.logger.WithError(err).Warn("Skipping malformed snapshot entry")
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// MemoryStore keeps snapshot history in process memory
type MemoryStore struct {
	histories  *cache.Cache
	maxHistory int
}

func NewMemoryStore(cfg *config.Config) *MemoryStore {
	return &MemoryStore{
		histories:  cache.New(cache.NoExpiration, cache.NoExpiration),
		maxHistory: cfg.Snapshots.MaxHistory,
	}
}

func (m *MemoryStore) Save(ctx context.Context, conversation string, snap *models.Snapshot) error {
	var history []models.Snapshot
	if val, found := m.histories.Get(conversation); found {
		history = val.([]models.Snapshot)
	}

	history = append([]models.Snapshot{*snap}, history...)
	if len(history) > m.maxHistory {
		history = history[:m.maxHistory]
	}

	m.histories.Set(conversation, history, cache.NoExpiration)
	return nil
}

func (m *MemoryStore) Latest(ctx context.Context, conversation string) (*models.Snapshot, error) {
	val, found := m.histories.Get(conversation)
	if !found {
		return nil, nil
	}
	history := val.([]models.Snapshot)
	if len(history) == 0 {
		return nil, nil
	}
	snap := history[0]
	return &snap, nil
}

func (m *MemoryStore) History(ctx context.Context, conversation string, limit int) ([]models.Snapshot, error) {
	val, found := m.histories.Get(conversation)
	if !found {
		return []models.Snapshot{}, nil
	}
	history := val.([]models.Snapshot)
	if limit > 0 && limit < len(history) {
		history = history[:limit]
	}
	out := make([]models.Snapshot, len(history))
	copy(out, history)
	return out, nil
}
