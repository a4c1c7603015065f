// internal/pkg/session/session.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	xerrors "tahseel-service/internal/pkg/errors"
)

const keyPrefix = "session:"

// Data is the session record kept in Redis, keyed by JTI.
type Data struct {
	JTI            string    `json:"jti"`
	IdentityID     int64     `json:"identity_id"`
	CompanyID      int64     `json:"company_id"`
	Email          string    `json:"email"`
	Roles          []string  `json:"roles"`
	IPAddress      string    `json:"ip_address"`
	UserAgent      string    `json:"user_agent"`
	LoginAt        time.Time `json:"login_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Manager stores active sessions in Redis with a TTL matching the token.
type Manager struct {
	rdb *redis.Client
}

func NewManager(rdb *redis.Client) *Manager {
	return &Manager{rdb: rdb}
}

func (m *Manager) Create(ctx context.Context, data *Data) error {
	ttl := time.Until(data.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := m.rdb.Set(ctx, keyPrefix+data.JTI, b, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get returns the session for a JTI, or ErrSessionExpired if it is gone.
func (m *Manager) Get(ctx context.Context, jti string) (*Data, error) {
	b, err := m.rdb.Get(ctx, keyPrefix+jti).Bytes()
	if err == redis.Nil {
		return nil, xerrors.ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var data Data
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &data, nil
}

// Touch refreshes the last-activity timestamp without extending the TTL.
func (m *Manager) Touch(ctx context.Context, jti string) error {
	data, err := m.Get(ctx, jti)
	if err != nil {
		return err
	}
	data.LastActivityAt = time.Now()

	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return m.rdb.Set(ctx, keyPrefix+jti, b, redis.KeepTTL).Err()
}

func (m *Manager) Revoke(ctx context.Context, jti string) error {
	return m.rdb.Del(ctx, keyPrefix+jti).Err()
}
