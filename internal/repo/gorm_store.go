package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/character-chat-backend/internal/domain"
)

// GormStore adapts the package-level GORM functions to the store contract
// consumed by the service layer. It works unchanged on SQLite and Postgres.
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore wraps db.
func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{DB: db} }

func (s *GormStore) FindCharacter(ctx context.Context, name string) (*domain.Character, error) {
	return FindCharacterByName(ctx, s.DB, name)
}

func (s *GormStore) InsertCharacter(ctx context.Context, c *domain.Character) (string, error) {
	return CreateCharacter(ctx, s.DB, c)
}

func (s *GormStore) SampleCharacter(ctx context.Context) (*domain.Character, error) {
	return SampleCharacter(ctx, s.DB)
}

func (s *GormStore) AppendMessage(ctx context.Context, key domain.PairKey, msg *domain.Message) error {
	return AppendMessage(ctx, s.DB, key, msg)
}

func (s *GormStore) CountMessages(ctx context.Context, key domain.PairKey) (int64, error) {
	return CountMessages(ctx, s.DB, key)
}

func (s *GormStore) ListMessagesPage(ctx context.Context, key domain.PairKey, offset, limit int) ([]domain.Message, error) {
	return ListMessagesPage(ctx, s.DB, key, offset, limit)
}

func (s *GormStore) MessagesStats(ctx context.Context, key domain.PairKey) (int64, *time.Time, error) {
	return MessagesStats(ctx, s.DB, key)
}

// GetReplay returns the message recorded for an idempotent retry,
// ErrReplayPending while the key is claimed but unanswered, or ErrNotFound
// when the key is unknown or expired.
func (s *GormStore) GetReplay(ctx context.Context, key domain.PairKey, idemKey string, now time.Time) (*domain.Message, error) {
	rec, err := GetIdempotency(ctx, s.DB, key, idemKey, now)
	if err != nil {
		return nil, err
	}
	if rec.Status == StatusClaimed {
		return nil, ErrReplayPending
	}
	m, err := GetMessage(ctx, s.DB, rec.MessageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return m, err
}

func (s *GormStore) ClaimReplay(ctx context.Context, key domain.PairKey, idemKey string, now time.Time, lease time.Duration) error {
	_, err := ClaimIdempotency(ctx, s.DB, key, idemKey, now, lease)
	return err
}

func (s *GormStore) CompleteReplay(ctx context.Context, key domain.PairKey, idemKey string, msg *domain.Message, now time.Time, ttl time.Duration) error {
	return CompleteIdempotency(ctx, s.DB, key, idemKey, msg.ID, now, ttl)
}

func (s *GormStore) ReleaseReplay(ctx context.Context, key domain.PairKey, idemKey string) error {
	return ReleaseIdempotency(ctx, s.DB, key, idemKey)
}

// Ping verifies the database connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
