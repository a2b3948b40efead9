package services

import (
	"context"
	"time"

	"github.com/tbourn/character-chat-backend/internal/domain"
)

// CharacterStore is the character half of the persistence gateway.
// Lookups of a missing name return repo.ErrNotFound; inserting a taken name
// returns repo.ErrDuplicate.
type CharacterStore interface {
	FindCharacter(ctx context.Context, name string) (*domain.Character, error)
	InsertCharacter(ctx context.Context, c *domain.Character) (string, error)
	SampleCharacter(ctx context.Context) (*domain.Character, error)
}

// ChatStore holds the append-only chat records keyed by pair.
type ChatStore interface {
	// AppendMessage creates the pair's record if absent and appends msg,
	// assigning its ID.
	AppendMessage(ctx context.Context, key domain.PairKey, msg *domain.Message) error
	CountMessages(ctx context.Context, key domain.PairKey) (int64, error)
	ListMessagesPage(ctx context.Context, key domain.PairKey, offset, limit int) ([]domain.Message, error)
	MessagesStats(ctx context.Context, key domain.PairKey) (int64, *time.Time, error)
}

// ReplayStore remembers which message answered an idempotent chat request.
// A key is claimed before the reply is generated, so concurrent requests
// with one key cannot both append.
type ReplayStore interface {
	// GetReplay returns the answering message, repo.ErrReplayPending while
	// the key is claimed, or repo.ErrNotFound.
	GetReplay(ctx context.Context, key domain.PairKey, idemKey string, now time.Time) (*domain.Message, error)
	// ClaimReplay reserves idemKey for lease; repo.ErrDuplicate when it is
	// already claimed or answered.
	ClaimReplay(ctx context.Context, key domain.PairKey, idemKey string, now time.Time, lease time.Duration) error
	// CompleteReplay records msg as the answer and keeps it for ttl.
	CompleteReplay(ctx context.Context, key domain.PairKey, idemKey string, msg *domain.Message, now time.Time, ttl time.Duration) error
	// ReleaseReplay drops an unanswered claim.
	ReleaseReplay(ctx context.Context, key domain.PairKey, idemKey string) error
}

// Store is the full persistence gateway opened once at startup.
type Store interface {
	CharacterStore
	ChatStore
	ReplayStore
	Ping(ctx context.Context) error
	Close() error
}

// Generator produces the reply for a chat exchange.
type Generator interface {
	Generate(ctx context.Context, c1, c2 domain.Character, conversation, feedback string) (string, error)
}
