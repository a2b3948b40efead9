// Package repo – idempotency records backing safe retries of POST /chat/.
//
// A record is claimed before the reply is generated (Status 202, no message)
// and completed once the reply is stored (Status 200). The unique
// (pair_key, key) index makes the claim the single point where concurrent
// retries of one key are serialized.
package repo

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/character-chat-backend/internal/domain"
)

var (
	// ErrDuplicate indicates a unique-constraint violation: a character name
	// that is already taken, or an idempotency key already claimed for a pair.
	ErrDuplicate = errors.New("duplicate")
	// ErrReplayPending is returned for a claimed key whose reply is not
	// stored yet.
	ErrReplayPending = errors.New("replay pending")
)

// Idempotency record states.
const (
	StatusClaimed  = http.StatusAccepted
	StatusAnswered = http.StatusOK
)

// GetIdempotency returns a non-expired record for (key, idemKey) or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, key domain.PairKey, idemKey string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(idemKey) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("pair_key = ? AND key = ? AND expires_at > ?", string(key), idemKey, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ClaimIdempotency reserves idemKey for the pair until now+lease. An expired
// record for the same key is replaced. A live one yields ErrDuplicate.
func ClaimIdempotency(ctx context.Context, db *gorm.DB, key domain.PairKey, idemKey string, now time.Time, lease time.Duration) (*domain.Idempotency, error) {
	err := db.WithContext(ctx).
		Where("pair_key = ? AND key = ? AND expires_at <= ?", string(key), idemKey, now).
		Delete(&domain.Idempotency{}).Error
	if err != nil {
		return nil, err
	}

	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		PairKey:   string(key),
		Key:       idemKey,
		Status:    StatusClaimed,
		CreatedAt: now,
		ExpiresAt: now.Add(lease),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// CompleteIdempotency attaches messageID to a claimed record and keeps it
// until now+ttl. ErrNotFound means the claim is gone.
func CompleteIdempotency(ctx context.Context, db *gorm.DB, key domain.PairKey, idemKey string, messageID uint64, now time.Time, ttl time.Duration) error {
	res := db.WithContext(ctx).
		Model(&domain.Idempotency{}).
		Where("pair_key = ? AND key = ? AND status = ?", string(key), idemKey, StatusClaimed).
		Updates(map[string]any{
			"message_id": messageID,
			"status":     StatusAnswered,
			"expires_at": now.Add(ttl),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReleaseIdempotency drops an unanswered claim so the key can be retried.
// Answered records are kept.
func ReleaseIdempotency(ctx context.Context, db *gorm.DB, key domain.PairKey, idemKey string) error {
	return db.WithContext(ctx).
		Where("pair_key = ? AND key = ? AND status = ?", string(key), idemKey, StatusClaimed).
		Delete(&domain.Idempotency{}).Error
}

// isUniqueViolation reports whether err is a unique-index violation.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations and
// pgx reports SQLSTATE 23505 in its message.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value") ||
		strings.Contains(low, "sqlstate 23505")
}
