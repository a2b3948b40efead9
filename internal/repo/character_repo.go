// Package repo – character persistence.
//
// Functions here are thin: no validation and no business rules, only CRUD
// against the characters table.
//
// Error semantics:
//   - A missing character yields ErrNotFound.
//   - An insert that collides with the unique name index yields ErrDuplicate,
//     which the service layer turns into a conflict.
//   - Other DB errors are returned unchanged.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/character-chat-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound so callers can use either sentinel.
var ErrNotFound = gorm.ErrRecordNotFound

// FindCharacterByName fetches a character by its exact (normalized) name.
func FindCharacterByName(ctx context.Context, db *gorm.DB, name string) (*domain.Character, error) {
	var c domain.Character
	err := db.WithContext(ctx).
		Where("name = ?", name).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCharacter inserts c, assigning a UUID and UTC creation time when they
// are unset. It returns the generated id.
func CreateCharacter(ctx context.Context, db *gorm.DB, c *domain.Character) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", err
	}
	return c.ID, nil
}

// SampleCharacter returns the oldest stored character, or ErrNotFound when
// the collection is empty.
func SampleCharacter(ctx context.Context, db *gorm.DB) (*domain.Character, error) {
	var c domain.Character
	err := db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
