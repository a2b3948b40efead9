// Package repo – chat record persistence.
//
// A chat record is the append-only message log shared by an unordered pair
// of characters, addressed by its canonical domain.PairKey. Records are
// created lazily by the first append; there is no separate create step.
//
// Functions:
//
//   - UpsertChatRecord(tx, key, now) -> *domain.ChatRecord, error
//     Creates the record for key or bumps its UpdatedAt.
//
//   - AppendMessage(ctx, db, key, msg) -> error
//     Upserts the record and inserts msg in a single transaction.
//
//   - CountMessages(ctx, db, key) -> (int64, error)
//
//   - ListMessagesPage(ctx, db, key, offset, limit) -> []domain.Message, error
//     Messages in append order.
//
//   - GetMessage(ctx, db, id) -> *domain.Message, error
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/character-chat-backend/internal/domain"
)

// UpsertChatRecord inserts the chat record for key or, when one exists,
// updates its UpdatedAt to now. It returns the stored row. Concurrent callers
// for the same key converge on a single record through the unique pair index.
func UpsertChatRecord(tx *gorm.DB, key domain.PairKey, now time.Time) (*domain.ChatRecord, error) {
	a, b := key.Names()
	rec := &domain.ChatRecord{
		ID:         uuid.NewString(),
		PairKey:    string(key),
		CharacterA: a,
		CharacterB: b,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pair_key"}},
		DoUpdates: clause.Assignments(map[string]any{"updated_at": now}),
	}).Create(rec).Error
	if err != nil {
		return nil, err
	}

	// On conflict the generated ID above was discarded; read back the winner.
	var stored domain.ChatRecord
	if err := tx.Where("pair_key = ?", string(key)).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// AppendMessage appends msg to the chat record for key, creating the record
// if needed. The message ID and ChatID are assigned on success. A zero
// Timestamp is replaced with the current UTC time.
func AppendMessage(ctx context.Context, db *gorm.DB, key domain.PairKey, msg *domain.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := UpsertChatRecord(tx, key, msg.Timestamp)
		if err != nil {
			return err
		}
		msg.ChatID = rec.ID
		return tx.Omit("Chat").Create(msg).Error
	})
}

// messagesFor scopes a query to the messages of the chat record for key.
func messagesFor(ctx context.Context, db *gorm.DB, key domain.PairKey) *gorm.DB {
	return db.WithContext(ctx).
		Model(&domain.Message{}).
		Joins("JOIN chats ON chats.id = chat_messages.chat_id").
		Where("chats.pair_key = ?", string(key))
}

// CountMessages returns the number of messages stored for key. A pair that
// has never chatted has zero messages.
func CountMessages(ctx context.Context, db *gorm.DB, key domain.PairKey) (int64, error) {
	var total int64
	err := messagesFor(ctx, db, key).Count(&total).Error
	return total, err
}

// ListMessagesPage returns a page of messages for key in append order
// (ascending ID). Use CountMessages for pagination metadata.
func ListMessagesPage(ctx context.Context, db *gorm.DB, key domain.PairKey, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := messagesFor(ctx, db, key).
		Select("chat_messages.*").
		Order("chat_messages.id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetMessage fetches a single message by ID, or ErrNotFound.
func GetMessage(ctx context.Context, db *gorm.DB, id uint64) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
