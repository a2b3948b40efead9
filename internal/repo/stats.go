// Package repo – aggregate queries used for conditional responses (ETag
// generation) on the chat history endpoint.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/character-chat-backend/internal/domain"
)

// MessagesStats returns the number of messages stored for key and the
// timestamp of the most recent one. When the pair has no messages the count
// is 0 and lastAt is nil.
func MessagesStats(ctx context.Context, db *gorm.DB, key domain.PairKey) (count int64, lastAt *time.Time, err error) {
	if count, err = CountMessages(ctx, db, key); err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest timestamp (avoid MAX() -> TEXT in SQLite)
	var row struct {
		Timestamp time.Time
	}
	err = messagesFor(ctx, db, key).
		Select("chat_messages.timestamp").
		Order("chat_messages.id DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return 0, nil, err
	}
	return count, &row.Timestamp, nil
}
