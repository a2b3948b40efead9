// Package domain defines the persistence models for characters, chat records
// and chat messages. These types are mapped with GORM and serialized as JSON
// documents by the Redis-backed store, so they form the core data layer of
// the service regardless of backend.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Character is a named profile with a personality description and hobbies.
// Characters are immutable once created; Name is the unique lookup key.
//
// Fields:
//   - ID: stable UUID assigned on insert (char(36)).
//   - Name: NFC-normalized display name, unique across the collection.
//   - Personality: free-form description (at least 10 runes).
//   - Hobbies: ordered, non-empty list stored as a JSON column.
//   - CreatedAt: insert timestamp (UTC).
type Character struct {
	ID          string                      `json:"id"          gorm:"type:char(36);primaryKey"`
	Name        string                      `json:"name"        gorm:"type:varchar(100);not null;uniqueIndex:ux_characters_name"`
	Personality string                      `json:"personality" gorm:"type:text;not null"`
	Hobbies     datatypes.JSONSlice[string] `json:"hobbies"     gorm:"not null"`
	CreatedAt   time.Time                   `json:"created_at"`
}

// TableName returns the database table name for Character.
func (Character) TableName() string { return "characters" }

// ChatRecord is the append-only conversation log shared by one unordered pair
// of characters. It is created on the first exchange between the pair.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - PairKey: canonical key of the pair (see PairKeyFor); unique.
//   - CharacterA / CharacterB: the pair's names in canonical order.
//   - CreatedAt / UpdatedAt: managed by GORM; UpdatedAt moves on every append.
type ChatRecord struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	PairKey    string    `json:"-"           gorm:"type:varchar(255);not null;uniqueIndex:ux_chats_pair"`
	CharacterA string    `json:"character_a" gorm:"type:varchar(100);not null"`
	CharacterB string    `json:"character_b" gorm:"type:varchar(100);not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for ChatRecord.
func (ChatRecord) TableName() string { return "chats" }

// Message is a single generated turn appended to a ChatRecord.
//
// Fields:
//   - ID: monotonically increasing sequence; defines append order.
//   - ChatID: owning ChatRecord (indexed together with Timestamp).
//   - Sender: name of the character the reply is attributed to.
//   - Text: generated reply text.
//   - Timestamp: creation instant (UTC).
//   - Chat: FK association, cascade-deleted with its record.
type Message struct {
	ID        uint64    `json:"id"        gorm:"primaryKey;autoIncrement"`
	ChatID    string    `json:"-"         gorm:"type:char(36);not null;index:idx_chat_msgs,priority:1"`
	Sender    string    `json:"sender"    gorm:"type:varchar(100);not null"`
	Text      string    `json:"text"      gorm:"type:text;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index:idx_chat_msgs,priority:2"`

	Chat ChatRecord `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "chat_messages" }
