package domain

import "time"

// Idempotency records which message answered a chat exchange submitted with a
// given Idempotency-Key for a pair. A record is first claimed with no message
// and answered once the reply is stored. Replays inside the validity window
// return the recorded message instead of generating and appending a new one.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	PairKey   string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_pair_key,priority:1"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_pair_key,priority:2"`
	MessageID uint64    `gorm:"type:INTEGER NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:TIMESTAMP NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:TIMESTAMP NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
