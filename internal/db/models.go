package db

import (
	"time"

	"gorm.io/datatypes"
)

// Leaf is one scalar of the room tree, keyed by its slash-joined path.
type Leaf struct {
	Path      string         `gorm:"primaryKey;size:160"`
	Value     datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

// Event is an append-only audit record of room activity.
type Event struct {
	ID        uint           `gorm:"primaryKey"`
	RoomCode  string         `gorm:"size:12;index;not null"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
