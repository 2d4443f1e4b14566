package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SearchEvent is an append-only audit row for the used-vehicle agent, mirroring
// what the player saw (created, listing found, purchased, cancelled, expired).
type SearchEvent struct {
	EventID   uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	SearchID  int64          `gorm:"column:search_id;not null;index" json:"search_id"`
	ListingID *int64         `gorm:"column:listing_id" json:"listing_id"`
	FarmID    int            `gorm:"column:farm_id;not null;index" json:"farm_id"`
	EventType string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	EventData datatypes.JSON `gorm:"column:event_data;type:jsonb" json:"event_data"`
	Day       int            `gorm:"column:day;not null;default:0" json:"day"`
	CreatedAt time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (SearchEvent) TableName() string {
	return "SearchEvents"
}

func (e *SearchEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}

const (
	SearchEventCreated   = "CREATED"
	SearchEventFound     = "LISTING_FOUND"
	SearchEventCompleted = "COMPLETED"
	SearchEventPurchased = "PURCHASED"
	SearchEventCancelled = "CANCELLED"
	SearchEventExpired   = "LISTING_EXPIRED"
	SearchEventRenewed   = "RENEWED"
)

// SaveEntry is one key/value row of a persisted save document.
type SaveEntry struct {
	Slot  string `gorm:"column:slot;primaryKey;type:varchar(64)" json:"slot"`
	Key   string `gorm:"column:key;primaryKey;type:varchar(255)" json:"key"`
	Kind  string `gorm:"column:kind;type:varchar(8);not null" json:"kind"`
	Value string `gorm:"column:value;not null" json:"value"`
}

func (SaveEntry) TableName() string {
	return "SaveEntries"
}
