package search

import (
	"context"
	"encoding/json"

	"usedplus-economy/internal/domain"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func (m *Manager) record(s *domain.Search, listingID *int64, eventType string, data map[string]any) {
	if m.events == nil {
		return
	}
	m.events.Record(domain.SearchEvent{
		SearchID:  s.ID,
		ListingID: listingID,
		FarmID:    s.FarmID,
		EventType: eventType,
		EventData: encodeData(data),
		Day:       m.clock.Day(),
	})
}

func (m *Manager) recordListing(l *domain.Listing, eventType string, data map[string]any) {
	if m.events == nil {
		return
	}
	id := l.ID
	m.events.Record(domain.SearchEvent{
		SearchID:  l.SearchID,
		ListingID: &id,
		FarmID:    l.FarmID,
		EventType: eventType,
		EventData: encodeData(data),
		Day:       m.clock.Day(),
	})
}

func encodeData(data map[string]any) datatypes.JSON {
	if len(data) == 0 {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// AuditLog stores search events in the SearchEvents table. Write failures
// are logged and never abort the operation being audited.
type AuditLog struct {
	DB *gorm.DB
}

func (a *AuditLog) Record(ev domain.SearchEvent) {
	if err := a.DB.Create(&ev).Error; err != nil {
		log.Error().Err(err).Int64("search_id", ev.SearchID).Str("event", ev.EventType).Msg("Failed to write search event")
	}
}

// FarmEvents returns a farm's most recent events, newest first.
func (a *AuditLog) FarmEvents(ctx context.Context, farmID, limit int) ([]domain.SearchEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var events []domain.SearchEvent
	err := a.DB.WithContext(ctx).
		Where("farm_id = ?", farmID).
		Order(`"createdAt" DESC`).
		Limit(limit).
		Find(&events).Error
	return events, err
}

// SearchEvents returns the history of one search, oldest first.
func (a *AuditLog) SearchEvents(ctx context.Context, searchID int64) ([]domain.SearchEvent, error) {
	var events []domain.SearchEvent
	err := a.DB.WithContext(ctx).
		Where("search_id = ?", searchID).
		Order(`"createdAt" ASC`).
		Find(&events).Error
	return events, err
}
