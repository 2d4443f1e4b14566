// Package transport carries authoritative state changes to followers.
package transport

import (
	"encoding/json"
	"fmt"

	"usedplus-economy/internal/domain"
)

// Event is one broadcast state change. Variants are the exported structs in
// this file; Decode switches over all of them.
type Event interface {
	EventType() string
}

type SearchUpserted struct {
	Search *domain.Search `json:"search"`
}

type SearchRemoved struct {
	SearchID int64  `json:"search_id"`
	FarmID   int    `json:"farm_id"`
	Reason   string `json:"reason"`
}

type ListingUpserted struct {
	Listing *domain.Listing `json:"listing"`
}

type ListingRemoved struct {
	ListingID int64  `json:"listing_id"`
	FarmID    int    `json:"farm_id"`
	Reason    string `json:"reason"`
}

type SettingsChanged struct {
	Values map[string]any `json:"values"`
}

type DealUpdated struct {
	Deal domain.FinanceDeal `json:"deal"`
}

type StatsUpdated struct {
	FarmID int              `json:"farm_id"`
	Stats  domain.FarmStats `json:"stats"`
}

const (
	TypeSearchUpserted  = "search.upserted"
	TypeSearchRemoved   = "search.removed"
	TypeListingUpserted = "listing.upserted"
	TypeListingRemoved  = "listing.removed"
	TypeSettingsChanged = "settings.changed"
	TypeDealUpdated     = "deal.updated"
	TypeStatsUpdated    = "stats.updated"
)

func (SearchUpserted) EventType() string  { return TypeSearchUpserted }
func (SearchRemoved) EventType() string   { return TypeSearchRemoved }
func (ListingUpserted) EventType() string { return TypeListingUpserted }
func (ListingRemoved) EventType() string  { return TypeListingRemoved }
func (SettingsChanged) EventType() string { return TypeSettingsChanged }
func (DealUpdated) EventType() string     { return TypeDealUpdated }
func (StatsUpdated) EventType() string    { return TypeStatsUpdated }

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func Encode(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: ev.EventType(), Payload: payload})
}

func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var ev Event
	switch env.Type {
	case TypeSearchUpserted:
		var e SearchUpserted
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		ev = e
	case TypeSearchRemoved:
		var e SearchRemoved
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		ev = e
	case TypeListingUpserted:
		var e ListingUpserted
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		ev = e
	case TypeListingRemoved:
		var e ListingRemoved
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		ev = e
	case TypeSettingsChanged:
		var e SettingsChanged
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		ev = e
	case TypeDealUpdated:
		var e DealUpdated
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		ev = e
	case TypeStatsUpdated:
		var e StatsUpdated
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		ev = e
	default:
		return nil, fmt.Errorf("unknown event type %q: %w", env.Type, domain.ErrInvalidInput)
	}
	return ev, nil
}
