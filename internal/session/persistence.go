package session

import (
	"context"
	"errors"
	"sort"

	"usedplus-economy/internal/application/settings"
	"usedplus-economy/internal/savegame"
	"usedplus-economy/internal/transport"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
)

const (
	clockPath    = "usedPlus.clock"
	settingsPath = "usedPlus.settings"
)

// SaveResult reports what was written.
type SaveResult struct {
	Slot    string `json:"slot"`
	Entries int    `json:"entries"`
	Day     int    `json:"day"`
}

// Save writes the clock, the settings and every search and listing into the
// session's save slot. Deals live in their own tables and are not part of
// the document.
func (s *Session) Save(ctx context.Context) (*SaveResult, error) {
	return mutate(ctx, s, func(ctx context.Context) (*SaveResult, error) {
		tree := savegame.NewTree()
		tree.SetInt(savegame.Attr(clockPath, "day"), s.clock.Day())
		tree.SetInt(savegame.Attr(clockPath, "hour"), s.clock.Hour())

		snap := s.settings.Snapshot()
		keys := make([]string, 0, len(snap))
		for k := range snap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			tree.SetString(savegame.Attr(settingsPath, k), cast.ToString(snap[k]))
		}

		s.search.Save(tree)
		if err := s.store.Save(ctx, s.slot, tree); err != nil {
			return nil, err
		}
		log.Info().Str("slot", s.slot).Int("entries", tree.Len()).Int("day", s.clock.Day()).Msg("Session saved")
		return &SaveResult{Slot: s.slot, Entries: tree.Len(), Day: s.clock.Day()}, nil
	})
}

// Load restores the save slot. A missing slot leaves the fresh state alone
// and reports false.
func (s *Session) Load(ctx context.Context) (bool, error) {
	return mutate(ctx, s, func(ctx context.Context) (bool, error) {
		tree, err := s.store.Load(ctx, s.slot)
		if errors.Is(err, savegame.ErrSlotNotFound) {
			log.Info().Str("slot", s.slot).Msg("No save found, starting fresh")
			return false, nil
		}
		if err != nil {
			return false, err
		}

		s.clock.SetTime(
			tree.Int(savegame.Attr(clockPath, "day"), s.clock.Day()),
			tree.Int(savegame.Attr(clockPath, "hour"), s.clock.Hour()),
		)

		values := make(map[string]any)
		for _, k := range settings.Keys() {
			path := savegame.Attr(settingsPath, k)
			if tree.Has(path) {
				values[k] = tree.String(path, "")
			}
		}
		if len(values) > 0 {
			s.settings.Replace(values)
			s.outbox.Publish(transport.SettingsChanged{Values: s.settings.Snapshot()})
		}

		s.search.Load(tree)
		for _, id := range s.farms.FarmIDs() {
			for _, sr := range s.search.FarmSearches(id) {
				s.outbox.Publish(transport.SearchUpserted{Search: sr})
			}
			for _, l := range s.search.FarmListings(id) {
				s.outbox.Publish(transport.ListingUpserted{Listing: l})
			}
		}
		if err := s.credit.Refresh(ctx, s.farms.FarmIDs()); err != nil {
			log.Warn().Err(err).Msg("Credit refresh after load failed")
		}

		log.Info().Str("slot", s.slot).Int("entries", tree.Len()).Int("day", s.clock.Day()).
			Int("searches", s.search.ActiveSearchCount()).Msg("Session loaded")
		return true, nil
	})
}
