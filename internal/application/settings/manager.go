package settings

import (
	"fmt"
	"sort"
	"sync"

	"usedplus-economy/internal/domain"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

var (
	ErrUnknownKey    = fmt.Errorf("unknown setting: %w", domain.ErrInvalidInput)
	ErrInvalidValue  = fmt.Errorf("invalid setting value: %w", domain.ErrInvalidInput)
	ErrUnknownPreset = fmt.Errorf("unknown preset: %w", domain.ErrInvalidInput)
)

// Listener receives the values of every applied change.
type Listener func(values map[string]any)

// Manager is the settings provider. It owns a private viper instance so
// gameplay settings never mix with process configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	listeners []Listener
}

// NewManager loads defaults and, when path is set, overrides them from a
// settings file (yaml, json or toml, picked by extension).
func NewManager(path string) (*Manager, error) {
	v := viper.New()
	for key, d := range definitions {
		v.SetDefault(key, d.def)
	}
	m := &Manager{v: v}
	if path == "" {
		return m, nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read settings file %s: %w", path, err)
	}
	// file values go through the same validation as runtime changes
	for key := range definitions {
		if !v.InConfig(key) {
			continue
		}
		norm, err := normalize(key, v.Get(key))
		if err != nil {
			return nil, fmt.Errorf("settings file %s: %s: %w", path, key, err)
		}
		v.Set(key, norm)
	}
	return m, nil
}

func (m *Manager) Float(key string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.GetFloat64(key)
}

func (m *Manager) Int(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.GetInt(key)
}

func (m *Manager) Bool(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.GetBool(key)
}

// Snapshot returns every setting keyed by its canonical name.
func (m *Manager) Snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any, len(definitions))
	for key := range definitions {
		out[key] = m.v.Get(key)
	}
	return out
}

// OnChange registers a listener for applied changes.
func (m *Manager) OnChange(l Listener) {
	m.listeners = append(m.listeners, l)
}

// Apply validates and applies a change from actor. Changes from unprivileged
// actors are logged and dropped without an error. A change is all-or-nothing:
// one bad key rejects the whole request.
func (m *Manager) Apply(actor domain.Actor, c Change) (map[string]any, error) {
	if !actor.Privileged {
		log.Warn().
			Int("farm_id", actor.FarmID).
			Str("player_id", actor.PlayerID).
			Str("change", c.changeType()).
			Msg("Dropped settings change from unprivileged sender")
		return nil, nil
	}

	var requested map[string]any
	switch ch := c.(type) {
	case SingleChange:
		requested = map[string]any{ch.Key: ch.Value}
	case BulkChange:
		requested = ch.Values
	case PresetChange:
		p, ok := presets[ch.Preset]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, ch.Preset)
		}
		requested = p
	default:
		return nil, fmt.Errorf("unsupported change %T: %w", c, domain.ErrInvalidInput)
	}

	applied := make(map[string]any, len(requested))
	for key, raw := range requested {
		norm, err := normalize(key, raw)
		if err != nil {
			return nil, err
		}
		applied[key] = norm
	}

	keys := make([]string, 0, len(applied))
	m.mu.Lock()
	for key, val := range applied {
		m.v.Set(key, val)
		keys = append(keys, key)
	}
	m.mu.Unlock()
	sort.Strings(keys)
	log.Info().Strs("keys", keys).Str("player_id", actor.PlayerID).Msg("Settings changed")

	for _, l := range m.listeners {
		l(applied)
	}
	return applied, nil
}

// Replace overwrites values received from the authoritative side. Followers
// use it to mirror broadcasts; unknown or invalid keys are skipped.
func (m *Manager) Replace(values map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, raw := range values {
		norm, err := normalize(key, raw)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Skipped mirrored setting")
			continue
		}
		m.v.Set(key, norm)
	}
}

func normalize(key string, raw any) (any, error) {
	d, ok := definitions[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	switch d.kind {
	case kindBool:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, key, err)
		}
		return b, nil
	case kindInt:
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, key, err)
		}
		if f < d.min || f > d.max {
			return nil, fmt.Errorf("%w: %s must be between %v and %v", ErrInvalidValue, key, d.min, d.max)
		}
		return int(f), nil
	default:
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, key, err)
		}
		if f < d.min || f > d.max {
			return nil, fmt.Errorf("%w: %s must be between %v and %v", ErrInvalidValue, key, d.min, d.max)
		}
		return f, nil
	}
}
