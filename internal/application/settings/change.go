package settings

import (
	"encoding/json"
	"fmt"

	"usedplus-economy/internal/domain"
)

// Change is a settings change request. The concrete variants are
// SingleChange, BulkChange and PresetChange.
type Change interface {
	changeType() string
}

type SingleChange struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type BulkChange struct {
	Values map[string]any `json:"values"`
}

type PresetChange struct {
	Preset string `json:"preset"`
}

func (SingleChange) changeType() string { return "single" }
func (BulkChange) changeType() string   { return "bulk" }
func (PresetChange) changeType() string { return "preset" }

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeChange wraps a change in its wire envelope.
func EncodeChange(c Change) ([]byte, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: c.changeType(), Payload: payload})
}

// DecodeChange parses a wire envelope into its typed variant.
func DecodeChange(data []byte) (Change, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode settings change: %w", domain.ErrInvalidInput)
	}

	switch env.Type {
	case "single":
		var c SingleChange
		if err := json.Unmarshal(env.Payload, &c); err != nil || c.Key == "" {
			return nil, fmt.Errorf("decode single change: %w", domain.ErrInvalidInput)
		}
		return c, nil
	case "bulk":
		var c BulkChange
		if err := json.Unmarshal(env.Payload, &c); err != nil || len(c.Values) == 0 {
			return nil, fmt.Errorf("decode bulk change: %w", domain.ErrInvalidInput)
		}
		return c, nil
	case "preset":
		var c PresetChange
		if err := json.Unmarshal(env.Payload, &c); err != nil || c.Preset == "" {
			return nil, fmt.Errorf("decode preset change: %w", domain.ErrInvalidInput)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown settings change type %q: %w", env.Type, domain.ErrInvalidInput)
	}
}
