package savegame

import (
	"context"
	"errors"
	"fmt"

	"usedplus-economy/internal/domain"

	"gorm.io/gorm"
)

var ErrSlotNotFound = fmt.Errorf("save slot: %w", domain.ErrNotFound)

// GormStore persists trees as SaveEntries rows, one set per slot.
type GormStore struct {
	DB *gorm.DB
}

// Save replaces the slot's contents with tree.
func (s *GormStore) Save(ctx context.Context, slot string, tree *Tree) error {
	if slot == "" {
		return fmt.Errorf("save slot name is required: %w", domain.ErrInvalidInput)
	}
	entries := tree.Entries()
	rows := make([]domain.SaveEntry, len(entries))
	for i, e := range entries {
		rows[i] = domain.SaveEntry{Slot: slot, Key: e.Key, Kind: e.Kind, Value: e.Value}
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("slot = ?", slot).Delete(&domain.SaveEntry{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
}

// Load reads a slot back into a fresh tree.
func (s *GormStore) Load(ctx context.Context, slot string) (*Tree, error) {
	var rows []domain.SaveEntry
	if err := s.DB.WithContext(ctx).Where("slot = ?", slot).Order(`"key" ASC`).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrSlotNotFound
	}
	tree := NewTree()
	for _, r := range rows {
		tree.Put(Entry{Key: r.Key, Kind: r.Kind, Value: r.Value})
	}
	return tree, nil
}

// Slots lists every slot that has data.
func (s *GormStore) Slots(ctx context.Context) ([]string, error) {
	var slots []string
	err := s.DB.WithContext(ctx).Model(&domain.SaveEntry{}).Distinct("slot").Order("slot ASC").Pluck("slot", &slots).Error
	return slots, err
}

// Delete removes a slot. Deleting a missing slot is not an error.
func (s *GormStore) Delete(ctx context.Context, slot string) error {
	err := s.DB.WithContext(ctx).Where("slot = ?", slot).Delete(&domain.SaveEntry{}).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}
